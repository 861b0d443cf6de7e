package util

import (
	"net/http"
	"strings"
)

// StripPathPrefix removes prefix from the request path, for deployments behind a
// gateway that forwards /prefix/api/v1/... unchanged.
func StripPathPrefix(prefix string) func(http.Handler) http.Handler {
	prefix = "/" + strings.Trim(prefix, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == prefix || strings.HasPrefix(r.URL.Path, prefix+"/") {
				r.URL.Path = strings.TrimPrefix(r.URL.Path, prefix)
				if r.URL.Path == "" {
					r.URL.Path = "/"
				}
				r.URL.RawPath = ""
			}

			next.ServeHTTP(w, r)
		})
	}
}
