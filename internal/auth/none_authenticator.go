package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NoneAuthenticator injects a fixed wallet. Development only.
type NoneAuthenticator struct {
	wallet string
}

func NewNoneAuthenticator(wallet string) (*NoneAuthenticator, error) {
	return &NoneAuthenticator{wallet: strings.ToLower(wallet)}, nil
}

func (n *NoneAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":     n.wallet,
			"address": n.wallet,
		})
		token.Raw = "fake-raw-token"

		user := User{
			WalletAddress: n.wallet,
			SessionID:     uuid.Nil,
			Token:         token,
		}

		ctx := NewTokenContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
