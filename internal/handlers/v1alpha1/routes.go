package v1alpha1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HandlerFromMux mounts the api on r. Routes that change state, or read the caller's
// own data, sit behind authenticate.
func HandlerFromMux(h *ServiceHandler, r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/info", h.GetInfo)
		r.Post("/auth/nonce", h.CreateNonce)
		r.Post("/auth/connect", h.Connect)
		r.Get("/nfts", h.ListNfts)
		r.Get("/nfts/{tokenId}", h.GetNft)
		r.Get("/verifications/{id}", h.GetVerification)
		r.Get("/verifications/{id}/responses", h.ListVerificationResponses)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/mint", h.Mint)
			r.Post("/verify", h.Verify)
			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.Me)
			r.Get("/user/nfts", h.ListUserNfts)
		})
	})
}
