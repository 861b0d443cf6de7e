package v1alpha1

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/handlers/validator"
	"github.com/realia-labs/realia/internal/service"
)

// (POST /api/v1/auth/nonce)
func (h *ServiceHandler) CreateNonce(w http.ResponseWriter, r *http.Request) {
	var body api.NonceRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid body")
		return
	}

	v := validator.NewValidator()
	v.Register(validator.NewAuthValidationRules()...)
	if err := v.Struct(body); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	nonce, err := h.authSrv.CreateNonce(r.Context(), body.Address)
	if err != nil {
		switch err.(type) {
		case *service.ErrInvalidAddress:
			renderError(w, r, http.StatusBadRequest, err.Error())
		default:
			h.log.Errorw("failed to create nonce", "address", body.Address, "error", err)
			renderInternalError(w, r)
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, api.NonceResponse{Nonce: nonce})
}

// (POST /api/v1/auth/connect)
func (h *ServiceHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var body api.ConnectRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid body")
		return
	}

	v := validator.NewValidator()
	v.Register(validator.NewAuthValidationRules()...)
	if err := v.Struct(body); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.authSrv.Connect(r.Context(), body.Address, body.Message, body.Signature)
	if err != nil {
		switch err.(type) {
		case *service.ErrInvalidAddress:
			renderError(w, r, http.StatusBadRequest, err.Error())
		case *service.ErrInvalidSignature, *service.ErrInvalidNonce:
			renderError(w, r, http.StatusUnauthorized, err.Error())
		default:
			h.log.Errorw("failed to connect wallet", "address", body.Address, "error", err)
			renderInternalError(w, r)
		}
		return
	}

	http.SetCookie(w, sessionCookie(conn.Token, conn.ExpiresAt, h.secureCookie))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, api.ConnectResponse{
		Message: "connected",
		Address: conn.Address,
		Token:   conn.Token,
		Expires: conn.ExpiresAt,
	})
}

// (POST /api/v1/auth/logout)
func (h *ServiceHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	if err := h.authSrv.Logout(r.Context(), user.SessionID); err != nil {
		h.log.Errorw("failed to revoke session", "session", user.SessionID, "error", err)
		renderInternalError(w, r)
		return
	}

	cookie := sessionCookie("", time.Unix(0, 0), h.secureCookie)
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
	w.WriteHeader(http.StatusNoContent)
}

// (GET /api/v1/auth/me)
func (h *ServiceHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	u, err := h.authSrv.Me(r.Context(), user.WalletAddress)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			renderError(w, r, http.StatusNotFound, err.Error())
		default:
			renderInternalError(w, r)
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, api.Me{Address: u.Address})
}
