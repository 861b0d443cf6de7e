package auth

import (
	"errors"
	"net/http"

	"github.com/realia-labs/realia/internal/config"
	"github.com/realia-labs/realia/internal/store"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticator(next http.Handler) http.Handler
}

const (
	SessionAuthentication string = "session"
	NoneAuthentication    string = "none"

	// TokenCookie holds the session token in browsers.
	TokenCookie = "token"
)

func NewAuthenticator(authConfig config.Auth, sessions store.Session) (Authenticator, error) {
	zap.S().Named("auth").Infof("authentication: '%s'", authConfig.AuthenticationType)

	switch authConfig.AuthenticationType {
	case SessionAuthentication:
		if authConfig.JwtSecret == "" {
			return nil, errors.New("session authentication requires a jwt secret")
		}
		return NewSessionAuthenticator([]byte(authConfig.JwtSecret), sessions), nil
	default:
		return NewNoneAuthenticator(authConfig.DevWallet)
	}
}
