package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/internal/store/model"
	"go.uber.org/zap"
)

const issuer = "realia"

// SessionAuthenticator validates HS256 session tokens against the session table,
// so a logged out session stops working before its token expires.
type SessionAuthenticator struct {
	secret   []byte
	sessions store.Session
	now      func() time.Time
}

func NewSessionAuthenticator(secret []byte, sessions store.Session) *SessionAuthenticator {
	return &SessionAuthenticator{secret: secret, sessions: sessions, now: time.Now}
}

// IssueToken signs a token bound to the session.
func (s *SessionAuthenticator) IssueToken(session model.Session) (string, error) {
	claims := SessionClaims{
		Address: session.Address,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			NotBefore: jwt.NewNumericDate(s.now()),
			Issuer:    issuer,
			Subject:   session.Address,
			ID:        session.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *SessionAuthenticator) Authenticate(ctx context.Context, token string) (User, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	var claims SessionClaims
	t, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return User{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return User{}, fmt.Errorf("malformed session id: %w", err)
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return User{}, fmt.Errorf("failed to find session %s: %w", sessionID, err)
	}

	if !session.Active(s.now()) {
		return User{}, errors.New("session is no longer active")
	}

	if session.Address != claims.Address {
		return User{}, errors.New("session does not belong to the token subject")
	}

	return User{
		WalletAddress: session.Address,
		SessionID:     session.ID,
		Token:         t,
	}, nil
}

func (s *SessionAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			http.Error(w, "No token provided", http.StatusUnauthorized)
			return
		}

		user, err := s.Authenticate(r.Context(), token)
		if err != nil {
			zap.S().Named("auth").Debugw("authentication failed", "error", err)
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		ctx := NewTokenContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenFromRequest reads the session token from the cookie or the Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
