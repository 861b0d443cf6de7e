package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type tokenKeyType struct{}

var (
	tokenKey tokenKeyType
)

func UserFromContext(ctx context.Context) (User, bool) {
	val := ctx.Value(tokenKey)
	if val == nil {
		return User{}, false
	}
	user, ok := val.(User)
	return user, ok
}

func MustHaveUser(ctx context.Context) User {
	user, found := UserFromContext(ctx)
	if !found {
		zap.S().Named("auth").Panic("failed to find user in context")
	}
	return user
}

func NewTokenContext(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, tokenKey, user)
}

// User is the authenticated wallet of a request.
type User struct {
	// WalletAddress is the lowercase 0x-prefixed address.
	WalletAddress string
	SessionID     uuid.UUID
	Token         *jwt.Token
}

// SessionClaims are carried by the session token issued on connect.
type SessionClaims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}
