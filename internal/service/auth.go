package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/realia-labs/realia/internal/auth"
	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/internal/store/model"
)

const (
	nonceTTL   = 5 * time.Minute
	nonceBytes = 32
)

type TokenIssuer interface {
	IssueToken(session model.Session) (string, error)
}

// Connection is an opened session and the token that carries it.
type Connection struct {
	Address   string
	Token     string
	SessionID uuid.UUID
	ExpiresAt time.Time
}

type AuthService struct {
	store      store.Store
	issuer     TokenIssuer
	sessionTTL time.Duration
	now        func() time.Time
	log        *zap.SugaredLogger
}

func NewAuthService(store store.Store, issuer TokenIssuer, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	return &AuthService{
		store:      store,
		issuer:     issuer,
		sessionTTL: sessionTTL,
		now:        time.Now,
		log:        zap.S().Named("auth_service"),
	}
}

// CreateNonce registers the wallet if needed and returns the challenge it must sign.
// A new nonce replaces any pending one.
func (a *AuthService) CreateNonce(ctx context.Context, address string) (string, error) {
	addr, err := auth.NormalizeAddress(address)
	if err != nil {
		return "", NewErrInvalidAddress(address)
	}

	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)

	err = store.InTransaction(ctx, a.store, func(ctx context.Context) error {
		if _, err := a.store.User().GetOrCreate(ctx, addr); err != nil {
			return err
		}
		now := a.now()
		return a.store.Nonce().Put(ctx, model.Nonce{Address: addr, Value: value, ExpiresAt: now.Add(nonceTTL), CreatedAt: now})
	})
	if err != nil {
		return "", err
	}

	return value, nil
}

// Connect checks that message is the pending nonce of address signed by that wallet,
// spends the nonce and opens a session.
func (a *AuthService) Connect(ctx context.Context, address, message, signature string) (*Connection, error) {
	addr, err := auth.NormalizeAddress(address)
	if err != nil {
		return nil, NewErrInvalidAddress(address)
	}

	// the pending nonce is spent by any attempt, signed correctly or not
	nonce, err := a.store.Nonce().Consume(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrInvalidNonce()
		}
		return nil, err
	}

	if err := auth.VerifySignature(addr, message, signature); err != nil {
		a.log.Debugw("signature rejected", "address", addr, "error", err)
		return nil, NewErrInvalidSignature()
	}
	if nonce.Value != message || nonce.Expired(a.now()) {
		return nil, NewErrInvalidNonce()
	}

	now := a.now()
	session, err := a.store.Session().Create(ctx, model.Session{
		ID:        uuid.New(),
		Address:   addr,
		ExpiresAt: now.Add(a.sessionTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	token, err := a.issuer.IssueToken(*session)
	if err != nil {
		return nil, err
	}

	a.log.Infow("wallet connected", "address", addr, "session", session.ID)
	return &Connection{Address: addr, Token: token, SessionID: session.ID, ExpiresAt: session.ExpiresAt}, nil
}

// Logout revokes the session. Unknown sessions are ignored.
func (a *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return nil
	}
	if err := a.store.Session().Revoke(ctx, sessionID); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (a *AuthService) Me(ctx context.Context, address string) (*model.User, error) {
	user, err := a.store.User().Get(ctx, address)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrUserNotFound(address)
		}
		return nil, err
	}
	return user, nil
}

// DeleteExpiredSessions removes sessions past their expiry.
func (a *AuthService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return a.store.Session().DeleteExpired(ctx, a.now())
}
