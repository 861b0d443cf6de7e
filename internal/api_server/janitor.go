package apiserver

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

type expiredSessionDeleter interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// SessionJanitor periodically removes expired sessions.
type SessionJanitor struct {
	sessions expiredSessionDeleter
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewSessionJanitor(sessions expiredSessionDeleter, interval time.Duration) *SessionJanitor {
	return &SessionJanitor{
		sessions: sessions,
		interval: interval,
		log:      zap.S().Named("session_janitor"),
	}
}

func (j *SessionJanitor) Run(ctx context.Context) {
	ticker := jitterbug.New(j.interval, &jitterbug.Norm{Stdev: j.interval / 10})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *SessionJanitor) sweep(ctx context.Context) {
	deleted, err := j.sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		j.log.Warnw("failed to delete expired sessions", "error", err)
		return
	}
	if deleted > 0 {
		j.log.Infof("deleted %d expired sessions", deleted)
	}
}
