package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/realia-labs/realia/internal/ledger"
	"github.com/realia-labs/realia/internal/store/model"
	"github.com/realia-labs/realia/internal/vectorindex"
	"github.com/realia-labs/realia/pkg/metrics"
)

const (
	DefaultVerifiedThreshold float32 = 0.95
	DefaultModifiedThreshold float32 = 0.75
)

// ContentFetcher reads ipfs:// content.
type ContentFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

type Searcher interface {
	Query(ctx context.Context, vector []float32, params vectorindex.SearchParams) ([]vectorindex.Match, error)
}

// Thresholds map the best similarity score to a verification result.
type Thresholds struct {
	Verified float32
	Modified float32
}

func (t Thresholds) Result(score float32) ledger.VerificationResult {
	switch {
	case score >= t.Verified:
		return ledger.ResultVerified
	case score >= t.Modified:
		return ledger.ResultModified
	default:
		return ledger.ResultNotVerified
	}
}

// Verdict is the answer of the agent to one verification request.
type Verdict struct {
	RequestID *big.Int
	Result    ledger.VerificationResult
	Score     float32
	// TokenID is the closest minted token, zero when nothing is close enough.
	TokenID *big.Int
}

// Verifier answers pending verification requests by comparing the submitted image
// to the minted ones.
type Verifier struct {
	ledger     ledger.AgentLedger
	content    ContentFetcher
	embedder   Embedder
	index      Searcher
	params     vectorindex.SearchParams
	thresholds Thresholds
	interval   time.Duration
	jitter     time.Duration
	log        *zap.SugaredLogger
}

type Option func(v *Verifier)

func WithThresholds(t Thresholds) Option {
	return func(v *Verifier) {
		v.thresholds = t
	}
}

func WithSearchParams(p vectorindex.SearchParams) Option {
	return func(v *Verifier) {
		v.params = p
	}
}

func WithInterval(interval, jitter time.Duration) Option {
	return func(v *Verifier) {
		v.interval = interval
		v.jitter = jitter
	}
}

func NewVerifier(l ledger.AgentLedger, content ContentFetcher, embedder Embedder, index Searcher, opts ...Option) *Verifier {
	v := &Verifier{
		ledger:     l,
		content:    content,
		embedder:   embedder,
		index:      index,
		params:     vectorindex.SearchParams{TopK: vectorindex.DefaultTopK},
		thresholds: Thresholds{Verified: DefaultVerifiedThreshold, Modified: DefaultModifiedThreshold},
		interval:   5 * time.Second,
		jitter:     30 * time.Millisecond,
		log:        zap.S().Named("agent"),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Run syncs on a jittered ticker until ctx ends. A failed sync is retried on the next tick.
func (v *Verifier) Run(ctx context.Context) error {
	v.log.Infof("agent %s answering verification requests every %s", v.ledger.Address(), v.interval)
	defer v.log.Info("agent stopped")

	ticker := jitterbug.New(v.interval, &jitterbug.Norm{Stdev: v.jitter, Mean: 0})
	defer ticker.Stop()

	for {
		if _, err := v.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
			v.log.Warnw("sync failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sync answers every pending request this agent has not answered yet and returns the
// verdicts it submitted. One failing request does not stop the others.
func (v *Verifier) Sync(ctx context.Context) ([]Verdict, error) {
	pending, err := v.ledger.PendingVerifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending verifications: %w", err)
	}

	open := funk.Filter(pending, func(p ledger.PendingVerification) bool {
		done, err := v.ledger.HasAgentResponded(ctx, p.RequestID)
		if err != nil {
			v.log.Warnw("failed to check previous response", "request", p.RequestID, "error", err)
			return false
		}
		return !done
	}).([]ledger.PendingVerification)

	verdicts := make([]Verdict, 0, len(open))
	var errs []error
	for _, p := range open {
		verdict, err := v.Evaluate(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", p.RequestID, err))
			continue
		}

		tx, err := v.ledger.RespondVerification(ctx, verdict.RequestID, verdict.Result, verdict.TokenID)
		if err != nil {
			errs = append(errs, fmt.Errorf("request %s: failed to respond: %w", p.RequestID, err))
			continue
		}

		metrics.IncreaseAgentResponses(verdict.Result.String())
		v.log.Infow("verification answered", "request", p.RequestID, "result", verdict.Result, "score", verdict.Score, "token", verdict.TokenID, "tx", tx)
		verdicts = append(verdicts, verdict)
	}

	return verdicts, errors.Join(errs...)
}

// Evaluate fetches the image of a request, embeds it and compares it to the index.
func (v *Verifier) Evaluate(ctx context.Context, p ledger.PendingVerification) (Verdict, error) {
	doc, err := v.content.Fetch(ctx, p.URI)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to fetch metadata: %w", err)
	}

	var metadata model.Metadata
	if err := json.Unmarshal(doc, &metadata); err != nil {
		return Verdict{}, fmt.Errorf("malformed metadata document %s: %w", p.URI, err)
	}
	if metadata.Image == "" {
		return Verdict{}, fmt.Errorf("metadata document %s has no image", p.URI)
	}

	image, err := v.content.Fetch(ctx, metadata.Image)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to fetch image: %w", err)
	}

	vector, err := v.embedder.Embed(ctx, image)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to embed image: %w", err)
	}

	matches, err := v.index.Query(ctx, vector, v.params)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to query index: %w", err)
	}

	verdict := Verdict{RequestID: p.RequestID, Result: ledger.ResultNotVerified, TokenID: big.NewInt(0)}
	if len(matches) == 0 {
		return verdict, nil
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.Score > best.Score {
			best = m
		}
	}

	verdict.Score = best.Score
	verdict.Result = v.thresholds.Result(best.Score)
	if verdict.Result != ledger.ResultNotVerified {
		if id, ok := new(big.Int).SetString(best.Payload[vectorindex.PayloadTokenID], 10); ok {
			verdict.TokenID = id
		}
	}
	return verdict, nil
}
