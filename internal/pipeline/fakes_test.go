package pipeline_test

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"

	"github.com/realia-labs/realia/internal/ledger"
	"github.com/realia-labs/realia/internal/vectorindex"
)

// trace records collaborator calls in order.
type trace struct {
	lock  sync.Mutex
	calls []string
}

func (t *trace) add(call string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.calls = append(t.calls, call)
}

func (t *trace) Calls() []string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]string(nil), t.calls...)
}

func (t *trace) Index(call string) int {
	for i, c := range t.Calls() {
		if c == call {
			return i
		}
	}
	return -1
}

// hashEmbedder derives a stable unit-ish vector from the image bytes.
type hashEmbedder struct {
	trace *trace
	err   error
}

func (h *hashEmbedder) Embed(_ context.Context, image []byte) ([]float32, error) {
	h.trace.add("embed")
	if h.err != nil {
		return nil, h.err
	}
	sum := sha256.Sum256(image)
	vec := make([]float32, 8)
	for i := range vec {
		vec[i] = float32(sum[i]) + 1
	}
	return vec, nil
}

type fakeClassifier struct {
	trace *trace
	isAI  bool
	err   error
}

func (f *fakeClassifier) IsAIGenerated(_ context.Context, _ []byte, _ string) (bool, error) {
	f.trace.add("classify")
	return f.isAI, f.err
}

type tracingDuplicates struct {
	trace *trace
	inner *vectorindex.DuplicateDetector
}

func (t *tracingDuplicates) FindDuplicate(ctx context.Context, vector []float32) (*vectorindex.Match, error) {
	t.trace.add("query")
	return t.inner.FindDuplicate(ctx, vector)
}

type tracingLedger struct {
	trace *trace
	inner *ledger.MemoryLedger
	err   error
}

func (t *tracingLedger) HasOrder(ctx context.Context, actor string, kind ledger.OrderKind) (bool, error) {
	t.trace.add("hasOrder")
	return t.inner.HasOrder(ctx, actor, kind)
}

func (t *tracingLedger) Mint(ctx context.Context, to, uri string) (*ledger.Outcome, error) {
	t.trace.add("mint")
	if t.err != nil {
		return nil, t.err
	}
	return t.inner.Mint(ctx, to, uri)
}

func (t *tracingLedger) RequestVerification(ctx context.Context, user, uri string) (*ledger.Outcome, error) {
	t.trace.add("requestVerification")
	if t.err != nil {
		return nil, t.err
	}
	return t.inner.RequestVerification(ctx, user, uri)
}

type tracingIndex struct {
	trace  *trace
	inner  *vectorindex.MemoryIndex
	points []vectorindex.Point
	err    error
}

func (t *tracingIndex) Upsert(ctx context.Context, point vectorindex.Point) error {
	t.trace.add("upsert")
	if t.err != nil {
		return t.err
	}
	t.points = append(t.points, point)
	return t.inner.Upsert(ctx, point)
}

var errBoom = errors.New("boom")
