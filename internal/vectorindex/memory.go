package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an exact cosine index kept in memory.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[string]Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[string]Point)}
}

func (m *MemoryIndex) Query(_ context.Context, vector []float32, params SearchParams) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.points))
	for id, p := range m.points {
		if len(p.Vector) != len(vector) {
			return nil, fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vector), len(p.Vector))
		}
		matches = append(matches, Match{ID: id, Score: Cosine(vector, p.Vector), Payload: p.Payload})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if params.TopK > 0 && uint64(len(matches)) > params.TopK {
		matches = matches[:params.TopK]
	}
	return matches, nil
}

func (m *MemoryIndex) Upsert(_ context.Context, point Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[point.ID.String()] = point
	return nil
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

// Cosine returns the cosine similarity of two vectors of the same length.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
