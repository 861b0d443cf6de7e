package vectorindex

import (
	"context"

	"github.com/google/uuid"
)

// Payload keys stored next to each vector.
const (
	PayloadTokenID  = "tokenId"
	PayloadRecordID = "recordId"
	PayloadURI      = "uri"
)

type Point struct {
	ID      uuid.UUID
	Vector  []float32
	Payload map[string]string
}

type Match struct {
	ID      string
	Score   float32
	Payload map[string]string
}

type SearchParams struct {
	TopK   uint64
	HnswEf uint64
	// Exact disables the approximate (hnsw) search.
	Exact bool
}

// Index is a nearest neighbour index over image embeddings.
type Index interface {
	Query(ctx context.Context, vector []float32, params SearchParams) ([]Match, error)
	Upsert(ctx context.Context, point Point) error
}
