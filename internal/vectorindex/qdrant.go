package vectorindex

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  uint64
	log        *zap.SugaredLogger
}

type QdrantOption func(q *QdrantIndex)

func WithCollection(name string, dimension uint64) QdrantOption {
	return func(q *QdrantIndex) {
		q.collection = name
		q.dimension = dimension
	}
}

func NewQdrantIndex(cfg *qdrant.Config, opts ...QdrantOption) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	q := &QdrantIndex{
		client:     client,
		collection: "realia",
		dimension:  512,
		log:        zap.S().Named("vectorindex"),
	}
	for _, o := range opts {
		o(q)
	}

	return q, nil
}

// EnsureCollection creates the cosine collection when it does not exist yet.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", q.collection, err)
	}
	if exists {
		return nil
	}

	q.log.Infof("creating collection %s (%d dims, cosine)", q.collection, q.dimension)
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (q *QdrantIndex) Query(ctx context.Context, vector []float32, params SearchParams) ([]Match, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          ptr(params.TopK),
		Params: &qdrant.SearchParams{
			HnswEf: ptr(params.HnswEf),
			Exact:  ptr(params.Exact),
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", q.collection, err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		payload := make(map[string]string, len(p.GetPayload()))
		for k, v := range p.GetPayload() {
			payload[k] = v.GetStringValue()
		}
		matches = append(matches, Match{
			ID:      pointID(p.GetId()),
			Score:   p.GetScore(),
			Payload: payload,
		})
	}

	return matches, nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, point Point) error {
	payload := make(map[string]any, len(point.Payload))
	for k, v := range point.Payload {
		payload[k] = v
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           ptr(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(point.ID.String()),
				Vectors: qdrant.NewVectors(point.Vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point %s: %w", point.ID, err)
	}
	return nil
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func ptr[T any](v T) *T {
	return &v
}
