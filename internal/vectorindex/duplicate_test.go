package vectorindex_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/realia-labs/realia/internal/vectorindex"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type scriptedIndex struct {
	matches []vectorindex.Match
	err     error
	params  []vectorindex.SearchParams
}

func (s *scriptedIndex) Query(_ context.Context, _ []float32, params vectorindex.SearchParams) ([]vectorindex.Match, error) {
	s.params = append(s.params, params)
	return s.matches, s.err
}

func (s *scriptedIndex) Upsert(context.Context, vectorindex.Point) error {
	return nil
}

var _ = Describe("duplicate detector", func() {
	Context("search parameters", func() {
		It("queries the top 5 approximately with hnsw_ef 128 by default", func() {
			idx := &scriptedIndex{}
			d := vectorindex.NewDuplicateDetector(idx, vectorindex.SearchParams{}, 0)

			_, err := d.FindDuplicate(context.TODO(), []float32{1})
			Expect(err).To(BeNil())
			Expect(idx.params).To(ConsistOf(vectorindex.SearchParams{TopK: 5, HnswEf: 128, Exact: false}))
			Expect(d.Threshold()).To(BeNumerically("~", 0.94, 1e-6))
		})
	})

	Context("threshold", func() {
		It("flags any neighbour above the threshold", func() {
			idx := &scriptedIndex{matches: []vectorindex.Match{
				{ID: "a", Score: 0.50},
				{ID: "b", Score: 0.95},
				{ID: "c", Score: 0.99},
			}}
			d := vectorindex.NewDuplicateDetector(idx, vectorindex.SearchParams{}, 0.94)

			match, err := d.FindDuplicate(context.TODO(), []float32{1})
			Expect(err).To(BeNil())
			Expect(match).ToNot(BeNil())
			Expect(match.ID).To(Equal("b"))
		})

		It("accepts a score equal to the threshold", func() {
			idx := &scriptedIndex{matches: []vectorindex.Match{{ID: "a", Score: 0.94}}}
			d := vectorindex.NewDuplicateDetector(idx, vectorindex.SearchParams{}, 0.94)

			match, err := d.FindDuplicate(context.TODO(), []float32{1})
			Expect(err).To(BeNil())
			Expect(match).To(BeNil())
		})

		It("propagates index failures", func() {
			idx := &scriptedIndex{err: errors.New("unavailable")}
			_, err := vectorindex.NewDuplicateDetector(idx, vectorindex.SearchParams{}, 0).FindDuplicate(context.TODO(), []float32{1})
			Expect(err).To(MatchError("unavailable"))
		})
	})

	Context("memory index", func() {
		It("finds the identical vector after it was indexed", func() {
			idx := vectorindex.NewMemoryIndex()
			d := vectorindex.NewDuplicateDetector(idx, vectorindex.SearchParams{}, 0)
			vec := []float32{0.1, 0.7, 0.2}

			match, err := d.FindDuplicate(context.TODO(), vec)
			Expect(err).To(BeNil())
			Expect(match).To(BeNil())

			id := uuid.New()
			Expect(idx.Upsert(context.TODO(), vectorindex.Point{ID: id, Vector: vec, Payload: map[string]string{vectorindex.PayloadTokenID: "42"}})).To(Succeed())

			match, err = d.FindDuplicate(context.TODO(), vec)
			Expect(err).To(BeNil())
			Expect(match).ToNot(BeNil())
			Expect(match.ID).To(Equal(id.String()))
			Expect(match.Score).To(BeNumerically("~", 1.0, 1e-6))
			Expect(match.Payload[vectorindex.PayloadTokenID]).To(Equal("42"))
		})

		It("limits results to top k sorted by score", func() {
			idx := vectorindex.NewMemoryIndex()
			for _, v := range [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}} {
				Expect(idx.Upsert(context.TODO(), vectorindex.Point{ID: uuid.New(), Vector: v})).To(Succeed())
			}

			matches, err := idx.Query(context.TODO(), []float32{1, 0}, vectorindex.SearchParams{TopK: 2})
			Expect(err).To(BeNil())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].Score).To(BeNumerically(">=", matches[1].Score))
		})
	})
})
