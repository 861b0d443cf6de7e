package vectorindex

import (
	"context"
)

const (
	DefaultTopK               = 5
	DefaultHnswEf             = 128
	DefaultDuplicateThreshold = 0.94
)

// DuplicateDetector rejects images whose embedding is too close to an indexed one.
type DuplicateDetector struct {
	index     Index
	params    SearchParams
	threshold float32
}

func NewDuplicateDetector(index Index, params SearchParams, threshold float32) *DuplicateDetector {
	if params.TopK == 0 {
		params.TopK = DefaultTopK
	}
	if params.HnswEf == 0 {
		params.HnswEf = DefaultHnswEf
	}
	if threshold == 0 {
		threshold = DefaultDuplicateThreshold
	}
	return &DuplicateDetector{index: index, params: params, threshold: threshold}
}

// FindDuplicate returns the first neighbour scoring above the threshold, or nil.
// Any qualifying neighbour is enough; it need not be the best one.
func (d *DuplicateDetector) FindDuplicate(ctx context.Context, vector []float32) (*Match, error) {
	matches, err := d.index.Query(ctx, vector, d.params)
	if err != nil {
		return nil, err
	}

	for i := range matches {
		if matches[i].Score > d.threshold {
			return &matches[i], nil
		}
	}
	return nil, nil
}

func (d *DuplicateDetector) Threshold() float32 {
	return d.threshold
}
