package datasets

import (
	"fmt"
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
)

// TakeDataset stops an epoch after a fixed number of batches and counts the
// batches and examples actually yielded, which may be fewer when the wrapped
// split runs out first.
type TakeDataset struct {
	ds    train.Dataset
	limit int

	batches  int
	examples int
}

var _ train.Dataset = (*TakeDataset)(nil)

// Take wraps ds so each epoch yields at most n batches. n must be positive.
func Take(ds train.Dataset, n int) (*TakeDataset, error) {
	if n <= 0 {
		return nil, errors.Errorf("batch limit must be positive, got %d", n)
	}
	return &TakeDataset{ds: ds, limit: n}, nil
}

// Name implements train.Dataset.
func (t *TakeDataset) Name() string {
	return fmt.Sprintf("%s/first-%d-batches", t.ds.Name(), t.limit)
}

// Reset implements train.Dataset and clears the counters.
func (t *TakeDataset) Reset() {
	t.ds.Reset()
	t.batches, t.examples = 0, 0
}

// Yield implements train.Dataset. Errors of the wrapped dataset, io.EOF
// included, are passed through and not counted.
func (t *TakeDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if t.batches >= t.limit {
		return nil, nil, nil, io.EOF
	}
	spec, inputs, labels, err = t.ds.Yield()
	if err != nil {
		return nil, nil, nil, err
	}
	t.batches++
	t.examples += batchLen(spec, inputs)
	return spec, inputs, labels, nil
}

// Batches returns the number of batches yielded since the last Reset.
func (t *TakeDataset) Batches() int { return t.batches }

// Examples returns the number of examples yielded since the last Reset.
func (t *TakeDataset) Examples() int { return t.examples }

func batchLen(spec any, inputs []*tensors.Tensor) int {
	switch b := spec.(type) {
	case *EditBatchFlat:
		return b.BatchSize
	case *EvalBatchFlat:
		return b.BatchSize
	}
	if len(inputs) > 0 && inputs[0] != nil && inputs[0].Shape().Rank() > 0 {
		return inputs[0].Shape().Dimensions[0]
	}
	return 0
}
