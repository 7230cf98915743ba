package datasets

import (
	"math/rand"

	"github.com/Xiaoyao-Li/instruct-pix2pix/imgproc"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// pairRef locates the files of one training pair.
type pairRef struct {
	before string
	after  string
	prompt string
}

// pairResolver maps a split-local index to the files of a pair. rng is used by
// manifests that hold several renderings per entry.
type pairResolver func(i int, rng *rand.Rand) (pairRef, error)

// pairDataset implements Dataset on top of a pairResolver; EpicEditDataset and
// EditDataset only differ in how they resolve an index.
type pairDataset struct {
	*sampler
	pipeline imgproc.Pipeline
	resolve  pairResolver
}

func newPairDataset(name string, size int, cfg Config, resolve pairResolver) *pairDataset {
	return &pairDataset{
		sampler:  newSampler(name, size, cfg),
		pipeline: cfg.Pipeline(),
		resolve:  resolve,
	}
}

// Example reads and augments the pair at split-local index i.
func (d *pairDataset) Example(i int) (*EditSample, error) {
	var sample *EditSample
	err := d.forEach([]int{i}, func(_, idx int, rng *rand.Rand) error {
		var err error
		sample, err = d.load(idx, rng)
		return err
	})
	return sample, err
}

func (d *pairDataset) load(i int, rng *rand.Rand) (*EditSample, error) {
	ref, err := d.resolve(i, rng)
	if err != nil {
		return nil, err
	}
	before, err := imgproc.Load(ref.before)
	if err != nil {
		return nil, err
	}
	after, err := imgproc.Load(ref.after)
	if err != nil {
		return nil, err
	}
	src, edited, err := d.pipeline.ApplyPair(rng, before, after)
	if err != nil {
		return nil, errors.Wrapf(err, "example %d", i)
	}
	return &EditSample{Index: i, Source: src, Edited: edited, Prompt: ref.prompt}, nil
}

// Batch reads multiple examples by their indices, decoding them concurrently.
func (d *pairDataset) Batch(indices []int) (*EditBatchFlat, error) {
	samples := make([]*EditSample, len(indices))
	err := d.forEach(indices, func(pos, idx int, rng *rand.Rand) error {
		s, err := d.load(idx, rng)
		samples[pos] = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return MakeEditBatchFlat(samples)
}

// Yield returns the next batch for the gomlx train.Dataset interface:
//
//   - spec: the *EditBatchFlat, carrying the prompts and example indices.
//   - inputs: the source images, shaped [batch_size, 3, height, width].
//   - labels: the edited images, same shape.
//
// It returns io.EOF at the end of the epoch; call Reset to start another one.
func (d *pairDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	indices, err := d.nextIndices()
	if err != nil {
		return nil, nil, nil, err
	}
	batch, err := d.Batch(indices)
	if err != nil {
		return nil, nil, nil, err
	}
	src, edited, err := batch.ToGomlxTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return batch, []*tensors.Tensor{src}, []*tensors.Tensor{edited}, nil
}
