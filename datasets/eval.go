package datasets

import (
	"math/rand"
	"path/filepath"

	"github.com/Xiaoyao-Li/instruct-pix2pix/imgproc"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
)

// DefaultEvalRes is the evaluation resolution used when none is given.
const DefaultEvalRes = 256

// EvalSample is one evaluation example: the source image resized without
// augmentation, the edit instruction and the captions before and after it.
type EvalSample struct {
	Index        int
	Source       *imgproc.Tensor
	Edit         string
	InputPrompt  string
	OutputPrompt string
}

// EditEvalDataset reads the same seeds.json corpus as EditDataset but only
// loads the source image of a randomly drawn seed, resized to Res x Res.
type EditEvalDataset struct {
	*sampler

	// Config the dataset was built with, defaults filled in. Augmentation
	// fields are ignored.
	Config Config

	// Res is the square resolution of the returned images.
	Res int

	entries []SeedEntry
}

var _ train.Dataset = (*EditEvalDataset)(nil)

// NewEditEvalDataset loads seeds.json from cfg.Path and keeps the slice
// selected by cfg.Split. res <= 0 means DefaultEvalRes.
func NewEditEvalDataset(cfg Config, res int) (*EditEvalDataset, error) {
	if res <= 0 {
		res = DefaultEvalRes
	}
	cfg.MinResizeRes, cfg.MaxResizeRes, cfg.CropRes, cfg.FlipProb = res, res, res, 0
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	entries, err := loadSeedSplit(cfg)
	if err != nil {
		return nil, err
	}
	return &EditEvalDataset{
		sampler: newSampler("EditEvalDataset/"+cfg.Split.String(), len(entries), cfg),
		Config:  cfg,
		Res:     res,
		entries: entries,
	}, nil
}

// Example reads the evaluation sample at split-local index i.
func (d *EditEvalDataset) Example(i int) (*EvalSample, error) {
	var sample *EvalSample
	err := d.forEach([]int{i}, func(_, idx int, rng *rand.Rand) error {
		var err error
		sample, err = d.load(idx, rng)
		return err
	})
	return sample, err
}

func (d *EditEvalDataset) load(i int, rng *rand.Rand) (*EvalSample, error) {
	e := d.entries[i]
	seed := pickSeed(e, rng)
	dir := filepath.Join(d.Config.Path, e.Name)
	prompt, err := LoadPrompt(dir, true)
	if err != nil {
		return nil, err
	}
	before, _ := SeedImagePaths(d.Config.Path, e.Name, seed)
	img, err := imgproc.Load(before)
	if err != nil {
		return nil, err
	}
	src, err := imgproc.ResizeTensor(img, d.Res)
	if err != nil {
		return nil, errors.Wrapf(err, "example %d", i)
	}
	return &EvalSample{
		Index:        i,
		Source:       src,
		Edit:         prompt.Edit,
		InputPrompt:  prompt.Input,
		OutputPrompt: prompt.Output,
	}, nil
}

// Batch reads multiple evaluation samples by their indices.
func (d *EditEvalDataset) Batch(indices []int) (*EvalBatchFlat, error) {
	samples := make([]*EvalSample, len(indices))
	err := d.forEach(indices, func(pos, idx int, rng *rand.Rand) error {
		s, err := d.load(idx, rng)
		samples[pos] = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return MakeEvalBatchFlat(samples)
}

// Yield implements train.Dataset. spec is the *EvalBatchFlat with the prompts,
// inputs holds the source images shaped [batch_size, 3, res, res] and labels
// is empty since evaluation targets are text.
func (d *EditEvalDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	indices, err := d.nextIndices()
	if err != nil {
		return nil, nil, nil, err
	}
	batch, err := d.Batch(indices)
	if err != nil {
		return nil, nil, nil, err
	}
	src, err := batch.ToGomlxTensor()
	if err != nil {
		return nil, nil, nil, err
	}
	return batch, []*tensors.Tensor{src}, nil, nil
}

// Entries returns the manifest entries of the split, in split order.
func (d *EditEvalDataset) Entries() []SeedEntry {
	return append([]SeedEntry(nil), d.entries...)
}
