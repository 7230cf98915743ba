package datasets

import (
	"github.com/Xiaoyao-Li/instruct-pix2pix/imgproc"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// EditBatchFlat stores a batch of pairs in flat contiguous [B, C, H, W] buffers.
type EditBatchFlat struct {
	Source    []float32
	Edited    []float32
	Prompts   []string
	Indices   []int
	BatchSize int
	Channels  int
	Height    int
	Width     int
}

// MakeEditBatchFlat flattens a batch of samples into contiguous buffers. All
// images must share the same shape.
func MakeEditBatchFlat(samples []*EditSample) (*EditBatchFlat, error) {
	if len(samples) == 0 {
		return &EditBatchFlat{}, nil
	}
	first := samples[0].Source
	b := &EditBatchFlat{
		BatchSize: len(samples),
		Channels:  first.Channels,
		Height:    first.Height,
		Width:     first.Width,
		Prompts:   make([]string, len(samples)),
		Indices:   make([]int, len(samples)),
	}
	size := first.Len()
	b.Source = make([]float32, len(samples)*size)
	b.Edited = make([]float32, len(samples)*size)
	for i, s := range samples {
		if err := b.checkShape(i, s.Source); err != nil {
			return nil, err
		}
		if err := b.checkShape(i, s.Edited); err != nil {
			return nil, err
		}
		copy(b.Source[i*size:], s.Source.Pix)
		copy(b.Edited[i*size:], s.Edited.Pix)
		b.Prompts[i] = s.Prompt
		b.Indices[i] = s.Index
	}
	return b, nil
}

func (b *EditBatchFlat) checkShape(i int, t *imgproc.Tensor) error {
	if t.Channels != b.Channels || t.Height != b.Height || t.Width != b.Width {
		return errors.Errorf("inconsistent image shape at example %d: expected [%d %d %d], got [%d %d %d]",
			i, b.Channels, b.Height, b.Width, t.Channels, t.Height, t.Width)
	}
	return nil
}

// Bytes returns the memory held by the image buffers.
func (b *EditBatchFlat) Bytes() uint64 {
	return uint64(len(b.Source)+len(b.Edited)) * 4
}

// Sample returns example i of the batch as tensors sharing the batch buffers.
func (b *EditBatchFlat) Sample(i int) *EditSample {
	size := b.Channels * b.Height * b.Width
	return &EditSample{
		Index:  b.Indices[i],
		Source: &imgproc.Tensor{Channels: b.Channels, Height: b.Height, Width: b.Width, Pix: b.Source[i*size : (i+1)*size]},
		Edited: &imgproc.Tensor{Channels: b.Channels, Height: b.Height, Width: b.Width, Pix: b.Edited[i*size : (i+1)*size]},
		Prompt: b.Prompts[i],
	}
}

// ToGomlxTensors converts the batch to gomlx tensors shaped [B, C, H, W].
func (b *EditBatchFlat) ToGomlxTensors() (source *tensors.Tensor, edited *tensors.Tensor, err error) {
	if b.BatchSize == 0 {
		return nil, nil, errors.New("cannot convert an empty batch to tensors")
	}
	source = tensors.FromFlatDataAndDimensions(b.Source, b.BatchSize, b.Channels, b.Height, b.Width)
	edited = tensors.FromFlatDataAndDimensions(b.Edited, b.BatchSize, b.Channels, b.Height, b.Width)
	return source, edited, nil
}

// EvalBatchFlat stores a batch of evaluation samples: source images in a flat
// [B, C, H, W] buffer plus their prompts.
type EvalBatchFlat struct {
	Source        []float32
	Edits         []string
	InputPrompts  []string
	OutputPrompts []string
	Indices       []int
	BatchSize     int
	Channels      int
	Height        int
	Width         int
}

// MakeEvalBatchFlat flattens evaluation samples into a contiguous buffer.
func MakeEvalBatchFlat(samples []*EvalSample) (*EvalBatchFlat, error) {
	if len(samples) == 0 {
		return &EvalBatchFlat{}, nil
	}
	first := samples[0].Source
	size := first.Len()
	b := &EvalBatchFlat{
		Source:        make([]float32, len(samples)*size),
		Edits:         make([]string, len(samples)),
		InputPrompts:  make([]string, len(samples)),
		OutputPrompts: make([]string, len(samples)),
		Indices:       make([]int, len(samples)),
		BatchSize:     len(samples),
		Channels:      first.Channels,
		Height:        first.Height,
		Width:         first.Width,
	}
	for i, s := range samples {
		t := s.Source
		if t.Channels != b.Channels || t.Height != b.Height || t.Width != b.Width {
			return nil, errors.Errorf("inconsistent image shape at example %d", i)
		}
		copy(b.Source[i*size:], t.Pix)
		b.Edits[i] = s.Edit
		b.InputPrompts[i] = s.InputPrompt
		b.OutputPrompts[i] = s.OutputPrompt
		b.Indices[i] = s.Index
	}
	return b, nil
}

// ToGomlxTensor converts the source images to a gomlx tensor shaped [B, C, H, W].
func (b *EvalBatchFlat) ToGomlxTensor() (*tensors.Tensor, error) {
	if b.BatchSize == 0 {
		return nil, errors.New("cannot convert an empty batch to tensors")
	}
	return tensors.FromFlatDataAndDimensions(b.Source, b.BatchSize, b.Channels, b.Height, b.Width), nil
}
