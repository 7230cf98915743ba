package datasets

import (
	"github.com/Xiaoyao-Li/instruct-pix2pix/imgproc"
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// This package provides three dataset implementations that read paired
// before/after images plus a text instruction from disk and present them as
// examples suitable for training an image-editing diffusion model.
//
// All datasets use lazy loading - they keep only the manifest in memory and
// read, resize and augment the images when an example or batch is requested.
//
// Layout and intended usage:
//
// EpicEditDataset
//   - Reads EPIC100_annotations.csv (participant, clip, start/stop frame, narration)
//   - Before image is the start frame, after image the stop frame, prompt the narration
//
// EditDataset
//   - Reads seeds.json, a list of [prompt directory, [seed...]] pairs
//   - Each example picks one rendered seed at random and the edit instruction
//     from the directory's prompt.json
//
// EditEvalDataset
//   - Same manifest as EditDataset but yields only the resized source image
//     with the edit, input and output prompts
//
// Every manifest is partitioned into train/val/test by cumulative proportions
// once at construction (see Proportions.Range).

// EditSample is one augmented training pair.
type EditSample struct {
	// Index of the example within the split.
	Index int
	// Source is the "before" image the model is conditioned on.
	Source *imgproc.Tensor
	// Edited is the "after" image the model learns to produce.
	Edited *imgproc.Tensor
	// Prompt is the edit instruction or narration.
	Prompt string
}

// Dataset is implemented by the training datasets in order to interact with
// GoMLX training loops and batching utilities.
type Dataset interface {
	Len() int
	Example(i int) (*EditSample, error)
	Batch(indices []int) (*EditBatchFlat, error)
	Shuffle(seed int64)

	// To implement gomlx's train.Dataset interface
	Name() string
	Yield() (any, []*tensors.Tensor, []*tensors.Tensor, error)
	Reset()
}
