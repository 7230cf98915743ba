package imgproc

import (
	"image"
	"math/rand"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Load decodes a JPEG or PNG image from disk.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load image %q", path)
	}
	return img, nil
}

// Resize scales img to a res x res square with a Lanczos filter. The aspect
// ratio is not preserved.
func Resize(img image.Image, res int) *image.NRGBA {
	return imaging.Resize(img, res, res, imaging.Lanczos)
}

// Pipeline is the augmentation applied to a before/after pair. Both images
// always receive the same resize, the same crop window and the same flip so
// that pixel correspondence between them is kept.
type Pipeline struct {
	MinResizeRes int
	MaxResizeRes int
	CropRes      int
	FlipProb     float64
}

// Validate checks the pipeline parameters are consistent.
func (p Pipeline) Validate() error {
	if p.MinResizeRes <= 0 || p.MaxResizeRes <= 0 || p.CropRes <= 0 {
		return errors.Errorf("resolutions must be positive: min_resize_res=%d max_resize_res=%d crop_res=%d",
			p.MinResizeRes, p.MaxResizeRes, p.CropRes)
	}
	if p.MinResizeRes > p.MaxResizeRes {
		return errors.Errorf("min_resize_res %d is larger than max_resize_res %d", p.MinResizeRes, p.MaxResizeRes)
	}
	if p.CropRes > p.MinResizeRes {
		return errors.Errorf("crop_res %d is larger than min_resize_res %d", p.CropRes, p.MinResizeRes)
	}
	if p.FlipProb < 0 || p.FlipProb > 1 {
		return errors.Errorf("flip_prob %g outside [0, 1]", p.FlipProb)
	}
	return nil
}

// Window describes the random choices made for one sample.
type Window struct {
	Res       int
	Top, Left int
	Size      int
	Flip      bool
}

// Sample draws the resize resolution, crop offset and flip decision for one
// sample. Draw order is resolution, crop row, crop column, flip.
func (p Pipeline) Sample(rng *rand.Rand) Window {
	w := Window{Res: p.MinResizeRes, Size: p.CropRes}
	if p.MaxResizeRes > p.MinResizeRes {
		w.Res += rng.Intn(p.MaxResizeRes - p.MinResizeRes + 1)
	}
	if w.Res > w.Size {
		w.Top = rng.Intn(w.Res - w.Size + 1)
		w.Left = rng.Intn(w.Res - w.Size + 1)
	}
	w.Flip = rng.Float64() < p.FlipProb
	return w
}

// Apply resizes, crops and flips a single image according to w.
func (w Window) Apply(img image.Image) (*image.NRGBA, error) {
	if w.Size > w.Res {
		return nil, errors.Errorf("crop size %d larger than resized image %d", w.Size, w.Res)
	}
	out := Resize(img, w.Res)
	if w.Size != w.Res {
		out = imaging.Crop(out, image.Rect(w.Left, w.Top, w.Left+w.Size, w.Top+w.Size))
	}
	if w.Flip {
		out = imaging.FlipH(out)
	}
	return out, nil
}

// ApplyPair runs the pipeline jointly on the before image a and after image b
// and returns both as normalised tensors.
func (p Pipeline) ApplyPair(rng *rand.Rand, a, b image.Image) (*Tensor, *Tensor, error) {
	w := p.Sample(rng)
	outA, err := w.Apply(a)
	if err != nil {
		return nil, nil, err
	}
	outB, err := w.Apply(b)
	if err != nil {
		return nil, nil, err
	}
	return ToTensor(outA), ToTensor(outB), nil
}

// ResizeTensor resizes img to res x res and normalises it, without any random
// augmentation. Used for evaluation samples.
func ResizeTensor(img image.Image, res int) (*Tensor, error) {
	if res <= 0 {
		return nil, errors.Errorf("invalid resolution %d", res)
	}
	return ToTensor(Resize(img, res)), nil
}
