// Package imgproc contains the image preprocessing applied to every edit sample:
// decode, square resize, joint random crop, joint random horizontal flip and
// normalisation to [-1, 1].
package imgproc

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Channels is the number of colour planes produced by ToTensor. Alpha is dropped
// and grayscale inputs are expanded to RGB.
const Channels = 3

// Tensor stores a normalised image as float32 values in channel-major (CHW)
// order, with r, g and b planes stored one after the other.
type Tensor struct {
	Channels int
	Height   int
	Width    int
	Pix      []float32
}

// NewTensor allocates a zeroed tensor of the given shape.
func NewTensor(channels, height, width int) *Tensor {
	return &Tensor{
		Channels: channels,
		Height:   height,
		Width:    width,
		Pix:      make([]float32, channels*height*width),
	}
}

// Len returns the number of values in the tensor.
func (t *Tensor) Len() int {
	return t.Channels * t.Height * t.Width
}

// At returns the value at channel c, row y, column x.
func (t *Tensor) At(c, y, x int) float32 {
	return t.Pix[(c*t.Height+y)*t.Width+x]
}

// Plane returns the pixel data for a single channel.
func (t *Tensor) Plane(c int) []float32 {
	n := t.Height * t.Width
	return t.Pix[c*n : (c+1)*n]
}

// ToTensor converts an image to a CHW tensor with values mapped from [0, 255]
// to [-1, 1] as 2*v/255 - 1.
func ToTensor(img image.Image) *Tensor {
	src, ok := img.(*image.NRGBA)
	if !ok || src.Rect.Min != (image.Point{}) {
		src = imaging.Clone(img)
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	t := NewTensor(Channels, h, w)
	plane := w * h
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			i := y*w + x
			t.Pix[i] = normalise(row[x*4])
			t.Pix[plane+i] = normalise(row[x*4+1])
			t.Pix[2*plane+i] = normalise(row[x*4+2])
		}
	}
	return t
}

// ToImage maps a normalised tensor back to an 8 bit image, clamping values
// outside [-1, 1]. Used to write previews of augmented samples.
func (t *Tensor) ToImage() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	plane := t.Width * t.Height
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			i := y*t.Width + x
			c := color.NRGBA{A: 0xff}
			c.R = denormalise(t.Pix[i])
			if t.Channels >= 3 {
				c.G = denormalise(t.Pix[plane+i])
				c.B = denormalise(t.Pix[2*plane+i])
			} else {
				c.G, c.B = c.R, c.R
			}
			dst.SetNRGBA(x, y, c)
		}
	}
	return dst
}

func normalise(v uint8) float32 {
	return 2*float32(v)/255 - 1
}

func denormalise(v float32) uint8 {
	v = (v + 1) * 255 / 2
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
