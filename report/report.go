// Package report summarises edit datasets and writes histogram plots of their
// manifests and of augmented image tensors.
package report

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/Xiaoyao-Li/instruct-pix2pix/datasets"
	"github.com/Xiaoyao-Li/instruct-pix2pix/imgproc"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Default plot size.
var (
	PlotWidth  = 6 * vg.Inch
	PlotHeight = 4 * vg.Inch
)

// Summary describes a dataset split.
type Summary struct {
	Name      string
	Entries   int
	BatchSize int
	Channels  int
	Height    int
	Width     int
	// BatchBytes is the memory taken by one full batch of source and edited images.
	BatchBytes uint64
}

// Summarize computes the summary of a training dataset for a given batch size
// and crop resolution.
func Summarize(ds datasets.Dataset, batchSize, res int) Summary {
	return Summary{
		Name:       ds.Name(),
		Entries:    ds.Len(),
		BatchSize:  batchSize,
		Channels:   imgproc.Channels,
		Height:     res,
		Width:      res,
		BatchBytes: 2 * uint64(batchSize*imgproc.Channels*res*res) * 4,
	}
}

// Batches returns the number of batches in one epoch, counting a final partial batch.
func (s Summary) Batches() int {
	if s.BatchSize <= 0 {
		return 0
	}
	return (s.Entries + s.BatchSize - 1) / s.BatchSize
}

// Write prints a human readable summary.
func (s Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s: %s entries, %s batches of %d, image [%d %d %d], %s per batch\n",
		s.Name, humanize.Comma(int64(s.Entries)), humanize.Comma(int64(s.Batches())), s.BatchSize,
		s.Channels, s.Height, s.Width, humanize.IBytes(s.BatchBytes))
	return err
}

// Throughput accumulates what was decoded over a run of yielded batches.
type Throughput struct {
	Batches  int
	Examples int
	Bytes    uint64
	Elapsed  time.Duration
}

// Add records one decoded batch.
func (t *Throughput) Add(b *datasets.EditBatchFlat) {
	t.Batches++
	t.Examples += b.BatchSize
	t.Bytes += b.Bytes()
}

// Write prints the totals and the decoding rate.
func (t Throughput) Write(w io.Writer) error {
	rate := 0.0
	if t.Elapsed > 0 {
		rate = float64(t.Examples) / t.Elapsed.Seconds()
	}
	_, err := fmt.Fprintf(w, "%s batches, %s examples, %s decoded in %s (%.1f examples/s)\n",
		humanize.Comma(int64(t.Batches)), humanize.Comma(int64(t.Examples)), humanize.IBytes(t.Bytes),
		t.Elapsed.Round(time.Millisecond), rate)
	return err
}

// PlotFrameSpans writes a histogram of the number of frames between the
// before and after images of EPIC records.
func PlotFrameSpans(records []datasets.EpicRecord, path string) error {
	values := make(plotter.Values, len(records))
	for i, r := range records {
		values[i] = float64(r.Span())
	}
	return saveHistogram(values, "Frames between before and after images", "frames", path)
}

// PlotSeedCounts writes a histogram of the number of rendered seeds per prompt.
func PlotSeedCounts(entries []datasets.SeedEntry, path string) error {
	values := make(plotter.Values, len(entries))
	for i, e := range entries {
		values[i] = float64(len(e.Seeds))
	}
	return saveHistogram(values, "Seeds per prompt", "seeds", path)
}

// PlotPixelHistogram writes the value distribution of a normalised image
// tensor, one outline per colour channel.
func PlotPixelHistogram(t *imgproc.Tensor, path string) error {
	if t == nil || t.Len() == 0 {
		return errors.New("empty tensor")
	}
	p := plot.New()
	p.Title.Text = "Normalised pixel values"
	p.X.Label.Text = "value"
	p.Y.Label.Text = "count"
	p.X.Min, p.X.Max = -1, 1

	colors := []color.Color{
		color.RGBA{R: 200, G: 30, B: 30, A: 255},
		color.RGBA{R: 30, G: 160, B: 30, A: 255},
		color.RGBA{R: 20, G: 80, B: 200, A: 255},
	}
	names := []string{"r", "g", "b"}
	for c := 0; c < t.Channels && c < len(colors); c++ {
		plane := t.Plane(c)
		values := make(plotter.Values, len(plane))
		for i, v := range plane {
			values[i] = float64(v)
		}
		h, err := plotter.NewHist(values, 32)
		if err != nil {
			return errors.Wrapf(err, "channel %d histogram", c)
		}
		h.FillColor = nil
		h.LineStyle.Color = colors[c]
		p.Add(h)
		p.Legend.Add(names[c], h)
	}
	return save(p, path)
}

func saveHistogram(values plotter.Values, title, xLabel, path string) error {
	if len(values) == 0 {
		return errors.Errorf("no values to plot for %q", title)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(values, histogramBins(values))
	if err != nil {
		return errors.Wrapf(err, "failed to build histogram %q", title)
	}
	h.FillColor = color.RGBA{R: 120, G: 120, B: 120, A: 180}
	p.Add(h)
	return save(p, path)
}

// histogramBins picks one bin per distinct value for small ranges, capped at 50.
func histogramBins(values plotter.Values) int {
	sorted := append(plotter.Values(nil), values...)
	sort.Float64s(sorted)
	distinct := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			distinct++
		}
	}
	return min(distinct, 50)
}

func save(p *plot.Plot, path string) error {
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	if err := p.Save(PlotWidth, PlotHeight, path); err != nil {
		return errors.Wrapf(err, "failed to save plot %q", path)
	}
	return nil
}
