package datasets

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Xiaoyao-Li/instruct-pix2pix/imgproc"
	"github.com/disintegration/imaging"
)

// Gray levels used to tell before and after images apart after decoding.
const (
	darkLevel  = 20
	lightLevel = 235
)

// writeCSV writes a CSV file with the given header and rows to path.
func writeCSV(t *testing.T, path, header string, rows []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create csv %s: %v", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(header + "\n"); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	for _, r := range rows {
		if _, err := f.WriteString(r + "\n"); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}
}

// writeJSON marshals v into path.
func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// writeJPEG writes a uniform gray w x h JPEG to path, creating directories.
func writeJPEG(t *testing.T, path string, w, h int, level uint8) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	img := imaging.New(w, h, color.NRGBA{R: level, G: level, B: level, A: 0xff})
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		t.Fatalf("failed to write image %s: %v", path, err)
	}
}

// mean returns the mean value of a tensor.
func mean(t *imgproc.Tensor) float64 {
	var sum float64
	for _, v := range t.Pix {
		sum += float64(v)
	}
	return sum / float64(len(t.Pix))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a small-resolution config rooted at dir.
func testConfig(dir string) Config {
	cfg := DefaultConfig(dir)
	cfg.MinResizeRes = 8
	cfg.MaxResizeRes = 8
	cfg.CropRes = 8
	cfg.BatchSize = 4
	cfg.Seed = 1
	cfg.Workers = 2
	cfg.Logger = quietLogger()
	return cfg
}

// buildEpicFixture writes an EPIC style dataset with n annotated intervals.
// Start frames are dark and stop frames light.
func buildEpicFixture(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, EpicInfoFile), map[string]any{"version": "test", "fps": 50})

	rows := make([]string, n)
	for i := range n {
		r := EpicRecord{
			Participant: fmt.Sprintf("P%02d", i%3+1),
			Clip:        fmt.Sprintf("P%02d_%02d", i%3+1, i/3),
			Start:       10 * i,
			Stop:        10*i + 5,
			Narration:   fmt.Sprintf("action %d", i),
		}
		rows[i] = fmt.Sprintf("%s,%s,%d,%d,%q,x", r.Participant, r.Clip, r.Start, r.Stop, r.Narration)
		writeJPEG(t, FramePath(dir, r, r.Start), 12, 10, darkLevel)
		writeJPEG(t, FramePath(dir, r, r.Stop), 12, 10, lightLevel)
	}
	writeCSV(t, filepath.Join(dir, EpicAnnotationsFile),
		"participant_id,video_id,start_frame,stop_frame,narration,verb", rows)
	return dir
}

// buildSeedFixture writes a generated-corpus dataset with n prompt directories,
// each rendered with seeds 11 and 22. Seed 11 has a dark source and light
// target, seed 22 the reverse.
func buildSeedFixture(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	entries := make([]SeedEntry, n)
	for i := range n {
		name := fmt.Sprintf("prompt_%03d", i)
		entries[i] = SeedEntry{Name: name, Seeds: []string{"11", "22"}}
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		writeJSON(t, filepath.Join(dir, name, PromptFile), map[string]string{
			"edit":   fmt.Sprintf("make it %d", i),
			"input":  fmt.Sprintf("a photo %d", i),
			"output": fmt.Sprintf("an edited photo %d", i),
		})
		b, a := SeedImagePaths(dir, name, "11")
		writeJPEG(t, b, 10, 10, darkLevel)
		writeJPEG(t, a, 10, 10, lightLevel)
		b, a = SeedImagePaths(dir, name, "22")
		writeJPEG(t, b, 10, 10, lightLevel)
		writeJPEG(t, a, 10, 10, darkLevel)
	}
	writeJSON(t, filepath.Join(dir, SeedsFile), entries)
	return dir
}
