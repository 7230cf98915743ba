package datasets

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestEpicEditDataset_Splits(t *testing.T) {
	dir := buildEpicFixture(t, 20)

	seen := make(map[string]Split)
	total := 0
	for _, split := range []Split{Train, Val, Test} {
		cfg := testConfig(dir)
		cfg.Split = split
		ds, err := NewEpicEditDataset(cfg)
		if err != nil {
			t.Fatalf("NewEpicEditDataset(%s) failed: %v", split, err)
		}
		total += ds.Len()
		for _, r := range ds.Records() {
			if prev, ok := seen[r.Narration]; ok {
				t.Fatalf("record %q in both %s and %s", r.Narration, prev, split)
			}
			seen[r.Narration] = split
		}
		if ds.Info["version"] != "test" {
			t.Fatalf("info.json not loaded: %v", ds.Info)
		}
	}
	if total != 20 || len(seen) != 20 {
		t.Fatalf("splits should partition all 20 records, got total=%d unique=%d", total, len(seen))
	}

	cfg := testConfig(dir)
	a, err := NewEpicEditDataset(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != 18 {
		t.Fatalf("expected 18 train records, got %d", a.Len())
	}
	b, err := NewEpicEditDataset(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(a.Records(), b.Records()) {
		t.Fatalf("same split seed should give the same split order")
	}
}

func TestEpicEditDataset_Example(t *testing.T) {
	dir := buildEpicFixture(t, 20)
	ds, err := NewEpicEditDataset(testConfig(dir))
	if err != nil {
		t.Fatalf("NewEpicEditDataset failed: %v", err)
	}

	rec, err := ds.Record(3)
	if err != nil {
		t.Fatalf("Record(3) error: %v", err)
	}
	ex, err := ds.Example(3)
	if err != nil {
		t.Fatalf("Example(3) error: %v", err)
	}
	if ex.Prompt != rec.Narration || ex.Index != 3 {
		t.Fatalf("unexpected example prompt %q index %d, want %q", ex.Prompt, ex.Index, rec.Narration)
	}
	if ex.Source.Channels != 3 || ex.Source.Height != 8 || ex.Source.Width != 8 {
		t.Fatalf("unexpected source shape %dx%dx%d", ex.Source.Channels, ex.Source.Height, ex.Source.Width)
	}
	if mean(ex.Source) > -0.5 {
		t.Fatalf("source should be the dark start frame, mean=%v", mean(ex.Source))
	}
	if mean(ex.Edited) < 0.5 {
		t.Fatalf("edited should be the light stop frame, mean=%v", mean(ex.Edited))
	}

	if _, err := ds.Example(-1); err == nil {
		t.Fatalf("expected error for negative index")
	}
	if _, err := ds.Example(ds.Len()); err == nil {
		t.Fatalf("expected error for index past the end")
	}
}

func TestEpicEditDataset_YieldEpoch(t *testing.T) {
	dir := buildEpicFixture(t, 20)
	ds, err := NewEpicEditDataset(testConfig(dir))
	if err != nil {
		t.Fatalf("NewEpicEditDataset failed: %v", err)
	}

	// 18 train records in batches of 4: 4, 4, 4, 4, 2.
	var sizes []int
	seen := make(map[int]bool)
	for {
		spec, inputs, labels, err := ds.Yield()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Yield error: %v", err)
		}
		batch, ok := spec.(*EditBatchFlat)
		if !ok {
			t.Fatalf("spec should be *EditBatchFlat, got %T", spec)
		}
		if len(inputs) != 1 || len(labels) != 1 {
			t.Fatalf("expected one input and one label tensor")
		}
		dims := inputs[0].Shape().Dimensions
		if !slices.Equal(dims, []int{batch.BatchSize, 3, 8, 8}) {
			t.Fatalf("unexpected input dims %v", dims)
		}
		if !slices.Equal(labels[0].Shape().Dimensions, dims) {
			t.Fatalf("labels dims %v differ from inputs %v", labels[0].Shape().Dimensions, dims)
		}
		if len(batch.Prompts) != batch.BatchSize {
			t.Fatalf("expected %d prompts, got %d", batch.BatchSize, len(batch.Prompts))
		}
		for _, idx := range batch.Indices {
			seen[idx] = true
		}
		sizes = append(sizes, batch.BatchSize)
	}
	if !slices.Equal(sizes, []int{4, 4, 4, 4, 2}) {
		t.Fatalf("unexpected batch sizes %v", sizes)
	}
	if len(seen) != 18 {
		t.Fatalf("epoch should visit all 18 examples, visited %d", len(seen))
	}

	if _, _, _, err := ds.Yield(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after the epoch, got %v", err)
	}
	ds.Reset()
	if _, _, _, err := ds.Yield(); err != nil {
		t.Fatalf("Yield after Reset failed: %v", err)
	}
}

func TestEpicEditDataset_ShuffleOrder(t *testing.T) {
	dir := buildEpicFixture(t, 20)
	ds, err := NewEpicEditDataset(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	ds.Shuffle(5)
	var order []int
	for {
		spec, _, _, err := ds.Yield()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		order = append(order, spec.(*EditBatchFlat).Indices...)
	}
	sorted := slices.Clone(order)
	slices.Sort(sorted)
	for i, v := range sorted {
		if v != i {
			t.Fatalf("shuffled epoch is not a permutation: %v", order)
		}
	}
	if slices.IsSorted(order) {
		t.Fatalf("Shuffle should change the visiting order")
	}
}

func TestEpicEditDataset_Deterministic(t *testing.T) {
	dir := buildEpicFixture(t, 20)
	cfg := testConfig(dir)
	cfg.MinResizeRes, cfg.MaxResizeRes, cfg.CropRes, cfg.FlipProb = 8, 12, 6, 0.5
	cfg.Seed = 99

	indices := []int{0, 5, 7, 11}
	var batches []*EditBatchFlat
	for range 2 {
		ds, err := NewEpicEditDataset(cfg)
		if err != nil {
			t.Fatal(err)
		}
		b, err := ds.Batch(indices)
		if err != nil {
			t.Fatalf("Batch error: %v", err)
		}
		if b.Height != 6 || b.Width != 6 {
			t.Fatalf("crop should give 6x6 images, got %dx%d", b.Height, b.Width)
		}
		batches = append(batches, b)
	}
	if !slices.Equal(batches[0].Source, batches[1].Source) || !slices.Equal(batches[0].Edited, batches[1].Edited) {
		t.Fatalf("same seed should produce identical batches")
	}
	if !slices.Equal(batches[0].Indices, indices) {
		t.Fatalf("batch indices %v, want %v", batches[0].Indices, indices)
	}
}

func TestEpicEditDataset_MissingFrame(t *testing.T) {
	dir := buildEpicFixture(t, 20)
	ds, err := NewEpicEditDataset(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	rec, _ := ds.Record(0)
	if err := os.Remove(FramePath(dir, rec, rec.Stop)); err != nil {
		t.Fatal(err)
	}
	if _, err := ds.Example(0); err == nil {
		t.Fatalf("expected error for missing frame")
	}
	if _, err := ds.Batch([]int{1, 0}); err == nil {
		t.Fatalf("expected Batch error for missing frame")
	}
}

func TestEpicEditDataset_BadConfig(t *testing.T) {
	dir := buildEpicFixture(t, 3)

	cfg := testConfig(dir)
	cfg.Proportions = Proportions{0.5, 0.5, 0.5}
	if _, err := NewEpicEditDataset(cfg); err == nil {
		t.Fatalf("expected error for proportions not summing to 1")
	}

	cfg = testConfig(dir)
	cfg.CropRes = 16
	if _, err := NewEpicEditDataset(cfg); err == nil {
		t.Fatalf("expected error for crop larger than resize")
	}

	cfg = testConfig(filepath.Join(dir, "missing"))
	if _, err := NewEpicEditDataset(cfg); err == nil {
		t.Fatalf("expected error for missing dataset directory")
	}
}
