package datasets

import (
	"math/rand"
	"path/filepath"

	"github.com/gomlx/gomlx/pkg/ml/train"
)

// EditDataset serves pairs from a generated image-edit corpus. seeds.json lists
// prompt directories with the seeds rendered for each; every example draws one
// of those seeds at random and pairs <seed>_0.jpg with <seed>_1.jpg under the
// edit instruction from prompt.json.
type EditDataset struct {
	*pairDataset

	// Config the dataset was built with, defaults filled in.
	Config Config

	entries []SeedEntry
}

var _ train.Dataset = (*EditDataset)(nil)

// NewEditDataset loads seeds.json from cfg.Path and keeps the slice selected by
// cfg.Split. The manifest order is kept as is.
func NewEditDataset(cfg Config) (*EditDataset, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	entries, err := loadSeedSplit(cfg)
	if err != nil {
		return nil, err
	}
	ds := &EditDataset{Config: cfg, entries: entries}
	ds.pairDataset = newPairDataset("EditDataset/"+cfg.Split.String(), len(entries), cfg, ds.pairAt)
	return ds, nil
}

func loadSeedSplit(cfg Config) ([]SeedEntry, error) {
	cfg.Logger.Info("constructing subset", "split", cfg.Split.String(), "path", cfg.Path)
	entries, err := LoadSeeds(filepath.Join(cfg.Path, SeedsFile))
	if err != nil {
		return nil, err
	}
	lo, hi := cfg.Proportions.Range(cfg.Split, len(entries))
	entries = entries[lo:hi]
	cfg.Logger.Info("subset constructed", "split", cfg.Split.String(), "samples", len(entries))
	return entries, nil
}

// pickSeed draws one of the entry's seeds uniformly.
func pickSeed(e SeedEntry, rng *rand.Rand) string {
	return e.Seeds[rng.Intn(len(e.Seeds))]
}

func (d *EditDataset) pairAt(i int, rng *rand.Rand) (pairRef, error) {
	e := d.entries[i]
	seed := pickSeed(e, rng)
	prompt, err := LoadPrompt(filepath.Join(d.Config.Path, e.Name), false)
	if err != nil {
		return pairRef{}, err
	}
	before, after := SeedImagePaths(d.Config.Path, e.Name, seed)
	return pairRef{before: before, after: after, prompt: prompt.Edit}, nil
}

// Entries returns the manifest entries of the split, in split order.
func (d *EditDataset) Entries() []SeedEntry {
	return append([]SeedEntry(nil), d.entries...)
}
