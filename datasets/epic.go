package datasets

import (
	"math/rand"
	"path/filepath"

	"github.com/gomlx/gomlx/pkg/ml/train"
)

// EpicEditDataset serves before/after frame pairs from EPIC-KITCHENS style
// egocentric video. Each annotated action interval becomes one example whose
// source is the start frame, edited image the stop frame and prompt the
// narration of the action.
type EpicEditDataset struct {
	*pairDataset

	// Config the dataset was built with, defaults filled in.
	Config Config

	// Info is the content of info.json.
	Info map[string]any

	records []EpicRecord
}

var _ train.Dataset = (*EpicEditDataset)(nil)

// NewEpicEditDataset loads info.json and EPIC100_annotations.csv from cfg.Path,
// shuffles the annotations with cfg.SplitSeed and keeps the slice selected by
// cfg.Split.
func NewEpicEditDataset(cfg Config) (*EpicEditDataset, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	info, err := LoadInfo(filepath.Join(cfg.Path, EpicInfoFile))
	if err != nil {
		return nil, err
	}
	records, err := LoadEpicAnnotations(filepath.Join(cfg.Path, EpicAnnotationsFile))
	if err != nil {
		return nil, err
	}

	// Shuffle before splitting so each split mixes participants; the fixed
	// seed keeps train/val/test disjoint across separately built datasets.
	shuffle := rand.New(rand.NewSource(cfg.SplitSeed))
	shuffle.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})
	lo, hi := cfg.Proportions.Range(cfg.Split, len(records))
	records = records[lo:hi]

	ds := &EpicEditDataset{Config: cfg, Info: info, records: records}
	ds.pairDataset = newPairDataset("EpicEditDataset/"+cfg.Split.String(), len(records), cfg, ds.pairAt)
	cfg.Logger.Info("constructed epic-kitchen edit dataset",
		"split", cfg.Split.String(), "entries", len(records), "path", cfg.Path)
	return ds, nil
}

func (d *EpicEditDataset) pairAt(i int, _ *rand.Rand) (pairRef, error) {
	r := d.records[i]
	return pairRef{
		before: FramePath(d.Config.Path, r, r.Start),
		after:  FramePath(d.Config.Path, r, r.Stop),
		prompt: r.Narration,
	}, nil
}

// Record returns the annotation behind split-local index i.
func (d *EpicEditDataset) Record(i int) (EpicRecord, error) {
	if err := d.checkIndex(i); err != nil {
		return EpicRecord{}, err
	}
	return d.records[i], nil
}

// Records returns the annotations of the split, in split order.
func (d *EpicEditDataset) Records() []EpicRecord {
	return append([]EpicRecord(nil), d.records...)
}
