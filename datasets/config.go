package datasets

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/Xiaoyao-Li/instruct-pix2pix/imgproc"
	"github.com/pkg/errors"
)

// Config holds the options shared by all edit datasets.
type Config struct {
	// Path is the dataset root directory.
	Path string `json:"path"`

	// Split selects which partition of the manifest is exposed.
	Split Split `json:"split"`

	// Proportions of train/val/test. Zero value means DefaultProportions.
	Proportions Proportions `json:"splits"`

	// Augmentation: each sample is resized to a random square resolution in
	// [MinResizeRes, MaxResizeRes], cropped to CropRes and flipped with FlipProb.
	MinResizeRes int     `json:"min_resize_res"`
	MaxResizeRes int     `json:"max_resize_res"`
	CropRes      int     `json:"crop_res"`
	FlipProb     float64 `json:"flip_prob"`

	// BatchSize for Yield. Defaults to 32.
	BatchSize int `json:"batch_size"`

	// Seed for the augmentation and seed-selection RNG. Zero picks a time based seed.
	Seed int64 `json:"seed"`

	// SplitSeed seeds the manifest shuffle done before splitting (EPIC only).
	// All splits built from the same manifest and SplitSeed are disjoint.
	SplitSeed int64 `json:"split_seed"`

	// Workers bounds concurrent image decoding in Batch. Zero means GOMAXPROCS.
	Workers int `json:"workers"`

	// Logger receives construction messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-"`
}

// DefaultConfig returns the configuration used for 256px training.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		Split:        Train,
		Proportions:  DefaultProportions,
		MinResizeRes: 256,
		MaxResizeRes: 256,
		CropRes:      256,
		FlipProb:     0.0,
		BatchSize:    32,
	}
}

// LoadConfig reads a JSON config file. Fields missing from the file keep the
// values from DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig("")
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %q", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %q", path)
	}
	return cfg, nil
}

// withDefaults fills zero fields with their defaults.
func (c Config) withDefaults() Config {
	def := DefaultConfig(c.Path)
	if c.Proportions == (Proportions{}) {
		c.Proportions = def.Proportions
	}
	if c.MinResizeRes == 0 {
		c.MinResizeRes = def.MinResizeRes
	}
	if c.MaxResizeRes == 0 {
		c.MaxResizeRes = def.MaxResizeRes
	}
	if c.CropRes == 0 {
		c.CropRes = def.CropRes
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Pipeline returns the augmentation pipeline described by the config.
func (c Config) Pipeline() imgproc.Pipeline {
	return imgproc.Pipeline{
		MinResizeRes: c.MinResizeRes,
		MaxResizeRes: c.MaxResizeRes,
		CropRes:      c.CropRes,
		FlipProb:     c.FlipProb,
	}
}

// Validate checks the configuration for training datasets.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("dataset path is empty")
	}
	if c.Split < Train || c.Split > Test {
		return errors.Errorf("invalid split %d", int(c.Split))
	}
	if err := c.Proportions.Validate(); err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return c.Pipeline().Validate()
}
