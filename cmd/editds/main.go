// Command editds inspects the edit datasets: it prints split summaries, writes
// previews of augmented before/after pairs and plots manifest statistics.
//
// Usage:
//
//	editds -kind epic -path /data/epic-kitchens -split val -preview 16 -plots
//	editds -config edit.json -kind edit -print-effective-config
//	editds -kind edit -path /data/clip-filtered -batches 20 -workers 8
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Xiaoyao-Li/instruct-pix2pix/datasets"
	"github.com/Xiaoyao-Li/instruct-pix2pix/imgproc"
	"github.com/Xiaoyao-Li/instruct-pix2pix/report"
	"github.com/disintegration/imaging"
	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON dataset config; flags set explicitly override it")
	kind := flag.String("kind", "edit", "dataset kind: 'epic', 'edit' or 'eval'")
	path := flag.String("path", "", "dataset root directory")
	split := flag.String("split", "train", "split to load: 'train', 'val' or 'test'")
	seed := flag.Int64("seed", 0, "augmentation random seed (0 = time based)")
	splitSeed := flag.Int64("split-seed", 0, "seed of the EPIC manifest shuffle done before splitting")
	batchSize := flag.Int("batch-size", 32, "batch size")
	minRes := flag.Int("min-res", 256, "minimum random resize resolution")
	maxRes := flag.Int("max-res", 256, "maximum random resize resolution")
	cropRes := flag.Int("crop-res", 256, "random crop resolution")
	flipProb := flag.Float64("flip-prob", 0.0, "probability of a horizontal flip")
	workers := flag.Int("workers", 0, "concurrent image decoders (0 = GOMAXPROCS)")
	evalRes := flag.Int("res", datasets.DefaultEvalRes, "image resolution of the eval dataset")
	batches := flag.Int("batches", 0, "yield this many batches and report decoding throughput")
	preview := flag.Int("preview", 0, "write this many augmented examples as JPEG previews")
	outDir := flag.String("out", "preview", "output directory for previews and plots")
	plots := flag.Bool("plots", false, "write manifest and pixel histograms to the output directory")
	printEffectiveConfig := flag.Bool("print-effective-config", false, "print the effective (JSON+CLI merged) configuration and exit")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
	slog.SetDefault(logger)

	cfg := datasets.DefaultConfig(*path)
	if *configPath != "" {
		var err error
		cfg, err = datasets.LoadConfig(*configPath)
		if err != nil {
			fatal(logger, "failed to load config", err)
		}
		logger.Info("loaded config", "path", *configPath)
	}

	// Flags override the JSON config only when set explicitly.
	var parseErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "path":
			cfg.Path = *path
		case "split":
			if s, err := datasets.ParseSplit(*split); err != nil {
				parseErr = err
			} else {
				cfg.Split = s
			}
		case "seed":
			cfg.Seed = *seed
		case "split-seed":
			cfg.SplitSeed = *splitSeed
		case "batch-size":
			cfg.BatchSize = *batchSize
		case "min-res":
			cfg.MinResizeRes = *minRes
		case "max-res":
			cfg.MaxResizeRes = *maxRes
		case "crop-res":
			cfg.CropRes = *cropRes
		case "flip-prob":
			cfg.FlipProb = *flipProb
		case "workers":
			cfg.Workers = *workers
		}
	})
	if parseErr != nil {
		fatal(logger, "invalid flag", parseErr)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
		logger.Debug("picked time based seed", "seed", cfg.Seed)
	}
	cfg.Logger = logger

	if *printEffectiveConfig {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fatal(logger, "failed to marshal config", err)
		}
		fmt.Println(string(out))
		return
	}

	if *preview > 0 || *plots {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			fatal(logger, "failed to create output directory", err)
		}
	}

	var err error
	switch *kind {
	case "epic":
		err = runEpic(logger, cfg, *batches, *preview, *outDir, *plots)
	case "edit":
		err = runEdit(logger, cfg, *batches, *preview, *outDir, *plots)
	case "eval":
		if *batches > 0 {
			logger.Warn("-batches is ignored for eval datasets")
		}
		err = runEval(logger, cfg, *evalRes, *preview, *outDir)
	default:
		err = errors.Errorf("unknown dataset kind %q", *kind)
	}
	if err != nil {
		fatal(logger, "editds failed", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}

func runEpic(logger *slog.Logger, cfg datasets.Config, batches, preview int, outDir string, plots bool) error {
	ds, err := datasets.NewEpicEditDataset(cfg)
	if err != nil {
		return err
	}
	if err := report.Summarize(ds, ds.Config.BatchSize, ds.Config.CropRes).Write(os.Stdout); err != nil {
		return err
	}
	if plots && ds.Len() > 0 {
		path := filepath.Join(outDir, "frame_spans.png")
		if err := report.PlotFrameSpans(ds.Records(), path); err != nil {
			return err
		}
		logger.Info("wrote plot", "path", path)
	}
	if err := writePairPreviews(logger, ds, preview, outDir, plots); err != nil {
		return err
	}
	return timeBatches(logger, ds, batches, outDir, plots)
}

func runEdit(logger *slog.Logger, cfg datasets.Config, batches, preview int, outDir string, plots bool) error {
	ds, err := datasets.NewEditDataset(cfg)
	if err != nil {
		return err
	}
	if err := report.Summarize(ds, ds.Config.BatchSize, ds.Config.CropRes).Write(os.Stdout); err != nil {
		return err
	}
	if plots && ds.Len() > 0 {
		path := filepath.Join(outDir, "seed_counts.png")
		if err := report.PlotSeedCounts(ds.Entries(), path); err != nil {
			return err
		}
		logger.Info("wrote plot", "path", path)
	}
	if err := writePairPreviews(logger, ds, preview, outDir, plots); err != nil {
		return err
	}
	return timeBatches(logger, ds, batches, outDir, plots)
}

func runEval(logger *slog.Logger, cfg datasets.Config, res, preview int, outDir string) error {
	ds, err := datasets.NewEditEvalDataset(cfg, res)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d entries at %dx%d\n", ds.Name(), ds.Len(), ds.Res, ds.Res)

	n := min(preview, ds.Len())
	if n == 0 {
		return nil
	}
	bar := newBar(n, "Writing eval previews")
	for i := range n {
		ex, err := ds.Example(i)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, fmt.Sprintf("eval_%05d.jpg", i))
		if err := imaging.Save(ex.Source.ToImage(), path); err != nil {
			return errors.Wrapf(err, "failed to write %q", path)
		}
		logger.Debug("eval example", "index", i, "edit", ex.Edit, "input", ex.InputPrompt, "output", ex.OutputPrompt)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return nil
}

// writePairPreviews saves the first n examples as side by side before|after JPEGs.
func writePairPreviews(logger *slog.Logger, ds datasets.Dataset, n int, outDir string, plots bool) error {
	n = min(n, ds.Len())
	if n == 0 {
		return nil
	}
	bar := newBar(n, "Writing previews")
	for i := range n {
		ex, err := ds.Example(i)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, fmt.Sprintf("pair_%05d.jpg", i))
		if err := imaging.Save(sideBySide(ex.Source, ex.Edited), path); err != nil {
			return errors.Wrapf(err, "failed to write %q", path)
		}
		logger.Debug("example", "index", i, "prompt", ex.Prompt)
		if plots && i == 0 {
			if err := report.PlotPixelHistogram(ex.Edited, filepath.Join(outDir, "pixels.png")); err != nil {
				return err
			}
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return nil
}

// timeBatches yields up to n batches through Take and prints the decoding
// throughput. With plots, the first edited image of the first batch is
// histogrammed.
func timeBatches(logger *slog.Logger, ds datasets.Dataset, n int, outDir string, plots bool) error {
	if n <= 0 {
		return nil
	}
	take, err := datasets.Take(ds, n)
	if err != nil {
		return err
	}
	var tp report.Throughput
	start := time.Now()
	for {
		spec, _, _, err := take.Yield()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "batch %d of %s", take.Batches(), take.Name())
		}
		batch := spec.(*datasets.EditBatchFlat)
		tp.Add(batch)
		if plots && tp.Batches == 1 {
			path := filepath.Join(outDir, "batch_pixels.png")
			if err := report.PlotPixelHistogram(batch.Sample(0).Edited, path); err != nil {
				return err
			}
			logger.Info("wrote plot", "path", path)
		}
	}
	tp.Elapsed = time.Since(start)
	logger.Debug("timed batches", "dataset", take.Name(), "batches", take.Batches(), "examples", take.Examples())
	return tp.Write(os.Stdout)
}

func sideBySide(before, after *imgproc.Tensor) image.Image {
	dst := imaging.New(before.Width+after.Width, max(before.Height, after.Height), image.Black)
	dst = imaging.Paste(dst, before.ToImage(), image.Pt(0, 0))
	return imaging.Paste(dst, after.ToImage(), image.Pt(before.Width, 0))
}

func newBar(n int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
	)
}
