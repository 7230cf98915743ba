package main

// Example command that demonstrates loading the EPIC-KITCHENS and seed edit
// datasets, building a small batch of augmented pairs and converting it into
// gomlx tensors using the helpers provided in the package.
//
// Images are decoded lazily: constructing a dataset only reads the manifests,
// the before/after frames are opened when a batch is requested.
//
// Usage:
//   go run ./example -epic ../data/epic-kitchens -edit ../data/clip-filtered
//
// If a dataset root is missing the example prints a note and continues with
// the next one.

import (
	"flag"
	"fmt"
	"log"

	"github.com/Xiaoyao-Li/instruct-pix2pix/datasets"
)

func main() {
	epicRoot := flag.String("epic", "../data/epic-kitchens", "EPIC-KITCHENS edit dataset root")
	editRoot := flag.String("edit", "../data/clip-filtered-dataset", "seeds.json edit dataset root")
	flag.Parse()

	// EPIC dataset: fixed before/after frames per narration.
	cfg := datasets.DefaultConfig(*epicRoot)
	cfg.Split = datasets.Val
	cfg.SplitSeed = 42
	epicDS, err := datasets.NewEpicEditDataset(cfg)
	if err != nil {
		fmt.Printf("Note: Could not load EPIC dataset: %v\n", err)
	} else {
		fmt.Printf("Total EPIC %s examples available: %d\n", cfg.Split, epicDS.Len())
		showBatch(epicDS)
	}

	fmt.Println()

	// Seed dataset: random seed per draw, with random resize, crop and flip.
	cfg = datasets.DefaultConfig(*editRoot)
	cfg.MinResizeRes, cfg.MaxResizeRes, cfg.CropRes, cfg.FlipProb = 256, 288, 256, 0.5
	editDS, err := datasets.NewEditDataset(cfg)
	if err != nil {
		log.Fatalf("failed to load edit dataset: %v", err)
	}
	fmt.Printf("Total edit %s prompts available: %d\n", cfg.Split, editDS.Len())
	showBatch(editDS)

	fmt.Println("\nExample completed successfully!")
}

func showBatch(ds datasets.Dataset) {
	n := min(4, ds.Len())
	if n == 0 {
		return
	}
	indices := make([]int, n)
	for i := range n {
		indices[i] = i
	}

	fmt.Printf("Loading batch of %d examples...\n", n)
	flat, err := ds.Batch(indices)
	if err != nil {
		log.Fatalf("failed to build batch: %v", err)
	}
	source, edited, err := flat.ToGomlxTensors()
	if err != nil {
		log.Fatalf("failed to convert batch to gomlx tensors: %v", err)
	}
	fmt.Printf("Created tensors: source=%v edited=%v\n", source.Shape(), edited.Shape())
	for i, prompt := range flat.Prompts {
		fmt.Printf("  Example %d edit: %q\n", flat.Indices[i], prompt)
	}
}
