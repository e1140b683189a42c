package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"time"

	"stereodisparity/internal/logging"
	"stereodisparity/internal/models"
	"stereodisparity/pkg/config"
	"stereodisparity/pkg/stereo"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "Combined side-by-side stereo frame (left view in the left half)")
	outputFile := flag.String("output", "disparity.png", "Output disparity map PNG")
	configPath := flag.String("config", "", "YAML configuration file (defaults are used when empty or missing)")
	numWorkers := flag.Int("workers", 0, "Number of concurrent row bands (0 keeps the configured value)")
	preprocess := flag.Bool("preprocess", false, "Box-filter both views before matching")
	saveIntermediary := flag.Bool("save-intermediary", false, "Save intermediary results during processing")
	intermediaryDir := flag.String("intermediary-dir", "", "Directory to save intermediary results")
	writeConfig := flag.String("write-config", "", "Write a default configuration file to this path and exit")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *writeConfig)
		return
	}

	// Validate inputs
	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}

	// Explicit flags override the configuration file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Processing.NumWorkers = *numWorkers
		case "preprocess":
			cfg.Processing.Preprocess = *preprocess
		case "save-intermediary":
			cfg.Output.SaveIntermediaryResults = *saveIntermediary
		case "intermediary-dir":
			cfg.Output.IntermediaryDir = *intermediaryDir
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})

	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Console)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("================================")
	fmt.Println("STEREO DISPARITY MAP BY SAD BLOCK MATCHING")
	fmt.Println("================================")

	pipeline := stereo.NewPipeline(&stereo.Params{
		InputFile:  *inputFile,
		OutputFile: *outputFile,
		Config:     cfg,
	}, logger)

	fmt.Println("Starting disparity computation with parallel processing...")
	startTime := time.Now()
	if err := pipeline.Process(ctx); err != nil {
		log.Fatalf("Disparity computation failed: %v", err)
	}
	processingTime := time.Since(startTime)

	metrics := pipeline.GetMetrics()
	fmt.Printf("\nDisparity map completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Output disparity map saved to: %s\n\n", *outputFile)

	fmt.Println("Step timings:")
	steps := make([]string, 0, len(metrics.Timings))
	for name := range metrics.Timings {
		steps = append(steps, name)
	}
	sort.Strings(steps)
	for _, name := range steps {
		fmt.Printf("- %-10s %v\n", name, metrics.Timings[name].Round(time.Millisecond))
	}

	fmt.Println("\nDisparity statistics:")
	fmt.Println("=====================")
	fmt.Printf("Valid fraction: %.2f%%\n", metrics.ValidFraction*100)
	fmt.Printf("Mean disparity: %.2f px (std dev %.2f)\n", metrics.MeanDisparity, metrics.StdDevDisparity)
	fmt.Printf("Median disparity: %.0f px\n", metrics.MedianDisparity)
	fmt.Printf("Range: %.0f..%.0f px\n", metrics.MinDisparity, metrics.MaxDisparity)

	fmt.Println("\nPixels by match status:")
	for _, status := range models.AllStatuses {
		fmt.Printf("- %-18s %d\n", status, metrics.StatusCounts[status])
	}

	if cfg.Output.SaveIntermediaryResults {
		fmt.Println("\nIntermediary results saved to:")
		fmt.Printf("%s\n", cfg.Output.IntermediaryDir)
		fmt.Println("The following stages were saved:")
		fmt.Println("- 01_left/01_right: Views split from the input frame")
		if cfg.Processing.Preprocess {
			fmt.Println("- 02_*_filtered: Views after box filtering")
		}
		fmt.Println("- 03_disparity_normalized: Map stretched to the full gray range")
		fmt.Println("- 04_valid_mask: Accepted matches in white")
		if cfg.Output.Histogram {
			fmt.Println("- 05_histogram: Distribution of accepted disparities")
		}
	}
}
