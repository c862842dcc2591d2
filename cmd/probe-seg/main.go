package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ironsheep/probe-seg/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("probe-seg - polyline annotations to YOLO segmentation labels")
	fmt.Println()
	fmt.Println("Usage: probe-seg <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  convert    Convert annotation XML into per-frame label files")
	fmt.Println("  dataset    Write the dataset descriptor used for training")
	fmt.Println("  train      Train a segmentation model with the yolo CLI")
	fmt.Println("  preview    Draw label polygons onto their frames")
	fmt.Println("  version    Print version information")
	fmt.Println("  help       Print this help message")
	fmt.Println()
	fmt.Println("Run 'probe-seg <command> -h' for command options.")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=debug    Enable debug logging (debug, info, warn, error)\n", logging.EnvLevel)
	fmt.Println("  NO_COLOR=1                   Disable coloured log output")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("probe-seg %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		usage()
		return
	}

	level, err := logging.ParseLevel(os.Getenv(logging.EnvLevel))
	logger := logging.New(os.Stderr, level, os.Getenv("NO_COLOR") != "")
	if err != nil {
		logger.Warn("ignoring log level", "err", err)
	}
	logger.Debug("probe-seg", "version", Version, "built", BuildTime, "commit", GitCommit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var run func(context.Context, []string, *slog.Logger) error
	switch os.Args[1] {
	case "convert":
		run = runConvert
	case "dataset":
		run = runDataset
	case "train":
		run = runTrain
	case "preview":
		run = runPreview
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err := run(ctx, os.Args[2:], logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error(os.Args[1]+" failed", "err", err)
		stop()
		os.Exit(1)
	}
}
