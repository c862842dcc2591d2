package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"github.com/ironsheep/probe-seg/internal/config"
	"github.com/ironsheep/probe-seg/internal/converter"
	"github.com/ironsheep/probe-seg/internal/polygon"
	"github.com/ironsheep/probe-seg/internal/preview"
	"github.com/ironsheep/probe-seg/internal/trainer"
)

// parseFlags parses args with flags bound by bind, then merges the -config
// file underneath any flags given explicitly.
func parseFlags(name string, args []string, bind func(*flag.FlagSet, *config.Config)) (config.Config, error) {
	cfg := config.Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config `file`; flags override its values")
	bind(fs, &cfg)

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if err := config.ApplyFile(fs, *configPath, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runConvert(ctx context.Context, args []string, logger *slog.Logger) error {
	cfg, err := parseFlags("convert", args, func(fs *flag.FlagSet, cfg *config.Config) {
		c := &cfg.Convert
		fs.StringVar(&c.XML, "xml", c.XML, "annotation XML `path`")
		fs.StringVar(&c.Images, "images", c.Images, "image `directory`")
		fs.StringVar(&c.Out, "out", c.Out, "label output `directory`")
		fs.StringVar(&c.Keyword, "keyword", c.Keyword, "keep tracks whose label contains this (case-insensitive)")
		fs.Float64Var(&c.Buffer, "buffer", c.Buffer, "ribbon half-width in `pixels`")
		fs.IntVar(&c.Class, "class", c.Class, "class `index` written on every line")
		fs.StringVar(&c.Offset, "offset", c.Offset, "polyline widening: xshift or round")
	})
	if err != nil {
		return err
	}

	mode, err := polygon.ParseMode(cfg.Convert.Offset)
	if err != nil {
		return err
	}

	opts := converter.Options{
		XMLPath:     cfg.Convert.XML,
		ImageDir:    cfg.Convert.Images,
		OutputDir:   cfg.Convert.Out,
		Keyword:     cfg.Convert.Keyword,
		BufferWidth: cfg.Convert.Buffer,
		ClassIndex:  cfg.Convert.Class,
		Offset:      mode,
	}
	_, err = converter.New(opts, logger).Run(ctx)
	return err
}

func runDataset(_ context.Context, args []string, logger *slog.Logger) error {
	cfg, err := parseFlags("dataset", args, func(fs *flag.FlagSet, cfg *config.Config) {
		d := &cfg.Dataset
		fs.StringVar(&d.Out, "out", d.Out, "descriptor output `path`")
		fs.StringVar(&d.Root, "root", d.Root, "dataset root `directory`")
		fs.StringVar(&d.Train, "train", d.Train, "training images, relative to root")
		fs.StringVar(&d.Val, "val", d.Val, "validation images, relative to root")
		fs.StringVar(&d.Class, "class", d.Class, "name of class 0")
	})
	if err != nil {
		return err
	}

	d := trainer.Descriptor{
		Path:  cfg.Dataset.Root,
		Train: cfg.Dataset.Train,
		Val:   cfg.Dataset.Val,
		Names: map[int]string{0: cfg.Dataset.Class},
	}
	if err := trainer.WriteDescriptor(cfg.Dataset.Out, d); err != nil {
		return err
	}
	logger.Info("dataset descriptor written", "path", cfg.Dataset.Out)
	return nil
}

func runTrain(ctx context.Context, args []string, logger *slog.Logger) error {
	cfg, err := parseFlags("train", args, func(fs *flag.FlagSet, cfg *config.Config) {
		t := &cfg.Train
		fs.StringVar(&t.Yolo, "yolo", t.Yolo, "yolo `executable`")
		fs.StringVar(&t.Dir, "dir", t.Dir, "working `directory` for training")
		fs.StringVar(&t.Model, "model", t.Model, "pre-trained `checkpoint`")
		fs.StringVar(&t.Data, "data", t.Data, "dataset descriptor `path`")
		fs.IntVar(&t.Epochs, "epochs", t.Epochs, "training epochs")
		fs.IntVar(&t.ImgSz, "imgsz", t.ImgSz, "input image size")
		fs.IntVar(&t.Batch, "batch", t.Batch, "batch size")
		fs.StringVar(&t.Name, "name", t.Name, "run name")
	})
	if err != nil {
		return err
	}

	job := trainer.Job{
		Checkpoint: cfg.Train.Model,
		Data:       cfg.Train.Data,
		Epochs:     cfg.Train.Epochs,
		ImageSize:  cfg.Train.ImgSz,
		Batch:      cfg.Train.Batch,
		Name:       cfg.Train.Name,
		Task:       cfg.Train.Task,
	}
	cli := trainer.NewCLI(cfg.Train.Yolo, logger)
	cli.Dir = cfg.Train.Dir

	var t trainer.Trainer = cli
	return t.Train(ctx, job)
}

func runPreview(ctx context.Context, args []string, logger *slog.Logger) error {
	cfg, err := parseFlags("preview", args, func(fs *flag.FlagSet, cfg *config.Config) {
		p := &cfg.Preview
		fs.StringVar(&p.Labels, "labels", p.Labels, "label `directory`")
		fs.StringVar(&p.Images, "images", p.Images, "image `directory`")
		fs.StringVar(&p.Out, "out", p.Out, "preview output `directory`")
		fs.IntVar(&p.Alpha, "alpha", p.Alpha, "fill opacity, 0-255")
		fs.Float64Var(&p.LineWidth, "line-width", p.LineWidth, "outline width in pixels")
	})
	if err != nil {
		return err
	}
	if cfg.Preview.Alpha < 0 || cfg.Preview.Alpha > 255 {
		return fmt.Errorf("alpha must be between 0 and 255, got %d", cfg.Preview.Alpha)
	}

	dirs := preview.Dirs{
		Labels: cfg.Preview.Labels,
		Images: cfg.Preview.Images,
		Out:    cfg.Preview.Out,
	}
	opts := preview.Options{FillAlpha: uint8(cfg.Preview.Alpha), LineWidth: cfg.Preview.LineWidth}
	n, err := preview.RenderDir(ctx, dirs, opts, logger)
	if err != nil {
		return err
	}
	logger.Info("previews written", "count", n, "dir", dirs.Out)
	return nil
}
