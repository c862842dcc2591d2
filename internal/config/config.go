// Package config loads the optional YAML configuration file shared by the
// probe-seg commands. Command line flags always win over file values.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Convert holds the converter settings.
type Convert struct {
	XML     string  `yaml:"xml"`
	Images  string  `yaml:"images"`
	Out     string  `yaml:"out"`
	Keyword string  `yaml:"keyword"`
	Buffer  float64 `yaml:"buffer"`
	Class   int     `yaml:"class"`
	Offset  string  `yaml:"offset"`
}

// Train holds the trainer settings.
type Train struct {
	Yolo   string `yaml:"yolo"`
	Dir    string `yaml:"dir"`
	Model  string `yaml:"model"`
	Data   string `yaml:"data"`
	Epochs int    `yaml:"epochs"`
	ImgSz  int    `yaml:"imgsz"`
	Batch  int    `yaml:"batch"`
	Name   string `yaml:"name"`
	Task   string `yaml:"task"`
}

// Dataset holds the dataset descriptor settings.
type Dataset struct {
	Out   string `yaml:"out"`
	Root  string `yaml:"root"`
	Train string `yaml:"train"`
	Val   string `yaml:"val"`
	Class string `yaml:"class"`
}

// Preview holds the preview renderer settings.
type Preview struct {
	Labels    string  `yaml:"labels"`
	Images    string  `yaml:"images"`
	Out       string  `yaml:"out"`
	Alpha     int     `yaml:"alpha"`
	LineWidth float64 `yaml:"line_width"`
}

// Config is the whole configuration file. Each command reads its section.
type Config struct {
	Convert Convert `yaml:"convert"`
	Train   Train   `yaml:"train"`
	Dataset Dataset `yaml:"dataset"`
	Preview Preview `yaml:"preview"`
}

// Default returns the configuration used when no file and no flags are given.
func Default() Config {
	return Config{
		Convert: Convert{
			XML:     "annotations.xml",
			Images:  "images",
			Out:     "yolo_labels",
			Keyword: "shaft",
			Buffer:  5,
			Class:   0,
			Offset:  "xshift",
		},
		Train: Train{
			Yolo:   "yolo",
			Model:  "yolov8n-seg.pt",
			Data:   "dataset/dataset.yaml",
			Epochs: 100,
			ImgSz:  640,
			Batch:  8,
			Name:   "probe_segmentation",
			Task:   "segment",
		},
		Dataset: Dataset{
			Out:   "dataset/dataset.yaml",
			Root:  "dataset",
			Train: "images/train",
			Val:   "images/val",
			Class: "shaft",
		},
		Preview: Preview{
			Labels:    "yolo_labels",
			Images:    "images",
			Out:       "previews",
			Alpha:     96,
			LineWidth: 2,
		},
	}
}

// Decode overlays the YAML in r onto cfg. Unknown keys are rejected so a
// typo does not silently fall back to a default. An empty file leaves cfg
// unchanged.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Load reads path and overlays it onto the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Decode(bytes.NewReader(data), &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyFile merges a config file into cfg after fs has been parsed with
// flags bound to cfg's fields. File values replace defaults, then every
// flag that was set explicitly on the command line is re-applied so it
// takes precedence. An empty path does nothing.
func ApplyFile(fs *flag.FlagSet, path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	explicit := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	loaded, err := Load(path)
	if err != nil {
		return err
	}
	*cfg = loaded

	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("failed to re-apply flag -%s: %w", name, err)
		}
	}
	return nil
}
