package trainer

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Descriptor is the dataset YAML read by the training framework. Label
// files are found by the framework by swapping "images" for "labels" in
// each image path, so the converter output belongs under <path>/labels.
type Descriptor struct {
	Path  string         `yaml:"path"`
	Train string         `yaml:"train"`
	Val   string         `yaml:"val"`
	Names map[int]string `yaml:"names"`
}

// DefaultDescriptor returns a single-class shaft dataset rooted at dataset/.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Path:  "dataset",
		Train: "images/train",
		Val:   "images/val",
		Names: map[int]string{0: "shaft"},
	}
}

// Validate reports missing fields.
func (d Descriptor) Validate() error {
	switch {
	case d.Train == "":
		return fmt.Errorf("dataset descriptor: train split is required")
	case d.Val == "":
		return fmt.Errorf("dataset descriptor: val split is required")
	case len(d.Names) == 0:
		return fmt.Errorf("dataset descriptor: at least one class name is required")
	}
	return nil
}

// WriteDescriptor writes d as YAML to path, creating parent directories.
func WriteDescriptor(path string, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode dataset descriptor: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for descriptor: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write dataset descriptor: %w", err)
	}
	return nil
}

// ReadDescriptor loads a dataset descriptor from path.
func ReadDescriptor(path string) (Descriptor, error) {
	var d Descriptor
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("failed to read dataset descriptor: %w", err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("failed to decode dataset descriptor: %w", err)
	}
	return d, nil
}
