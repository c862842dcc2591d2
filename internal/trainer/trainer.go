// Package trainer launches segmentation model training.
//
// Training itself happens in an external framework; this package only
// describes a job and hands it over. The Ultralytics command line is the
// supported backend.
package trainer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Job is a fixed training configuration.
type Job struct {
	// Checkpoint is the pre-trained model to start from.
	Checkpoint string `yaml:"model"`
	// Data is the dataset descriptor path.
	Data      string `yaml:"data"`
	Epochs    int    `yaml:"epochs"`
	ImageSize int    `yaml:"imgsz"`
	Batch     int    `yaml:"batch"`
	// Name is the run name, used by the framework for its output directory.
	Name string `yaml:"name"`
	Task string `yaml:"task"`
}

// DefaultJob returns the standard probe segmentation run.
func DefaultJob() Job {
	return Job{
		Checkpoint: "yolov8n-seg.pt",
		Data:       "dataset/dataset.yaml",
		Epochs:     100,
		ImageSize:  640,
		Batch:      8,
		Name:       "probe_segmentation",
		Task:       "segment",
	}
}

// Validate checks that every field has a usable value.
func (j Job) Validate() error {
	var errs []error
	if j.Checkpoint == "" {
		errs = append(errs, errors.New("model checkpoint is required"))
	}
	if j.Data == "" {
		errs = append(errs, errors.New("dataset descriptor is required"))
	}
	if j.Task == "" {
		errs = append(errs, errors.New("task is required"))
	}
	if j.Epochs <= 0 {
		errs = append(errs, fmt.Errorf("epochs must be positive, got %d", j.Epochs))
	}
	if j.ImageSize <= 0 {
		errs = append(errs, fmt.Errorf("image size must be positive, got %d", j.ImageSize))
	}
	if j.Batch <= 0 {
		errs = append(errs, fmt.Errorf("batch must be positive, got %d", j.Batch))
	}
	return errors.Join(errs...)
}

// Args returns the command line arguments for `yolo`, in the
// TASK MODE key=value form it expects.
func (j Job) Args() []string {
	args := []string{
		j.Task,
		"train",
		"model=" + j.Checkpoint,
		"data=" + j.Data,
		"epochs=" + strconv.Itoa(j.Epochs),
		"imgsz=" + strconv.Itoa(j.ImageSize),
		"batch=" + strconv.Itoa(j.Batch),
	}
	if j.Name != "" {
		args = append(args, "name="+j.Name)
	}
	return args
}

// Trainer runs a training job to completion.
type Trainer interface {
	Train(ctx context.Context, job Job) error
}

// tailLines is how much framework output is kept for error messages.
const tailLines = 20

// CLI trains by running the Ultralytics `yolo` executable.
type CLI struct {
	// Executable is the command to run. Defaults to "yolo" on PATH.
	Executable string
	// Dir is the working directory; relative paths in the job resolve
	// against it. Empty means the current directory.
	Dir string

	logger *slog.Logger
}

// NewCLI creates a CLI trainer. A nil logger discards framework output.
func NewCLI(executable string, logger *slog.Logger) *CLI {
	if executable == "" {
		executable = "yolo"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CLI{Executable: executable, logger: logger}
}

// Train runs the job and streams the framework's combined output to the
// logger line by line. A non-zero exit is returned as an error carrying the
// last lines of output. Canceling ctx kills the process.
func (c *CLI) Train(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid training job: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.Executable, job.Args()...)
	cmd.Dir = c.Dir

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	c.logger.Info("starting training", "command", c.Executable+" "+strings.Join(job.Args(), " "))
	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("failed to start %s: %w", c.Executable, err)
	}

	tail := make(chan []string, 1)
	go func() {
		tail <- c.stream(pr)
	}()

	waitErr := cmd.Wait()
	pw.Close()
	last := <-tail

	if waitErr != nil {
		return fmt.Errorf("training failed: %w\nOutput: %s", waitErr, strings.Join(last, "\n"))
	}
	c.logger.Info("training finished", "name", job.Name)
	return nil
}

// stream logs every line read from r and returns the final tailLines lines.
func (c *CLI) stream(r io.Reader) []string {
	var last []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		c.logger.Info(line, "source", "yolo")
		last = append(last, line)
		if len(last) > tailLines {
			last = last[1:]
		}
	}
	// Drain so the writer never blocks if the scanner gave up on a long line.
	io.Copy(io.Discard, r)
	return last
}
