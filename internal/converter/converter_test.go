package converter

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ironsheep/probe-seg/internal/annotation"
	"github.com/ironsheep/probe-seg/internal/polygon"
)

// fixture is a scratch workspace with an image directory, an annotation
// file and an output directory that does not exist yet.
type fixture struct {
	root   string
	images string
	xml    string
	out    string
}

func newFixture(t *testing.T, document string) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:   root,
		images: filepath.Join(root, "images"),
		xml:    filepath.Join(root, "annotations.xml"),
		out:    filepath.Join(root, "yolo_labels"),
	}
	if err := os.Mkdir(f.images, 0755); err != nil {
		t.Fatalf("failed to create image dir: %v", err)
	}
	if err := os.WriteFile(f.xml, []byte(document), 0644); err != nil {
		t.Fatalf("failed to write annotations: %v", err)
	}
	return f
}

// addImage writes a solid image; JPEG or PNG is picked from the extension.
func (f *fixture) addImage(t *testing.T, name string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}

	file, err := os.Create(filepath.Join(f.images, name))
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer file.Close()

	if strings.HasSuffix(strings.ToLower(name), ".jpg") {
		err = jpeg.Encode(file, img, nil)
	} else {
		err = png.Encode(file, img)
	}
	if err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}

func (f *fixture) options() Options {
	opts := DefaultOptions()
	opts.XMLPath = f.xml
	opts.ImageDir = f.images
	opts.OutputDir = f.out
	return opts
}

func (f *fixture) run(t *testing.T) *Report {
	t.Helper()
	report, err := New(f.options(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return report
}

func (f *fixture) readLabel(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.out, name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func (f *fixture) labelFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.out)
	if err != nil {
		t.Fatalf("failed to list output: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func document(tracks ...string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<annotations>
  <version>1.1</version>
` + strings.Join(tracks, "\n") + `
</annotations>`
}

const shaftTrack = `<track id="0" label="Shaft_Track_1" source="manual">
  <polyline frame="25480" outside="0" occluded="0" keyframe="1" points="100,200;110,210" z_order="0"/>
</track>`

func TestRun_SingleFrame(t *testing.T) {
	f := newFixture(t, document(shaftTrack))
	f.addImage(t, "frame_025480.jpg", 1000, 500)

	report := f.run(t)

	got := f.readLabel(t, "frame_025480.txt")
	want := "0 0.095 0.4 0.105 0.42 0.115 0.42 0.105 0.4"
	if got != want {
		t.Errorf("label: got %q, want %q", got, want)
	}

	fields := strings.Fields(got)
	if len(fields) != 9 || fields[0] != "0" {
		t.Fatalf("expected class 0 and 8 coordinates, got %v", fields)
	}
	x, _ := strconv.ParseFloat(fields[1], 64)
	y, _ := strconv.ParseFloat(fields[2], 64)
	if math.Abs(x-0.095) > 1e-12 || math.Abs(y-0.4) > 1e-12 {
		t.Errorf("first pair: got (%v,%v), want (0.095,0.4)", x, y)
	}

	if report.PolylinesConverted != 1 || len(report.Written) != 1 {
		t.Errorf("report: converted %d, written %v", report.PolylinesConverted, report.Written)
	}
	if report.TracksSeen != 1 || report.TracksKept != 1 || report.Images != 1 {
		t.Errorf("report counts: %+v", report)
	}
}

func TestRun_OutsidePolylineProducesNothing(t *testing.T) {
	f := newFixture(t, document(`<track label="shaft">
  <polyline frame="3" outside="1" points="10,10;10,20"/>
</track>`))
	f.addImage(t, "frame_000003.png", 100, 100)

	report := f.run(t)
	if files := f.labelFiles(t); len(files) != 0 {
		t.Errorf("expected no label files, got %v", files)
	}
	if report.Skipped[SkipOutside] != 1 {
		t.Errorf("outside skips: got %d, want 1", report.Skipped[SkipOutside])
	}
}

func TestRun_OutsideDoesNotHideSiblingOnSameFrame(t *testing.T) {
	f := newFixture(t, document(`<track label="shaft">
  <polyline frame="3" outside="1" points="10,10;10,20"/>
</track>
<track label="shaft 2">
  <polyline frame="3" outside="0" points="50,10;50,20"/>
</track>`))
	f.addImage(t, "frame_000003.png", 100, 100)

	f.run(t)
	got := f.readLabel(t, "frame_000003.txt")
	if strings.Count(got, "\n") != 0 || !strings.HasPrefix(got, "0 0.45 ") {
		t.Errorf("label: got %q, want only the visible polyline", got)
	}
}

func TestRun_NonMatchingTracksIgnored(t *testing.T) {
	f := newFixture(t, document(`<track label="needle">
  <polyline frame="1" points="10,10;10,20"/>
</track>
<track>
  <polyline frame="1" points="10,10;10,20"/>
</track>`))
	f.addImage(t, "frame_000001.png", 100, 100)

	report := f.run(t)
	if files := f.labelFiles(t); len(files) != 0 {
		t.Errorf("expected no label files, got %v", files)
	}
	if report.TracksSeen != 2 || report.TracksKept != 0 || report.PolylinesSeen != 0 {
		t.Errorf("report: %+v", report)
	}
}

func TestRun_RecoverableErrorsDoNotAbort(t *testing.T) {
	f := newFixture(t, document(`<track label="SHAFT">
  <polyline frame="1" points="10,abc;10,20"/>
  <polyline frame="x" points="10,10;10,20"/>
  <polyline frame="2" outside="0"/>
  <polyline frame="4" points="10,10;10,20"/>
  <polyline frame="5" points="10,10;10,20"/>
  <polyline frame="6" points="10,10;10,20"/>
</track>`))
	f.addImage(t, "frame_000001.png", 100, 100)
	f.addImage(t, "frame_000006.png", 100, 100)
	if err := os.WriteFile(filepath.Join(f.images, "frame_000005.jpg"), []byte("corrupt"), 0644); err != nil {
		t.Fatalf("failed to write corrupt image: %v", err)
	}

	report := f.run(t)

	files := f.labelFiles(t)
	if len(files) != 1 || files[0] != "frame_000006.txt" {
		t.Errorf("label files: got %v, want [frame_000006.txt]", files)
	}

	want := map[SkipReason]int{
		SkipParseError:    2,
		SkipMissingPoints: 1,
		SkipNoImage:       1,
		SkipDecodeError:   1,
	}
	for reason, n := range want {
		if report.Skipped[reason] != n {
			t.Errorf("skipped[%s]: got %d, want %d", reason, report.Skipped[reason], n)
		}
	}
	if report.TotalSkipped() != 5 || report.PolylinesSeen != 6 {
		t.Errorf("totals: skipped %d of %d", report.TotalSkipped(), report.PolylinesSeen)
	}
}

func TestRun_MultipleLinesPerFrameDecodeOnce(t *testing.T) {
	f := newFixture(t, document(`<track label="shaft_a">
  <polyline frame="9" points="10,10;10,20"/>
</track>
<track label="shaft_b">
  <polyline frame="9" points="30,10;30,20"/>
  <polyline frame="9" points="60,10;60,20"/>
</track>`))
	f.addImage(t, "frame_000009.png", 100, 100)

	report := f.run(t)
	lines := strings.Split(f.readLabel(t, "frame_000009.txt"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines: got %d, want 3", len(lines))
	}
	for i, prefix := range []string{"0 0.05 ", "0 0.25 ", "0 0.55 "} {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d: got %q, want prefix %q (document order)", i, lines[i], prefix)
		}
	}
	if report.Decoded != 1 {
		t.Errorf("decoded: got %d, want 1", report.Decoded)
	}
}

func TestRun_MissingImageDirIsFatal(t *testing.T) {
	f := newFixture(t, document(shaftTrack))
	opts := f.options()
	opts.ImageDir = filepath.Join(f.root, "missing")

	_, err := New(opts, nil).Run(context.Background())
	if !errors.Is(err, ErrImageDir) {
		t.Fatalf("Run: got %v, want ErrImageDir", err)
	}
	if _, err := os.Stat(f.out); !os.IsNotExist(err) {
		t.Error("output directory should not be created on a fatal error")
	}
}

func TestRun_MalformedDocumentIsFatal(t *testing.T) {
	f := newFixture(t, `<annotations><track label="shaft">`)
	f.addImage(t, "frame_025480.jpg", 10, 10)

	_, err := New(f.options(), nil).Run(context.Background())
	if !errors.Is(err, annotation.ErrMalformedDocument) {
		t.Fatalf("Run: got %v, want ErrMalformedDocument", err)
	}
	if _, err := os.Stat(f.out); !os.IsNotExist(err) {
		t.Error("output directory should not be created on a fatal error")
	}
}

func TestRun_Deterministic(t *testing.T) {
	f := newFixture(t, document(shaftTrack, `<track label="shaft">
  <polyline frame="12" points="1.5,2.25;3,4;5,6.125"/>
</track>`))
	f.addImage(t, "frame_025480.jpg", 1000, 500)
	f.addImage(t, "frame_000012.png", 640, 480)

	f.run(t)
	first := map[string]string{}
	for _, name := range f.labelFiles(t) {
		first[name] = f.readLabel(t, name)
	}
	if err := os.RemoveAll(f.out); err != nil {
		t.Fatalf("failed to clear output: %v", err)
	}

	f.run(t)
	second := f.labelFiles(t)
	if len(second) != len(first) {
		t.Fatalf("file sets differ: %v vs %v", second, first)
	}
	for _, name := range second {
		if got := f.readLabel(t, name); got != first[name] {
			t.Errorf("%s differs between runs: %q vs %q", name, got, first[name])
		}
	}
}

func TestRun_CustomOptions(t *testing.T) {
	f := newFixture(t, document(`<track label="Probe">
  <polyline frame="1" points="50,0;50,100"/>
</track>`))
	f.addImage(t, "frame_000001.png", 100, 100)

	opts := f.options()
	opts.Keyword = "PROBE"
	opts.BufferWidth = 10
	opts.ClassIndex = 2
	if _, err := New(opts, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := f.readLabel(t, "frame_000001.txt")
	want := "2 0.4 0 0.4 1 0.6 1 0.6 0"
	if got != want {
		t.Errorf("label: got %q, want %q", got, want)
	}
}

func TestRun_RoundOffset(t *testing.T) {
	f := newFixture(t, document(`<track label="shaft">
  <polyline frame="1" points="50,10;50,90"/>
</track>`))
	f.addImage(t, "frame_000001.png", 100, 100)

	opts := f.options()
	opts.Offset = polygon.ModeRound
	report, err := New(opts, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.PolylinesConverted != 1 {
		t.Fatalf("converted: got %d, want 1", report.PolylinesConverted)
	}
	if !strings.HasPrefix(f.readLabel(t, "frame_000001.txt"), "0 ") {
		t.Error("label line should start with the class index")
	}
}

func TestRun_Canceled(t *testing.T) {
	f := newFixture(t, document(shaftTrack))
	f.addImage(t, "frame_025480.jpg", 100, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(f.options(), nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled", err)
	}
	if _, err := os.Stat(f.out); !os.IsNotExist(err) {
		t.Error("no output should be written for a canceled run")
	}
}

func TestRun_LogsDiagnostics(t *testing.T) {
	f := newFixture(t, document(`<track label="shaft">
  <polyline frame="77" points="1,1;2,2"/>
</track>`))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if _, err := New(f.options(), logger).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "no image for frame") || !strings.Contains(out, "frame_000077") {
		t.Errorf("missing-image diagnostic not logged:\n%s", out)
	}
	if !strings.Contains(out, "conversion finished") {
		t.Errorf("summary not logged:\n%s", out)
	}
}
