package imaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoMatch is returned by Index.Match when no image carries the token.
var ErrNoMatch = errors.New("no matching image")

// imageExtensions are the accepted frame image extensions, compared lowercase.
var imageExtensions = []string{".jpg", ".png"}

// Index is a sorted listing of the filenames in an image directory, taken
// once at construction.
type Index struct {
	dir   string
	names []string
}

// NewIndex lists dir and records every non-directory entry.
//
// An unreadable or missing directory is an error; an empty directory is not.
func NewIndex(dir string) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory '%s': %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	return &Index{dir: dir, names: names}, nil
}

// Dir returns the directory the index was built from.
func (x *Index) Dir() string {
	return x.dir
}

// Len returns the number of indexed files.
func (x *Index) Len() int {
	return len(x.names)
}

// Sample returns up to n filenames in index order.
func (x *Index) Sample(n int) []string {
	if n > len(x.names) {
		n = len(x.names)
	}
	out := make([]string, n)
	copy(out, x.names[:n])
	return out
}

// HasImageExtension reports whether name ends in .jpg or .png, ignoring case.
func HasImageExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Match returns the path of the first image, in lexicographic filename
// order, whose name contains token and has an image extension.
//
// When several files share the token the lexicographically smallest wins,
// so repeated runs over the same directory pick the same file.
func (x *Index) Match(token string) (string, error) {
	for _, name := range x.names {
		if strings.Contains(name, token) && HasImageExtension(name) {
			return filepath.Join(x.dir, name), nil
		}
	}
	return "", fmt.Errorf("%w for %s", ErrNoMatch, token)
}
