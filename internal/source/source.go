package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BatchSource yields named JSON payloads; the loader treats each payload
// as one batch and does not care where it came from
type BatchSource interface {
	// List returns the names of all available payloads
	List(ctx context.Context) ([]string, error)
	// Read returns one payload's bytes
	Read(ctx context.Context, name string) ([]byte, error)
}

// DirSource reads JSON batch files from a local directory
type DirSource struct {
	dir string
}

// NewDirSource creates a filesystem batch source
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// List returns the .json files in the directory, non-recursive
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Read returns one batch file's contents
func (s *DirSource) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", name, err)
	}
	return data, nil
}
