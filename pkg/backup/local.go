package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalSink stores snapshots as files in one directory.
type LocalSink struct {
	dir string
}

// NewLocalSink creates the directory if needed.
func NewLocalSink(dir string) (*LocalSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &LocalSink{dir: dir}, nil
}

func (s *LocalSink) Put(_ context.Context, name string, data []byte) error {
	// Write to a temp file first so a crash mid-write never leaves a
	// half snapshot under the final name.
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, name))
}

func (s *LocalSink) Get(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, name))
}

// List returns snapshot names, newest last.
func (s *LocalSink) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *LocalSink) Name() string {
	return "local"
}

// Dir reports the snapshot directory.
func (s *LocalSink) Dir() string {
	return s.dir
}
