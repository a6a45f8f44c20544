package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	localDirPerm  = 0o755
	localFilePerm = 0o644
)

// Local is the filesystem backend, rooted at a data directory.
type Local struct {
	baseDir string
}

// NewLocal creates a filesystem backend rooted at baseDir.
func NewLocal(baseDir string) *Local {
	return &Local{baseDir: baseDir}
}

func (l *Local) fullPath(path string) string {
	return filepath.Join(l.baseDir, filepath.FromSlash(path))
}

// Read returns file content, or ErrNotFound.
func (l *Local) Read(_ context.Context, path string) ([]byte, error) {
	content, err := os.ReadFile(l.fullPath(path))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return content, nil
}

// Write stores content, creating parent directories as needed.
func (l *Local) Write(_ context.Context, path string, content []byte) error {
	full := l.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), localDirPerm); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(full, content, localFilePerm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Exists reports whether the file exists.
func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(l.fullPath(path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

// List returns files directly under prefix matching suffix, sorted.
func (l *Local) List(_ context.Context, prefix, suffix string) ([]string, error) {
	dir := l.fullPath(prefix)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if suffix != "" && !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		paths = append(paths, strings.TrimSuffix(prefix, "/")+"/"+entry.Name())
	}
	sort.Strings(paths)
	return paths, nil
}
