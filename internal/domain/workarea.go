package domain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Area is a disposable directory owned by one request.
type Area interface {
	Dir() string
	Remove() error
}

// WorkArea is the filesystem Area used by video acquisition.
// Remove deletes everything under it and the directory itself, at most once.
type WorkArea struct {
	dir  string
	once sync.Once
	err  error
}

// NewWorkArea creates a fresh directory under root.
func NewWorkArea(root, prefix string) (*WorkArea, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}
	dir, err := os.MkdirTemp(root, prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("create work area: %w", err)
	}
	return &WorkArea{dir: dir}, nil
}

func (w *WorkArea) Dir() string { return w.dir }

func (w *WorkArea) Remove() error {
	w.once.Do(func() {
		entries, err := os.ReadDir(w.dir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			w.err = err
		}
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(w.dir, e.Name())); err != nil && w.err == nil {
				w.err = err
			}
		}
		if err := os.Remove(w.dir); err != nil && !errors.Is(err, os.ErrNotExist) && w.err == nil {
			w.err = err
		}
	})
	return w.err
}
