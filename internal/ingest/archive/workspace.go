package archive

import (
	"fmt"
	"os"
	"sync"
)

// Workspace is a per-ingestion temporary directory. Cleanup is idempotent so
// callers can defer it unconditionally; every exit path of the pipeline
// releases the directory exactly once.
type Workspace struct {
	dir  string
	once sync.Once
}

// NewWorkspace creates an isolated working directory under parent (or the
// system temp dir when parent is empty).
func NewWorkspace(parent string) (*Workspace, error) {
	dir, err := os.MkdirTemp(parent, "ingest-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string { return w.dir }

// Cleanup removes the workspace. Safe to call more than once.
func (w *Workspace) Cleanup() {
	w.once.Do(func() {
		os.RemoveAll(w.dir)
	})
}
