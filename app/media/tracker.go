package media

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
)

// Remover deletes one temporary artifact.
type Remover interface {
	Remove(path string) error
}

type RemoverFunc func(path string) error

func (f RemoverFunc) Remove(path string) error {
	return f(path)
}

// Tracker records every temporary path created during one extraction attempt
// so a single deferred Cleanup can delete all of them.
type Tracker struct {
	mu      sync.Mutex
	paths   []string
	remover Remover
}

func NewTracker(remover Remover) *Tracker {
	if remover == nil {
		remover = RemoverFunc(os.Remove)
	}
	return &Tracker{remover: remover}
}

func (t *Tracker) Track(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = append(t.paths, path)
}

func (t *Tracker) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.paths...)
}

// Release deletes one tracked path now instead of at Cleanup.
func (t *Tracker) Release(path string) {
	t.mu.Lock()
	for i, p := range t.paths {
		if p == path {
			t.paths = append(t.paths[:i], t.paths[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	t.remove(path)
}

// Cleanup issues one delete per tracked path and forgets them. Failures are
// logged, never returned. Returns the number of deletes issued.
func (t *Tracker) Cleanup() int {
	t.mu.Lock()
	paths := t.paths
	t.paths = nil
	t.mu.Unlock()

	for _, path := range paths {
		t.remove(path)
	}
	return len(paths)
}

func (t *Tracker) remove(path string) {
	if err := t.remover.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to remove temporary media file", "path", path, "error", err)
	}
}
