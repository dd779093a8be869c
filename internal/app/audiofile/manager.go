// Package audiofile stages synthesized audio as temporary files for
// players that read from disk.
package audiofile

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Manager writes audio buffers to per-playback temporary files and
// removes them on release. Every Acquire must be paired with exactly one
// Release; double releases and unknown paths are ignored.
type Manager struct {
	dir string

	mu     sync.Mutex
	staged map[string]struct{}
}

// NewManager stages files under dir. An empty dir means the OS temp dir.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:    dir,
		staged: map[string]struct{}{},
	}
}

// Acquire writes data to a fresh temporary WAV file and returns its path.
func (m *Manager) Acquire(data []byte) (string, error) {
	f, err := os.CreateTemp(m.dir, "speech-*.wav")
	if err != nil {
		return "", errors.Wrap(err, "failed to create audio file")
	}
	path := f.Name()

	_, werr := f.Write(data)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			zlog.Warn().Msgf("audiofile: failed to remove %s after write error: %v", path, rmErr)
		}
		return "", errors.Wrapf(err, "failed to write audio file %s", path)
	}

	m.mu.Lock()
	m.staged[path] = struct{}{}
	m.mu.Unlock()
	return path, nil
}

// Release removes a staged file. Unknown or already released paths are
// no-ops, so callers can release unconditionally on every exit path.
func (m *Manager) Release(path string) {
	m.mu.Lock()
	_, ok := m.staged[path]
	delete(m.staged, path)
	m.mu.Unlock()
	if !ok {
		return
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zlog.Warn().Msgf("audiofile: failed to remove %s: %v", path, err)
	}
}

// StagedCount returns the number of files acquired but not yet released.
func (m *Manager) StagedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.staged)
}

// Close releases every file still staged.
func (m *Manager) Close() {
	m.mu.Lock()
	paths := make([]string, 0, len(m.staged))
	for path := range m.staged {
		paths = append(paths, path)
	}
	m.mu.Unlock()

	for _, path := range paths {
		m.Release(path)
	}
}
