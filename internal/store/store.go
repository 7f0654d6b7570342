// Package store persists the rain gauge counter across restarts, so the
// first rain packet after a reboot is not mistaken for a burst of rain.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("no saved rain counter")

// Store loads and saves the last seen rain counter.
type Store interface {
	Load() (uint16, error)
	Save(counter uint16) error
}

type record struct {
	Counter uint16 `cbor:"1,keyasint"`
	SavedAt int64  `cbor:"2,keyasint"` // unix seconds
}

// File stores the counter as a small CBOR document.
type File struct {
	path string
	now  func() time.Time
}

// NewFile returns a store backed by path. The directory must exist.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Load reads the saved counter.
func (f *File) Load() (uint16, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read rain counter: %w", err)
	}

	var rec record
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return 0, fmt.Errorf("decode rain counter %s: %w", f.path, err)
	}
	return rec.Counter, nil
}

// Save writes the counter to a temporary file and renames it into place,
// so a power cut leaves either the old or the new value.
func (f *File) Save(counter uint16) error {
	data, err := cbor.Marshal(record{Counter: counter, SavedAt: f.now().Unix()})
	if err != nil {
		return fmt.Errorf("encode rain counter: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write rain counter: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync rain counter: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close rain counter: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace rain counter: %w", err)
	}
	return nil
}

// Memory is an in-memory Store for tests.
type Memory struct {
	mu      sync.Mutex
	counter uint16
	saved   bool
	writes  int

	// SaveError, if set, is returned by Save.
	SaveError error
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith returns a Memory store already holding counter.
func NewMemoryWith(counter uint16) *Memory {
	return &Memory{counter: counter, saved: true}
}

// Load returns the saved counter, or ErrNotFound.
func (m *Memory) Load() (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return 0, ErrNotFound
	}
	return m.counter, nil
}

// Save records counter and counts the write.
func (m *Memory) Save(counter uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.counter = counter
	m.saved = true
	m.writes++
	return nil
}

// Writes returns the number of successful saves.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
