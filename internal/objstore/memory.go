package objstore

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/go-faster/errors"
)

const memoryURLBase = "mem://"

// Memory keeps uploaded objects in a map. Used by tests and local mode.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte

	// UploadErr, when set, fails uploads after FailAfter successful ones
	// (immediately with the zero FailAfter). Lets tests exercise the
	// two-phase create compensation path, including partial uploads.
	UploadErr error
	FailAfter int

	stored int
}

var _ Storage = (*Memory)(nil)

// NewMemory returns an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Upload(_ context.Context, path string, r io.Reader, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UploadErr != nil && m.stored >= m.FailAfter {
		return "", m.UploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "read upload")
	}
	m.objects[path] = data
	m.stored++
	return memoryURLBase + path, nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func (m *Memory) PathFromURL(url string) string {
	if !strings.HasPrefix(url, memoryURLBase) {
		return ""
	}
	return strings.TrimPrefix(url, memoryURLBase)
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// Has reports whether an object exists at path.
func (m *Memory) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok
}
