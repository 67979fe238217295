package storage

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	integrationapp "github.com/erp/storesync/internal/application/integration"
)

var _ integrationapp.ReportArchive = (*MemoryArchive)(nil)

// MemoryArchive keeps archived objects in process memory. It backs tests
// and single-node development setups without object storage.
type MemoryArchive struct {
	mu      sync.RWMutex
	prefix  string
	objects map[string]memoryObject
}

type memoryObject struct {
	body        []byte
	contentType string
}

// NewMemoryArchive creates an empty archive with an optional key prefix
func NewMemoryArchive(prefix string) *MemoryArchive {
	return &MemoryArchive{
		prefix:  strings.Trim(prefix, "/"),
		objects: make(map[string]memoryObject),
	}
}

// Put stores a copy of body and returns the prefixed key
func (m *MemoryArchive) Put(_ context.Context, name string, body []byte, contentType string) (string, error) {
	if name == "" {
		return "", ErrEmptyKey
	}
	key := strings.TrimLeft(name, "/")
	if m.prefix != "" {
		key = path.Join(m.prefix, key)
	}
	m.mu.Lock()
	m.objects[key] = memoryObject{body: append([]byte(nil), body...), contentType: contentType}
	m.mu.Unlock()
	return key, nil
}

// Get returns the stored body and content type
func (m *MemoryArchive) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), obj.body...), obj.contentType, true
}

// Keys lists stored keys in lexical order
func (m *MemoryArchive) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
