// Package memory provides an in-process BlobStore for tests and for
// deployments without an object-storage backend.
package memory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Object is one stored blob.
type Object struct {
	ContentType string
	Data        []byte
}

// BlobStore keeps uploaded objects in a map. Safe for concurrent use.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// New returns an empty BlobStore.
func New() *BlobStore {
	return &BlobStore{objects: make(map[string]Object)}
}

// PutObject stores the reader's bytes under path and returns a mem:// URI.
func (s *BlobStore) PutObject(_ context.Context, path string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}
	s.mu.Lock()
	s.objects[path] = Object{ContentType: contentType, Data: data}
	s.mu.Unlock()
	return "mem://" + path, nil
}

// Get returns the object stored under path.
func (s *BlobStore) Get(path string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	return obj, ok
}

// Len returns the number of stored objects.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
