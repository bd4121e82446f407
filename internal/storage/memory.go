package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStorage keeps objects in process memory. Used for local development
// and tests; contents are lost on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

func (s *MemoryStorage) Put(ctx context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, contentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, key string) (*Object, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	return &Object{
		Key:         key,
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Len reports how many objects are stored.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
