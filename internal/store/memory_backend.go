package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data    []byte
	savedAt time.Time
}

// MemoryBackend is a process-local Backend. Unlike the cache it never
// expires entries.
//
// NewMemoryBackend stands in for a durable backend in tests.
// NewVolatileBackend is what the "memory" store setting opens: the store
// sees it as Volatile and reports memory-only mode.
type MemoryBackend struct {
	mu       sync.RWMutex
	objects  map[string]memoryObject
	now      func() time.Time
	volatile bool
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

// NewVolatileBackend returns an empty MemoryBackend that reports itself
// Volatile.
func NewVolatileBackend() *MemoryBackend {
	b := NewMemoryBackend()
	b.volatile = true
	return b
}

// Volatile implements Volatile.
func (b *MemoryBackend) Volatile() bool {
	return b.volatile
}

// Get implements Backend.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), obj.data...), true, nil
}

// SetJSON implements Backend.
func (b *MemoryBackend) SetJSON(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = memoryObject{
		data:    append([]byte(nil), data...),
		savedAt: b.now(),
	}
	return nil
}

// Delete implements Backend. Deleting a missing key is not an error.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

// List implements Backend.
func (b *MemoryBackend) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var infos []ObjectInfo
	for key, obj := range b.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, ObjectInfo{Key: key, SavedAt: obj.savedAt})
		}
	}
	return infos, nil
}

// Len returns the number of stored objects.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
