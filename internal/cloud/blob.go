package cloud

import (
	"context"
	"strings"
	"sync"

	"github.com/unee-t/firecheck/internal/imaging"
)

// BlobStore keeps images under keys and hands back a URL for each.
type BlobStore interface {
	Put(ctx context.Context, key string, img imaging.Image) (url string, err error)
	Fetch(ctx context.Context, url string) (imaging.Image, error)
}

const memoryScheme = "mem://"

// Memory is a process-local BlobStore.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]imaging.Image

	// Fail, when set, is consulted before every Put.
	Fail func(key string) error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]imaging.Image)}
}

func (m *Memory) Put(ctx context.Context, key string, img imaging.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ioError("put", key, err)
	}
	if m.Fail != nil {
		if err := m.Fail(key); err != nil {
			return "", ioError("put", key, err)
		}
	}
	data := append([]byte(nil), img.Data...)
	m.mu.Lock()
	m.objects[key] = imaging.Image{Name: img.Name, MIME: img.MIME, Data: data}
	m.mu.Unlock()
	return memoryScheme + key, nil
}

func (m *Memory) Fetch(ctx context.Context, url string) (imaging.Image, error) {
	key := strings.TrimPrefix(url, memoryScheme)
	m.mu.RLock()
	img, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return imaging.Image{}, ioError("fetch", key, ErrNotFound)
	}
	img.Data = append([]byte(nil), img.Data...)
	return img, nil
}

// Len is the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
