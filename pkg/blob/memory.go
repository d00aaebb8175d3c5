package blob

import (
	"context"
	"fmt"
	"io"
	"sync"
)

type Object struct {
	Data        []byte
	ContentType string
}

// Memory keeps objects in process. Used when BLOB_BACKEND=memory and in tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string]Object
	// FailOn makes Put fail for matching keys.
	FailOn func(key string) error
}

func NewMemory() *Memory {
	return &Memory{objects: map[string]Object{}}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.FailOn != nil {
		if err := m.FailOn(key); err != nil {
			return "", err
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return "", fmt.Errorf("%w: %s", ErrExists, key)
	}
	m.objects[key] = Object{Data: data, ContentType: contentType}
	return "mem://" + key, nil
}

func (m *Memory) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}
