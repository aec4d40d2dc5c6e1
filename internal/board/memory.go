package board

import (
	"context"
	"sync"
)

// Memory is an in-process board. It backs single-process operation (driver
// and client as cooperative tasks in one binary) and tests.
type Memory struct {
	mu     sync.RWMutex
	bools  map[Field]bool
	texts  map[Field]string
	floats map[Field]float64
}

func NewMemory() *Memory {
	return &Memory{
		bools:  make(map[Field]bool),
		texts:  make(map[Field]string),
		floats: make(map[Field]float64),
	}
}

func (m *Memory) ReadBool(_ context.Context, f Field) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bools[f], nil
}

func (m *Memory) WriteBool(_ context.Context, f Field, v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bools[f] = v
	return nil
}

func (m *Memory) ReadString(_ context.Context, f Field) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.texts[f], nil
}

func (m *Memory) WriteString(_ context.Context, f Field, v string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[f] = v
	return nil
}

func (m *Memory) ReadFloat(_ context.Context, f Field) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.floats[f], nil
}

func (m *Memory) WriteFloat(_ context.Context, f Field, v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.floats[f] = v
	return nil
}

var _ Board = (*Memory)(nil)
