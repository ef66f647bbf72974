package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory keeps artifacts in process memory. Intended for tests and the
// memory storage profile.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	desc    Descriptor
	payload []byte
}

// NewMemory returns an empty in-memory artifact store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (s *Memory) Driver() Driver { return DriverMemory }

func (s *Memory) Save(_ context.Context, ref Ref, payload []byte, contentType string, rows int) (Descriptor, error) {
	if err := ref.validate(); err != nil {
		return Descriptor{}, err
	}
	key := ref.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; exists {
		return Descriptor{}, fmt.Errorf("artifact %s already exists", key)
	}
	desc := Descriptor{
		Ref:         ref,
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		Rows:        rows,
		StoredAt:    time.Now().UTC(),
		Location:    "mem://" + key,
	}
	s.entries[key] = memoryEntry{desc: desc, payload: append([]byte(nil), payload...)}
	return desc, nil
}

func (s *Memory) Open(_ context.Context, ref Ref) (Descriptor, io.ReadCloser, error) {
	if err := ref.validate(); err != nil {
		return Descriptor{}, nil, err
	}
	s.mu.RLock()
	entry, ok := s.entries[ref.Key()]
	s.mu.RUnlock()
	if !ok {
		return Descriptor{}, nil, ErrNotFound
	}
	payload := append([]byte(nil), entry.payload...)
	return entry.desc, io.NopCloser(bytes.NewReader(payload)), nil
}

func (s *Memory) List(_ context.Context, kind string) ([]Descriptor, error) {
	prefix := kind + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	var descs []Descriptor
	for key, entry := range s.entries {
		if strings.HasPrefix(key, prefix) {
			descs = append(descs, entry.desc)
		}
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Ref.Key() < descs[j].Ref.Key() })
	return descs, nil
}

func (s *Memory) Remove(_ context.Context, ref Ref) (bool, error) {
	if err := ref.validate(); err != nil {
		return false, err
	}
	key := ref.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok, nil
}
