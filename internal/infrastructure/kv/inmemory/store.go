package inmemorykv

import (
	"context"
	"sync"

	"github.com/ark-network/noted/internal/core/ports"
)

type store struct {
	lock sync.RWMutex
	data map[string][]byte
}

func NewStore(_ ...interface{}) (ports.KVStore, error) {
	return &store{data: make(map[string][]byte)}, nil
}

func (s *store) Get(_ context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (s *store) Set(_ context.Context, key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *store) Close() error {
	return nil
}
