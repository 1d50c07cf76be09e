package inmemoryevents

import (
	"context"
	"fmt"
	"sync"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
)

// Source is a channel backed event source. Pushed events are delivered in
// order, the stream ends with Close.
type Source struct {
	lock   sync.Mutex
	ch     chan domain.SyncEvent
	closed bool
}

func NewSource(bufferSize int) *Source {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Source{ch: make(chan domain.SyncEvent, bufferSize)}
}

// FromEvents returns an already closed source that yields the given events.
func FromEvents(events ...domain.SyncEvent) ports.EventSource {
	s := NewSource(len(events))
	for _, e := range events {
		s.ch <- e
	}
	_ = s.Close()
	return s
}

func (s *Source) Events(_ context.Context) (<-chan domain.SyncEvent, error) {
	return s.ch, nil
}

func (s *Source) Push(ctx context.Context, event domain.SyncEvent) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return fmt.Errorf("event source closed")
	}
	select {
	case s.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Source) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
