package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stong1994/secret-book-server/internal/models"
	"github.com/stong1994/secret-book-server/internal/repositories"
)

var errStorage = errors.New("storage unavailable")

// faultyStore wraps a MemoryStore and fails the chosen transaction steps.
type faultyStore struct {
	*repositories.MemoryStore
	statesErr error
	eventsErr error
	commitErr error
	beginErr  error
}

func (s *faultyStore) WithTx(ctx context.Context, fn func(events repositories.EventRepository, states repositories.FinalStateRepository) error) error {
	if s.beginErr != nil {
		return s.beginErr
	}
	err := s.MemoryStore.WithTx(ctx, func(events repositories.EventRepository, states repositories.FinalStateRepository) error {
		if err := fn(&faultyEvents{EventRepository: events, err: s.eventsErr}, &faultyStates{FinalStateRepository: states, err: s.statesErr}); err != nil {
			return err
		}
		return s.commitErr
	})
	return err
}

type faultyStates struct {
	repositories.FinalStateRepository
	err error
}

func (f *faultyStates) Upsert(ctx context.Context, state *models.FinalState) error {
	if f.err != nil {
		return f.err
	}
	return f.FinalStateRepository.Upsert(ctx, state)
}

func (f *faultyStates) Insert(ctx context.Context, state *models.FinalState) error {
	if f.err != nil {
		return f.err
	}
	return f.FinalStateRepository.Insert(ctx, state)
}

func (f *faultyStates) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	return f.FinalStateRepository.Delete(ctx, id)
}

type faultyEvents struct {
	repositories.EventRepository
	err error
}

func (f *faultyEvents) Append(ctx context.Context, entry *models.LogEntry) error {
	if f.err != nil {
		return f.err
	}
	return f.EventRepository.Append(ctx, entry)
}

// fakeCache is an in-process LookupCache that records calls.
type fakeCache struct {
	mu            sync.Mutex
	gen           int64
	entries       map[string][]*models.FinalState
	reads         int
	invalidations int
	err           error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]*models.FinalState)}
}

func (c *fakeCache) Generation(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.err != nil {
		return 0, c.err
	}
	return c.gen, nil
}

func (c *fakeCache) Get(ctx context.Context, gen int64, host string) ([]*models.FinalState, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	states, ok := c.entries[fmt.Sprintf("%d:%s", gen, host)]
	return states, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, gen int64, host string, states []*models.FinalState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[fmt.Sprintf("%d:%s", gen, host)] = states
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	if c.err != nil {
		return c.err
	}
	c.gen++
	return nil
}

func payload(eventType, dataID, date string) *models.EventPayload {
	return &models.EventPayload{
		Name:      "mail.example.com",
		Date:      date,
		EventType: eventType,
		DataID:    dataID,
		DataType:  "login",
		Content:   "content-" + date,
		Desc:      "desc",
		From:      "device-1",
	}
}
