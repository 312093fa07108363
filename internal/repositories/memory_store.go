package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stong1994/secret-book-server/internal/models"
)

// MemoryStore keeps both tables in process. Transactions work on a copy of
// the data that replaces the committed data only when fn succeeds.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memoryData
}

type memoryData struct {
	events []*models.LogEntry
	states map[string]*models.FinalState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{states: make(map[string]*models.FinalState)}}
}

func (s *MemoryStore) Events() EventRepository {
	return &memoryEventRepository{store: s}
}

func (s *MemoryStore) States() FinalStateRepository {
	return &memoryFinalStateRepository{store: s}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(events EventRepository, states FinalStateRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := fn(&memoryEventRepository{store: s, tx: tx}, &memoryFinalStateRepository{store: s, tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = tx
	return nil
}

func (s *MemoryStore) read(tx *memoryData, fn func(d *memoryData)) {
	if tx != nil {
		fn(tx)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *MemoryStore) write(tx *memoryData, fn func(d *memoryData) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (d *memoryData) clone() *memoryData {
	states := make(map[string]*models.FinalState, len(d.states))
	for id, state := range d.states {
		states[id] = state
	}
	events := make([]*models.LogEntry, len(d.events))
	copy(events, d.events)
	return &memoryData{events: events, states: states}
}

type memoryEventRepository struct {
	store *MemoryStore
	tx    *memoryData
}

func (r *memoryEventRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.write(r.tx, func(d *memoryData) error {
		entry.RecordedAt = time.Now().UTC()
		stored := *entry
		d.events = append(d.events, &stored)
		return nil
	})
}

func (r *memoryEventRepository) ListSince(ctx context.Context, cursor *string, limit int) ([]*models.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []*models.LogEntry
	r.store.read(r.tx, func(d *memoryData) {
		for _, e := range d.events {
			if cursor == nil || e.Date > *cursor {
				copied := *e
				entries = append(entries, &copied)
			}
		}
	})
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].ID < entries[j].ID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type memoryFinalStateRepository struct {
	store *MemoryStore
	tx    *memoryData
}

func (r *memoryFinalStateRepository) GetByID(ctx context.Context, id string) (*models.FinalState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found *models.FinalState
	r.store.read(r.tx, func(d *memoryData) {
		if state, ok := d.states[id]; ok {
			copied := *state
			found = &copied
		}
	})
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *memoryFinalStateRepository) Upsert(ctx context.Context, state *models.FinalState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.write(r.tx, func(d *memoryData) error {
		state.UpdatedAt = time.Now().UTC()
		stored := *state
		d.states[state.ID] = &stored
		return nil
	})
}

func (r *memoryFinalStateRepository) Insert(ctx context.Context, state *models.FinalState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.write(r.tx, func(d *memoryData) error {
		if _, ok := d.states[state.ID]; ok {
			return ErrStateExists
		}
		state.UpdatedAt = time.Now().UTC()
		stored := *state
		d.states[state.ID] = &stored
		return nil
	})
}

func (r *memoryFinalStateRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.write(r.tx, func(d *memoryData) error {
		delete(d.states, id)
		return nil
	})
}

func (r *memoryFinalStateRepository) ListByType(ctx context.Context, dataType string, cursor *string, limit int) ([]*models.FinalState, error) {
	states, err := r.filter(ctx, func(s *models.FinalState) bool {
		return s.DataType == dataType && (cursor == nil || s.ID > *cursor)
	})
	if err != nil {
		return nil, err
	}
	if len(states) > limit {
		states = states[:limit]
	}
	return states, nil
}

func (r *memoryFinalStateRepository) Search(ctx context.Context, term string) ([]*models.FinalState, error) {
	return r.filter(ctx, func(s *models.FinalState) bool {
		return strings.Contains(s.Name, term) || strings.Contains(s.Desc, term)
	})
}

// filter returns copies of the matching rows ordered by id.
func (r *memoryFinalStateRepository) filter(ctx context.Context, match func(*models.FinalState) bool) ([]*models.FinalState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	states := []*models.FinalState{}
	r.store.read(r.tx, func(d *memoryData) {
		for _, s := range d.states {
			if match(s) {
				copied := *s
				states = append(states, &copied)
			}
		}
	})
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states, nil
}
