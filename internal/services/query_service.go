package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stong1994/secret-book-server/internal/metrics"
	"github.com/stong1994/secret-book-server/internal/models"
	"github.com/stong1994/secret-book-server/internal/repositories"
	"github.com/stong1994/secret-book-server/internal/utils"
)

// PageSize caps every paginated read.
const PageSize = 10

var (
	ErrMissingDataType = errors.New("data_type is required")
	ErrEmptyHost       = errors.New("host is required")
)

type QueryService struct {
	events repositories.EventRepository
	states repositories.FinalStateRepository
	cache  repositories.LookupCache
	log    *slog.Logger
}

func NewQueryService(store repositories.Store, cache repositories.LookupCache, log *slog.Logger) *QueryService {
	return &QueryService{
		events: store.Events(),
		states: store.States(),
		cache:  cache,
		log:    log,
	}
}

// ListEvents returns the log rows dated after cursor. Rows whose event type
// does not parse are logged and skipped rather than failing the page.
// NextCursor is set from the last raw row of a full page, so a page made only
// of skipped rows still advances.
func (s *QueryService) ListEvents(ctx context.Context, cursor *string) (*models.EventPage, error) {
	entries, err := s.events.ListSince(ctx, cursor, PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	page := &models.EventPage{Events: make([]*models.EventRecord, 0, len(entries))}
	for _, entry := range entries {
		eventType, err := models.ParseEventType(entry.EventType)
		if err != nil {
			metrics.EventRowsDropped.Inc()
			s.log.WarnContext(ctx, "skipping log row with unparseable event type",
				slog.String("log_id", entry.ID),
				slog.String("event_type", entry.EventType),
				slog.String("error", err.Error()))
			continue
		}
		page.Events = append(page.Events, &models.EventRecord{
			ID:         entry.ID,
			EventID:    entry.EventID,
			Name:       entry.Name,
			Date:       entry.Date,
			EventType:  eventType,
			DataID:     entry.DataID,
			SnapshotID: entry.SnapshotID,
			DataType:   entry.DataType,
			Content:    entry.Content,
			Desc:       entry.Desc,
			From:       entry.From,
		})
	}

	if len(entries) == PageSize {
		next := entries[len(entries)-1].Date
		page.NextCursor = &next
	}
	return page, nil
}

// ListStates returns the final states of one data type with id after cursor.
func (s *QueryService) ListStates(ctx context.Context, dataType string, cursor *string) ([]*models.FinalState, error) {
	if dataType == "" {
		return nil, ErrMissingDataType
	}
	states, err := s.states.ListByType(ctx, dataType, cursor, PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	return states, nil
}

// FindState returns the final states whose name or desc contains host. When
// nothing matches and host has more than two labels, the leftmost label is
// dropped and the search repeated, so a.b.example.com falls back to
// b.example.com and then example.com.
func (s *QueryService) FindState(ctx context.Context, host string) ([]*models.FinalState, error) {
	if host == "" {
		return nil, ErrEmptyHost
	}

	gen, cacheable := s.cacheGeneration(ctx, host)
	if cacheable {
		if cached, ok := s.cachedLookup(ctx, gen, host); ok {
			return cached, nil
		}
	}

	current := host
	depth := 0
	var states []*models.FinalState
	for {
		var err error
		states, err = s.states.Search(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("failed to search states for %q: %w", current, err)
		}
		if len(states) > 0 {
			break
		}
		parent, ok := utils.ParentDomain(current)
		if !ok {
			break
		}
		current = parent
		depth++
	}
	metrics.LookupFallbackDepth.Observe(float64(depth))

	if cacheable {
		if err := s.cache.Set(ctx, gen, host, states); err != nil {
			s.log.WarnContext(ctx, "failed to cache lookup", slog.String("host", host), slog.String("error", err.Error()))
		}
	}
	return states, nil
}

// cacheGeneration reads the generation the whole lookup is cached under. A
// push committed after this point bumps the generation, so whatever this
// lookup stores is never served to later callers.
func (s *QueryService) cacheGeneration(ctx context.Context, host string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		metrics.LookupCache.WithLabelValues("error").Inc()
		s.log.WarnContext(ctx, "lookup cache unavailable", slog.String("host", host), slog.String("error", err.Error()))
		return 0, false
	}
	return gen, true
}

func (s *QueryService) cachedLookup(ctx context.Context, gen int64, host string) ([]*models.FinalState, bool) {
	states, ok, err := s.cache.Get(ctx, gen, host)
	if err != nil {
		metrics.LookupCache.WithLabelValues("error").Inc()
		s.log.WarnContext(ctx, "lookup cache unavailable", slog.String("host", host), slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		metrics.LookupCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.LookupCache.WithLabelValues("hit").Inc()
	return states, true
}
