package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stong1994/secret-book-server/internal/metrics"
	"github.com/stong1994/secret-book-server/internal/models"
	"github.com/stong1994/secret-book-server/internal/repositories"
)

var (
	ErrInvalidEvent          = errors.New("invalid event")
	ErrProjectionWriteFailed = errors.New("projection write failed")
	ErrLogWriteFailed        = errors.New("log write failed")
)

// Projector applies an event to the final state table.
type Projector struct {
	// StrictCreate makes CREATE fail with repositories.ErrStateExists instead
	// of overwriting an existing row.
	StrictCreate bool
}

// Project writes the final state for ev and returns the snapshot the log row
// is built from. CREATE and UPDATE snapshots are keyed by data_id. A DELETE
// has no row left to read back, so its snapshot is rebuilt from the event and
// keyed by the event id.
func (p *Projector) Project(ctx context.Context, states repositories.FinalStateRepository, ev *models.Event) (*models.FinalState, error) {
	if !ev.EventType.Upserts() {
		if err := states.Delete(ctx, ev.DataID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProjectionWriteFailed, err)
		}
		return snapshotOf(ev, ev.ID), nil
	}

	state := snapshotOf(ev, ev.DataID)
	write := states.Upsert
	if p.StrictCreate && ev.EventType == models.EventCreate {
		write = states.Insert
	}
	if err := write(ctx, state); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProjectionWriteFailed, err)
	}
	return state, nil
}

func snapshotOf(ev *models.Event, id string) *models.FinalState {
	return &models.FinalState{
		ID:       id,
		Name:     ev.Name,
		Date:     ev.Date,
		DataType: ev.DataType,
		Content:  ev.Content,
		Desc:     ev.Desc,
	}
}

// Appender writes the audit row for an applied event.
type Appender struct {
	NewID func() (string, error)
}

func (a *Appender) Append(ctx context.Context, events repositories.EventRepository, ev *models.Event, snap *models.FinalState) (*models.LogEntry, error) {
	newID := a.NewID
	if newID == nil {
		newID = NewID
	}
	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate log id: %w", ErrLogWriteFailed, err)
	}

	entry := &models.LogEntry{
		ID:         id,
		EventID:    ev.ID,
		Name:       snap.Name,
		Date:       snap.Date,
		EventType:  ev.EventType.String(),
		DataID:     ev.DataID,
		SnapshotID: snap.ID,
		DataType:   snap.DataType,
		Content:    snap.Content,
		Desc:       snap.Desc,
		From:       ev.From,
	}
	if err := events.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogWriteFailed, err)
	}
	return entry, nil
}

// NewID returns a time-ordered UUIDv7 string.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type IngestService struct {
	store     repositories.Store
	cache     repositories.LookupCache
	projector *Projector
	appender  *Appender
	log       *slog.Logger
}

type IngestOptions struct {
	StrictCreate bool
	// Cache, when set, is invalidated after every committed push.
	Cache        repositories.LookupCache
	NewID        func() (string, error)
}

func NewIngestService(store repositories.Store, log *slog.Logger, opts IngestOptions) *IngestService {
	return &IngestService{
		store:     store,
		cache:     opts.Cache,
		projector: &Projector{StrictCreate: opts.StrictCreate},
		appender:  &Appender{NewID: opts.NewID},
		log:       log,
	}
}

// Validate parses payload into an Event without touching storage.
func Validate(payload *models.EventPayload) (*models.Event, error) {
	eventType, err := models.ParseEventType(payload.EventType)
	if err != nil {
		return nil, err
	}
	if payload.DataID == "" {
		return nil, fmt.Errorf("%w: data_id is required", ErrInvalidEvent)
	}
	return &models.Event{
		ID:        payload.ID,
		Name:      payload.Name,
		Date:      payload.Date,
		EventType: eventType,
		DataID:    payload.DataID,
		DataType:  payload.DataType,
		Content:   payload.Content,
		Desc:      payload.Desc,
		From:      payload.From,
	}, nil
}

// Push validates payload, projects it and appends the log row. Both writes
// share one transaction, so a failed append leaves the projection untouched.
func (s *IngestService) Push(ctx context.Context, payload *models.EventPayload) (*models.LogEntry, error) {
	start := time.Now()
	defer func() { metrics.IngestDuration.Observe(time.Since(start).Seconds()) }()

	ev, err := Validate(payload)
	if err != nil {
		metrics.EventsIngested.WithLabelValues("invalid", "rejected").Inc()
		s.log.WarnContext(ctx, "rejected event",
			slog.String("event_type", payload.EventType),
			slog.String("data_id", payload.DataID),
			slog.String("error", err.Error()))
		return nil, err
	}

	if ev.ID == "" {
		if ev.ID, err = NewID(); err != nil {
			return nil, fmt.Errorf("failed to generate event id: %w", err)
		}
	}

	var entry *models.LogEntry
	applied := false
	err = s.store.WithTx(ctx, func(events repositories.EventRepository, states repositories.FinalStateRepository) error {
		snap, err := s.projector.Project(ctx, states, ev)
		if err != nil {
			return err
		}
		if entry, err = s.appender.Append(ctx, events, ev, snap); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrProjectionWriteFailed), errors.Is(err, ErrLogWriteFailed):
		case applied:
			err = fmt.Errorf("%w: failed to commit: %w", ErrLogWriteFailed, err)
		default:
			// The transaction never started, nothing was written.
			err = fmt.Errorf("failed to begin transaction: %w", err)
		}
		metrics.EventsIngested.WithLabelValues(ev.EventType.String(), "error").Inc()
		s.log.ErrorContext(ctx, "failed to ingest event",
			slog.String("event_id", ev.ID),
			slog.String("data_id", ev.DataID),
			slog.String("event_type", ev.EventType.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	metrics.EventsIngested.WithLabelValues(ev.EventType.String(), "ok").Inc()
	s.log.InfoContext(ctx, "event ingested",
		slog.String("log_id", entry.ID),
		slog.String("event_id", ev.ID),
		slog.String("data_id", ev.DataID),
		slog.String("event_type", ev.EventType.String()))

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.WarnContext(ctx, "failed to invalidate lookup cache", slog.String("error", err.Error()))
		}
	}

	return entry, nil
}
