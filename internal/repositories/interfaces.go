package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stong1994/secret-book-server/internal/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrStateExists = errors.New("final state already exists")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type EventRepository interface {
	Append(ctx context.Context, entry *models.LogEntry) error
	ListSince(ctx context.Context, cursor *string, limit int) ([]*models.LogEntry, error)
}

type FinalStateRepository interface {
	GetByID(ctx context.Context, id string) (*models.FinalState, error)
	Upsert(ctx context.Context, state *models.FinalState) error
	Insert(ctx context.Context, state *models.FinalState) error
	Delete(ctx context.Context, id string) error
	ListByType(ctx context.Context, dataType string, cursor *string, limit int) ([]*models.FinalState, error)
	Search(ctx context.Context, term string) ([]*models.FinalState, error)
}

// Store groups both tables. WithTx runs fn against repositories bound to a
// single transaction; fn's error rolls it back.
type Store interface {
	Events() EventRepository
	States() FinalStateRepository
	WithTx(ctx context.Context, fn func(events EventRepository, states FinalStateRepository) error) error
}

// LookupCache stores host lookups under a generation. A lookup reads the
// generation once and passes it to both Get and Set, so results computed
// before an Invalidate are never visible after it.
type LookupCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, host string) ([]*models.FinalState, bool, error)
	Set(ctx context.Context, gen int64, host string, states []*models.FinalState) error
	Invalidate(ctx context.Context) error
}
