package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool   *pgxpool.Pool
	events *PostgresEventRepository
	states *PostgresFinalStateRepository
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		events: NewPostgresEventRepository(pool),
		states: NewPostgresFinalStateRepository(pool),
	}
}

func (s *PostgresStore) Events() EventRepository {
	return s.events
}

func (s *PostgresStore) States() FinalStateRepository {
	return s.states
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(events EventRepository, states FinalStateRepository) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(NewPostgresEventRepository(tx), NewPostgresFinalStateRepository(tx))
	})
}
