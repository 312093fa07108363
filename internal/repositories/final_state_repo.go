package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stong1994/secret-book-server/internal/models"
)

const finalStateColumns = `id, name, date, data_type, content, "desc", updated_at`

type PostgresFinalStateRepository struct {
	db DBTX
}

func NewPostgresFinalStateRepository(db DBTX) *PostgresFinalStateRepository {
	return &PostgresFinalStateRepository{db: db}
}

func (r *PostgresFinalStateRepository) GetByID(ctx context.Context, id string) (*models.FinalState, error) {
	query := `SELECT ` + finalStateColumns + ` FROM finalstates WHERE id = $1`

	state, err := scanFinalState(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get final state by ID: %w", err)
	}
	return state, nil
}

// Upsert overwrites the row for state.ID unconditionally. There is no
// existence check: a CREATE over an existing row behaves like an UPDATE.
func (r *PostgresFinalStateRepository) Upsert(ctx context.Context, state *models.FinalState) error {
	query := `INSERT INTO finalstates (id, name, date, data_type, content, "desc")
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (id) DO UPDATE
	          SET name = EXCLUDED.name,
	              date = EXCLUDED.date,
	              data_type = EXCLUDED.data_type,
	              content = EXCLUDED.content,
	              "desc" = EXCLUDED."desc",
	              updated_at = NOW()
	          RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		state.ID,
		state.Name,
		state.Date,
		state.DataType,
		state.Content,
		state.Desc,
	).Scan(&state.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert final state: %w", err)
	}
	return nil
}

// Insert creates the row for state.ID and fails with ErrStateExists if it is already present.
func (r *PostgresFinalStateRepository) Insert(ctx context.Context, state *models.FinalState) error {
	query := `INSERT INTO finalstates (id, name, date, data_type, content, "desc")
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (id) DO NOTHING
	          RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		state.ID,
		state.Name,
		state.Date,
		state.DataType,
		state.Content,
		state.Desc,
	).Scan(&state.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStateExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert final state: %w", err)
	}
	return nil
}

// Delete removes the row for id. Deleting a missing row is not an error.
func (r *PostgresFinalStateRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM finalstates WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete final state: %w", err)
	}
	return nil
}

func (r *PostgresFinalStateRepository) ListByType(ctx context.Context, dataType string, cursor *string, limit int) ([]*models.FinalState, error) {
	query := `SELECT ` + finalStateColumns + `
	          FROM finalstates
	          WHERE data_type = $1 AND ($2::text IS NULL OR id > $2)
	          ORDER BY id ASC
	          LIMIT $3`

	rows, err := r.db.Query(ctx, query, dataType, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query final states: %w", err)
	}
	return collectFinalStates(rows)
}

// Search returns every row whose name or desc contains term, byte for byte.
// strpos is used instead of LIKE so that % and _ in term match literally.
func (r *PostgresFinalStateRepository) Search(ctx context.Context, term string) ([]*models.FinalState, error) {
	query := `SELECT ` + finalStateColumns + `
	          FROM finalstates
	          WHERE strpos(name, $1) > 0 OR strpos("desc", $1) > 0
	          ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, term)
	if err != nil {
		return nil, fmt.Errorf("failed to search final states: %w", err)
	}
	return collectFinalStates(rows)
}

func scanFinalState(row pgx.Row) (*models.FinalState, error) {
	var state models.FinalState
	err := row.Scan(
		&state.ID,
		&state.Name,
		&state.Date,
		&state.DataType,
		&state.Content,
		&state.Desc,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func collectFinalStates(rows pgx.Rows) ([]*models.FinalState, error) {
	defer rows.Close()

	states := []*models.FinalState{}
	for rows.Next() {
		state, err := scanFinalState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan final state: %w", err)
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating final states: %w", err)
	}

	return states, nil
}
