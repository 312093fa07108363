package repositories

import (
	"context"
	"fmt"

	"github.com/stong1994/secret-book-server/internal/models"
)

type PostgresEventRepository struct {
	db DBTX
}

func NewPostgresEventRepository(db DBTX) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// Append inserts an immutable log row. RecordedAt is filled from the database.
func (r *PostgresEventRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	query := `INSERT INTO events (id, event_id, name, date, event_type, data_id, snapshot_id, data_type, content, "desc", from_actor)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING recorded_at`

	err := r.db.QueryRow(ctx, query,
		entry.ID,
		entry.EventID,
		entry.Name,
		entry.Date,
		entry.EventType,
		entry.DataID,
		entry.SnapshotID,
		entry.DataType,
		entry.Content,
		entry.Desc,
		entry.From,
	).Scan(&entry.RecordedAt)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// ListSince returns up to limit rows with date strictly after cursor, oldest first.
// A nil cursor starts from the beginning of the log.
func (r *PostgresEventRepository) ListSince(ctx context.Context, cursor *string, limit int) ([]*models.LogEntry, error) {
	query := `SELECT id, event_id, name, date, event_type, data_id, snapshot_id, data_type, content, "desc", from_actor, recorded_at
	          FROM events
	          WHERE ($1::text IS NULL OR date > $1)
	          ORDER BY date ASC, id ASC
	          LIMIT $2`

	rows, err := r.db.Query(ctx, query, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.LogEntry, 0, limit)
	for rows.Next() {
		var entry models.LogEntry
		err := rows.Scan(
			&entry.ID,
			&entry.EventID,
			&entry.Name,
			&entry.Date,
			&entry.EventType,
			&entry.DataID,
			&entry.SnapshotID,
			&entry.DataType,
			&entry.Content,
			&entry.Desc,
			&entry.From,
			&entry.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return entries, nil
}
