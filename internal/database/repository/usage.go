package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/artur/clipforge/internal/database/models"
)

// UsageRepository handles the append-only usage ledger
type UsageRepository struct {
	db *sql.DB
}

// NewUsageRepository creates a new UsageRepository
func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Append records a usage event
func (r *UsageRepository) Append(event *models.UsageEvent) error {
	if event == nil {
		return fmt.Errorf("usage event is nil")
	}

	query := `
		INSERT INTO usage_events (account_id, job_id, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	var jobID sql.NullString
	if event.JobID != "" {
		jobID = sql.NullString{String: event.JobID, Valid: true}
	}

	_, err := r.db.Exec(query,
		event.AccountID,
		jobID,
		event.Action,
		event.Detail,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append usage event: %w", err)
	}

	return nil
}

// ListByAccount returns an account's usage events, newest first
func (r *UsageRepository) ListByAccount(accountID string, limit int) ([]models.UsageEvent, error) {
	query := `
		SELECT id, account_id, job_id, action, detail, created_at
		FROM usage_events
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}
	defer rows.Close()

	var events []models.UsageEvent
	for rows.Next() {
		var event models.UsageEvent
		var jobID, detail sql.NullString
		if err := rows.Scan(
			&event.ID,
			&event.AccountID,
			&jobID,
			&event.Action,
			&detail,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		event.JobID = jobID.String
		event.Detail = detail.String
		events = append(events, event)
	}

	return events, rows.Err()
}

// CountSince returns the number of events with the given action at or after
// the given time
func (r *UsageRepository) CountSince(action models.UsageAction, t time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM usage_events WHERE action = ? AND created_at >= ?`
	err := r.db.QueryRow(query, action, t).Scan(&count)
	return count, err
}
