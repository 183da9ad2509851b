package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/artur/clipforge/internal/database/models"
)

// JobRepository handles job and clip persistence
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job in processing state
func (r *JobRepository) Create(job *models.Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}

	query := `
		INSERT INTO jobs (id, account_id, source_url, state, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		job.ID,
		job.AccountID,
		job.SourceURL,
		job.State,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetByIDForAccount retrieves a job with its clips, nil if absent or owned by
// a different account
func (r *JobRepository) GetByIDForAccount(jobID, accountID string) (*models.Job, error) {
	query := `
		SELECT id, account_id, source_url, state, error_message, created_at, completed_at
		FROM jobs
		WHERE id = ? AND account_id = ?
	`

	job := &models.Job{}
	var errorMessage sql.NullString
	var completedAt sql.NullTime

	err := r.db.QueryRow(query, jobID, accountID).Scan(
		&job.ID,
		&job.AccountID,
		&job.SourceURL,
		&job.State,
		&errorMessage,
		&job.CreatedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	job.ErrorMessage = errorMessage.String
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	clips, err := r.getClips(job.ID)
	if err != nil {
		return nil, err
	}
	job.Clips = clips

	return job, nil
}

func (r *JobRepository) getClips(jobID string) ([]models.Clip, error) {
	query := `
		SELECT id, job_id, position, filename, path, duration_seconds, description, created_at
		FROM clips
		WHERE job_id = ?
		ORDER BY position
	`

	rows, err := r.db.Query(query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get clips: %w", err)
	}
	defer rows.Close()

	var clips []models.Clip
	for rows.Next() {
		var clip models.Clip
		var description sql.NullString
		if err := rows.Scan(
			&clip.ID,
			&clip.JobID,
			&clip.Position,
			&clip.Filename,
			&clip.Path,
			&clip.Duration,
			&description,
			&clip.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		clip.Description = description.String
		clips = append(clips, clip)
	}

	return clips, rows.Err()
}

// MarkCompleted moves a job to the completed state and attaches its clips in
// a single transaction
func (r *JobRepository) MarkCompleted(jobID string, clips []models.Clip, completedAt time.Time) error {
	if len(clips) == 0 {
		return fmt.Errorf("completed job must have at least one clip")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE jobs SET state = ?, completed_at = ? WHERE id = ?`
	if _, err := tx.Exec(query, models.JobStateCompleted, completedAt, jobID); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	clipQuery := `
		INSERT INTO clips (job_id, position, filename, path, duration_seconds, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, clip := range clips {
		if _, err := tx.Exec(clipQuery,
			jobID,
			clip.Position,
			clip.Filename,
			clip.Path,
			clip.Duration,
			clip.Description,
			clip.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert clip %d: %w", clip.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job completion: %w", err)
	}

	return nil
}

// MarkFailed moves a job to the failed state with the causing message
func (r *JobRepository) MarkFailed(jobID, errorMessage string, completedAt time.Time) error {
	query := `UPDATE jobs SET state = ?, error_message = ?, completed_at = ? WHERE id = ?`
	if _, err := r.db.Exec(query, models.JobStateFailed, errorMessage, completedAt, jobID); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

// RemoveClip deletes a delivered clip record. When the last clip goes, the
// job advances to the deleted state. Returns the number of remaining clips.
func (r *JobRepository) RemoveClip(jobID string, clipID int64) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM clips WHERE id = ? AND job_id = ?`, clipID, jobID); err != nil {
		return 0, fmt.Errorf("failed to remove clip: %w", err)
	}

	var remaining int64
	if err := tx.QueryRow(`SELECT COUNT(*) FROM clips WHERE job_id = ?`, jobID).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("failed to count remaining clips: %w", err)
	}

	if remaining == 0 {
		if _, err := tx.Exec(`UPDATE jobs SET state = ? WHERE id = ?`, models.JobStateDeleted, jobID); err != nil {
			return 0, fmt.Errorf("failed to mark job deleted: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit clip removal: %w", err)
	}

	return remaining, nil
}

// GetCompletedJobs returns the total number of completed jobs
func (r *JobRepository) GetCompletedJobs() (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM jobs WHERE state = ?`
	err := r.db.QueryRow(query, models.JobStateCompleted).Scan(&count)
	return count, err
}
