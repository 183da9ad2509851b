package models

import "time"

// JobState is the processing state of a job
type JobState string

const (
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
	// JobStateDeleted means every clip has been delivered and removed.
	JobStateDeleted JobState = "deleted"
)

// Job represents one video-to-clips processing request
type Job struct {
	ID           string
	AccountID    string
	SourceURL    string
	State        JobState
	Clips        []Clip
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Clip represents one short output artifact belonging to a job
type Clip struct {
	ID          int64
	JobID       string
	Position    int
	Filename    string
	Path        string
	Duration    int
	Description string
	CreatedAt   time.Time
}
