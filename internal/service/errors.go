package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSource means the source reference is not a recognizable
	// YouTube URL; nothing is created for such requests.
	ErrInvalidSource = errors.New("invalid YouTube URL")

	// ErrNotFound covers absent accounts, jobs, clips, and clip files, and
	// jobs owned by a different account.
	ErrNotFound = errors.New("not found")
)

// QuotaExceededError rejects a submission before any job is created
type QuotaExceededError struct {
	Reason      string
	IsFreeLimit bool
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Reason)
}
