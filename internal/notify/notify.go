package notify

import (
	"context"

	"github.com/artur/clipforge/internal/database/models"
)

// Notifier reports job outcomes to an operator channel
type Notifier interface {
	NotifyJob(ctx context.Context, job *models.Job)
}

// Noop discards notifications; used when no channel is configured
type Noop struct{}

func (Noop) NotifyJob(ctx context.Context, job *models.Job) {}
