package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/clipforge/internal/database/models"
	"github.com/artur/clipforge/internal/logger"
)

// TelegramNotifier sends job outcome messages to a fixed operator chat
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger logger.Logger
}

// NewTelegramNotifier creates a TelegramNotifier for the given bot token and chat
func NewTelegramNotifier(token string, chatID int64, log logger.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		logger: log,
	}, nil
}

// NotifyJob sends a short status line for a terminal job. Send failures are
// logged only; notification never affects job state.
func (n *TelegramNotifier) NotifyJob(ctx context.Context, job *models.Job) {
	text := FormatJobMessage(job)
	if text == "" {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Warn(ctx, "Failed to send notification for job %s: %v", job.ID, err)
	}
}

// FormatJobMessage renders the operator message for a terminal job, or ""
// for states that do not warrant one
func FormatJobMessage(job *models.Job) string {
	switch job.State {
	case models.JobStateCompleted:
		return fmt.Sprintf("✅ Job %s completed: %d clips", job.ID, len(job.Clips))
	case models.JobStateFailed:
		return fmt.Sprintf("❌ Job %s failed: %s", job.ID, job.ErrorMessage)
	default:
		return ""
	}
}
