package quota

import (
	"fmt"
	"time"

	"github.com/artur/clipforge/internal/database/models"
)

const (
	// FreeDailyLimit is the number of videos a free account may process
	// inside one 24h window.
	FreeDailyLimit = 5
	// PremiumMonthlyLimit is the premium ceiling; the counter resets when
	// premium is granted, not on evaluation.
	PremiumMonthlyLimit = 600

	freeWindow = 24 * time.Hour
)

// Decision is the outcome of a quota evaluation
type Decision struct {
	Allowed bool
	Reason  string
	// IsFreeLimit distinguishes the free daily cap from other denials so
	// callers can show an upsell path.
	IsFreeLimit bool
}

// AccountStore is the slice of persistence the engine needs
type AccountStore interface {
	ResetWindow(id string, now time.Time) error
}

// Engine decides whether an account may start a new job
type Engine struct {
	accounts AccountStore
	now      func() time.Time
}

// New creates a quota Engine
func New(accounts AccountStore) *Engine {
	return &Engine{
		accounts: accounts,
		now:      time.Now,
	}
}

// EffectiveTier resolves an account's tier at the given instant. A premium
// account whose expiry has passed counts as free; nothing is persisted here.
func EffectiveTier(account *models.Account, now time.Time) models.Tier {
	if account.Tier == models.TierPremium && account.PremiumExpiry != nil && now.After(*account.PremiumExpiry) {
		return models.TierFree
	}
	return account.Tier
}

// Evaluate applies the quota rules to an account. For free accounts whose 24h
// window has elapsed, the counter reset is persisted before the limit check;
// that is the only side effect. The processed counter is never incremented here.
func (e *Engine) Evaluate(account *models.Account) (Decision, error) {
	if account == nil {
		return Decision{}, fmt.Errorf("account is nil")
	}

	now := e.now()

	switch EffectiveTier(account, now) {
	case models.TierAdmin:
		return Decision{Allowed: true, Reason: "admin"}, nil

	case models.TierPremium:
		if account.VideosProcessed >= PremiumMonthlyLimit {
			return Decision{
				Reason: fmt.Sprintf("Monthly limit reached (%d videos)", PremiumMonthlyLimit),
			}, nil
		}
		return Decision{Allowed: true, Reason: "premium"}, nil
	}

	// Free tier: reset the window first if 24 hours have passed.
	if now.Sub(account.WindowStart) >= freeWindow {
		if err := e.accounts.ResetWindow(account.ID, now); err != nil {
			return Decision{}, fmt.Errorf("reset free window: %w", err)
		}
		account.VideosProcessed = 0
		account.WindowStart = now
	}

	if account.VideosProcessed >= FreeDailyLimit {
		return Decision{
			Reason:      fmt.Sprintf("Daily limit reached (%d videos)", FreeDailyLimit),
			IsFreeLimit: true,
		}, nil
	}

	return Decision{Allowed: true, Reason: "free"}, nil
}
