package service

import (
	"context"
	"fmt"
	"time"

	"github.com/artur/clipforge/internal/database/models"
	"github.com/artur/clipforge/internal/quota"
)

// Overview holds the admin dashboard counters
type Overview struct {
	TotalAccounts   int64
	ActiveAccounts  int64
	PremiumAccounts int64
	CompletedJobs   int64
	TodayUsage      int64
}

// Overview returns platform-wide counters
func (o *Orchestrator) Overview(ctx context.Context) (*Overview, error) {
	totalAccounts, err := o.accounts.GetTotalAccounts()
	if err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}

	activeAccounts, err := o.accounts.GetActiveAccountsSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		return nil, fmt.Errorf("count active accounts: %w", err)
	}

	premiumAccounts, err := o.accounts.GetPremiumAccounts()
	if err != nil {
		return nil, fmt.Errorf("count premium accounts: %w", err)
	}

	completedJobs, err := o.jobs.GetCompletedJobs()
	if err != nil {
		return nil, fmt.Errorf("count completed jobs: %w", err)
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todayUsage, err := o.usage.CountSince(models.ActionVideoProcessed, midnight)
	if err != nil {
		return nil, fmt.Errorf("count today's usage: %w", err)
	}

	return &Overview{
		TotalAccounts:   totalAccounts,
		ActiveAccounts:  activeAccounts,
		PremiumAccounts: premiumAccounts,
		CompletedJobs:   completedJobs,
		TodayUsage:      todayUsage,
	}, nil
}

// SetPremium toggles an account's premium status. Enabling resets the
// processed counter and sets a 30-day expiry; disabling clears the expiry.
// Either way one premium_upgraded event lands in the ledger.
func (o *Orchestrator) SetPremium(ctx context.Context, accountID string, enabled bool) (*models.Account, error) {
	account, err := o.accounts.GetByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return nil, ErrNotFound
	}

	updated, err := o.accounts.SetPremium(accountID, enabled, time.Now())
	if err != nil {
		return nil, fmt.Errorf("set premium: %w", err)
	}

	detail := map[string]interface{}{"premium": enabled}
	if updated.PremiumExpiry != nil {
		detail["expiry"] = updated.PremiumExpiry.Format(time.RFC3339)
	}
	o.appendUsage(ctx, accountID, "", models.ActionPremiumUpgraded, detail)

	o.logger.Info(ctx, "Premium for account %s set to %t", accountID, enabled)
	return updated, nil
}

// AccountUsage returns an account's ledger entries, newest first
func (o *Orchestrator) AccountUsage(ctx context.Context, accountID string, limit int) ([]models.UsageEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	account, err := o.accounts.GetByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return nil, ErrNotFound
	}

	return o.usage.ListByAccount(accountID, limit)
}

// AccountStats is the quota picture for one account
type AccountStats struct {
	Tier                 models.Tier
	VideosProcessed      int64
	WindowStart          time.Time
	RemainingPremiumDays int
	CanProcess           bool
	FreeLimitReached     bool
}

// Stats reports an account's effective tier and remaining headroom without
// mutating anything
func (o *Orchestrator) Stats(ctx context.Context, accountID string) (*AccountStats, error) {
	account, err := o.accounts.GetByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return nil, ErrNotFound
	}

	now := time.Now()
	tier := quota.EffectiveTier(account, now)

	stats := &AccountStats{
		Tier:            tier,
		VideosProcessed: account.VideosProcessed,
		WindowStart:     account.WindowStart,
	}

	if tier == models.TierPremium && account.PremiumExpiry != nil {
		days := int(time.Until(*account.PremiumExpiry).Hours() / 24)
		if days < 0 {
			days = 0
		}
		stats.RemainingPremiumDays = days
	}

	windowElapsed := now.Sub(account.WindowStart) >= 24*time.Hour

	switch tier {
	case models.TierAdmin:
		stats.CanProcess = true
	case models.TierPremium:
		stats.CanProcess = account.VideosProcessed < quota.PremiumMonthlyLimit
	default:
		stats.CanProcess = windowElapsed || account.VideosProcessed < quota.FreeDailyLimit
		stats.FreeLimitReached = !windowElapsed && account.VideosProcessed >= quota.FreeDailyLimit
	}

	return stats, nil
}
