package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/artur/clipforge/internal/database/models"
)

// AccountRepository handles account data persistence
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account
func (r *AccountRepository) Create(account *models.Account) error {
	if account == nil {
		return fmt.Errorf("account is nil")
	}

	query := `
		INSERT INTO accounts (id, email, tier, videos_processed, window_start, premium_expiry, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		account.ID,
		account.Email,
		account.Tier,
		account.VideosProcessed,
		account.WindowStart,
		account.PremiumExpiry,
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID, nil if absent
func (r *AccountRepository) GetByID(id string) (*models.Account, error) {
	query := `
		SELECT id, email, tier, videos_processed, window_start, premium_expiry, created_at
		FROM accounts
		WHERE id = ?
	`

	account := &models.Account{}
	var premiumExpiry sql.NullTime

	err := r.db.QueryRow(query, id).Scan(
		&account.ID,
		&account.Email,
		&account.Tier,
		&account.VideosProcessed,
		&account.WindowStart,
		&premiumExpiry,
		&account.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if premiumExpiry.Valid {
		t := premiumExpiry.Time
		account.PremiumExpiry = &t
	}

	return account, nil
}

// ResetWindow zeroes the processed counter and moves the counting window to now
func (r *AccountRepository) ResetWindow(id string, now time.Time) error {
	query := `UPDATE accounts SET videos_processed = 0, window_start = ? WHERE id = ?`
	if _, err := r.db.Exec(query, now, id); err != nil {
		return fmt.Errorf("failed to reset window: %w", err)
	}
	return nil
}

// IncrementProcessed adds one to the processed counter
func (r *AccountRepository) IncrementProcessed(id string) error {
	query := `UPDATE accounts SET videos_processed = videos_processed + 1 WHERE id = ?`
	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to increment processed count: %w", err)
	}
	return nil
}

// SetPremium toggles premium status. Enabling resets the counter and sets a
// 30-day expiry; disabling clears the expiry.
func (r *AccountRepository) SetPremium(id string, enabled bool, now time.Time) (*models.Account, error) {
	if enabled {
		expiry := now.AddDate(0, 0, 30)
		query := `
			UPDATE accounts
			SET tier = ?, videos_processed = 0, window_start = ?, premium_expiry = ?
			WHERE id = ?
		`
		if _, err := r.db.Exec(query, models.TierPremium, now, expiry, id); err != nil {
			return nil, fmt.Errorf("failed to enable premium: %w", err)
		}
	} else {
		query := `UPDATE accounts SET tier = ?, premium_expiry = NULL WHERE id = ?`
		if _, err := r.db.Exec(query, models.TierFree, id); err != nil {
			return nil, fmt.Errorf("failed to disable premium: %w", err)
		}
	}

	return r.GetByID(id)
}

// GetTotalAccounts returns the total number of accounts
func (r *AccountRepository) GetTotalAccounts() (int64, error) {
	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count)
	return count, err
}

// GetPremiumAccounts returns the number of premium accounts
func (r *AccountRepository) GetPremiumAccounts() (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM accounts WHERE tier = ?`
	err := r.db.QueryRow(query, models.TierPremium).Scan(&count)
	return count, err
}

// GetActiveAccountsSince returns accounts whose counting window was touched
// at or after the given time
func (r *AccountRepository) GetActiveAccountsSince(t time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM accounts WHERE window_start >= ?`
	err := r.db.QueryRow(query, t).Scan(&count)
	return count, err
}
