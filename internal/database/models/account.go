package models

import "time"

// Tier is an account's quota class
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierAdmin   Tier = "admin"
)

// Account represents a registered user account
type Account struct {
	ID              string
	Email           string
	Tier            Tier
	VideosProcessed int64
	WindowStart     time.Time
	PremiumExpiry   *time.Time
	CreatedAt       time.Time
}
