package models

import "time"

// UsageAction tags a billable or auditable action
type UsageAction string

const (
	ActionVideoProcessed  UsageAction = "video_processed"
	ActionClipDownloaded  UsageAction = "clip_downloaded"
	ActionPremiumUpgraded UsageAction = "premium_upgraded"
)

// UsageEvent is an immutable audit record
type UsageEvent struct {
	ID        int64
	AccountID string
	JobID     string
	Action    UsageAction
	Detail    string
	CreatedAt time.Time
}
