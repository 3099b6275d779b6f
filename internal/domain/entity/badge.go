package entity

import "time"

// BadgeType identifies a non-monetary reward
type BadgeType string

// Badge types granted by the threshold aggregator
const (
	BadgeGoldenMotor BadgeType = "goldenMotor"
)

// Badge is an idempotent (userId, type) grant. Grants are purely additive:
// the aggregator never revokes one.
type Badge struct {
	UserID    uint64
	Type      BadgeType
	Level     int
	Enabled   bool
	CreatedAt time.Time
}
