package models

import "time"

// Rating is one user's score for one design. (user_id, design_id) is unique.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Value     int       `gorm:"not null;check:value >= 1 AND value <= 10" json:"value"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_rating_user_design" json:"user_id"`
	DesignID  uint      `gorm:"not null;uniqueIndex:idx_rating_user_design;index" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingSummary is the aggregate shown next to a design.
type RatingSummary struct {
	// Mean is nil when the design has no ratings.
	Mean    *float64 `json:"mean_rating"`
	Display float64  `json:"display_rating"`
	Count   int64    `json:"rating_count"`
	Mine    *int     `json:"my_rating,omitempty"`
}
