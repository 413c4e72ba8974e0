package models

import (
	"strings"
	"time"
)

// Design is an image-centric, rateable, taggable submission. Its PublicID is
// the only identifier exposed in URLs.
type Design struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	PublicID     string    `gorm:"size:36;uniqueIndex;not null" json:"id"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	ImageRef     string    `gorm:"size:255;not null" json:"image_ref"`
	ThumbnailRef string    `gorm:"size:255" json:"thumbnail_ref,omitempty"`
	Hashtags     *string   `gorm:"size:500" json:"hashtags"`
	Approved     bool      `gorm:"not null;index" json:"approved"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"author"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Populated by listing queries only.
	MeanRating  *float64 `gorm:"->;-:migration" json:"mean_rating"`
	RatingCount int64    `gorm:"->;-:migration" json:"rating_count"`

	ImageURL     string `gorm:"-" json:"image_url,omitempty"`
	ThumbnailURL string `gorm:"-" json:"thumbnail_url,omitempty"`
}

// HashtagString returns the hashtag string or "" when unset.
func (d *Design) HashtagString() string {
	if d.Hashtags == nil {
		return ""
	}
	return *d.Hashtags
}

// NormalizeHashtags collapses whitespace and maps an empty string to nil.
func NormalizeHashtags(raw string) *string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	joined := strings.Join(fields, " ")
	return &joined
}
