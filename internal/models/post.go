package models

import "time"

// Post types.
const (
	PostTypeDiscussion   = "discussion"
	PostTypeAnnouncement = "announcement"
)

// DefaultSubject is used when a post is created or converted without one.
const DefaultSubject = "General"

// Subjects is the curated suggestion list for discussion subjects. It is not
// enforced by the store.
var Subjects = []string{
	"General",
	"Design Feedback",
	"Voting Process",
	"Symbolism",
	"Past Designs",
	"Colonial Flags",
}

// Post is a discussion forum item.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	PostType     string    `gorm:"size:20;not null;index" json:"post_type"`
	Subject      string    `gorm:"size:100;index" json:"subject"`
	ImageRef     *string   `gorm:"size:255" json:"image_ref"`
	ThumbnailRef string    `gorm:"size:255" json:"thumbnail_ref,omitempty"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"author"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	ImageURL     string `gorm:"-" json:"image_url,omitempty"`
	ThumbnailURL string `gorm:"-" json:"thumbnail_url,omitempty"`
}

// HasImage reports whether the post currently holds an image reference.
func (p *Post) HasImage() bool {
	return p.ImageRef != nil && *p.ImageRef != ""
}

// IsValidPostType reports whether t is a known post type.
func IsValidPostType(t string) bool {
	return t == PostTypeDiscussion || t == PostTypeAnnouncement
}
