// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a community member. Accounts are created on the first successful
// external identity exchange and are never deleted in normal operation.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Subject    string    `gorm:"size:255;uniqueIndex;not null" json:"-"`
	Name       string    `gorm:"size:255" json:"name"`
	Email      string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	ProfilePic string    `gorm:"size:1024" json:"profile_pic"`
	IsAdmin    bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ExternalIdentity is what the identity provider tells us about a login.
type ExternalIdentity struct {
	Provider   string `json:"provider"`
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	PictureURL string `json:"picture"`
}

// Actor is the authenticated user on whose behalf a mutation runs.
type Actor struct {
	UserID  uint
	IsAdmin bool
}

// ActorFor builds the actor context for a loaded user.
func ActorFor(u *User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, IsAdmin: u.IsAdmin}
}
