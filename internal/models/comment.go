package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ParentKind names the content item a comment hangs off.
type ParentKind string

const (
	ParentDesign ParentKind = "design"
	ParentPost   ParentKind = "post"
)

// ErrInvalidCommentParent is returned when a comment would be saved with
// zero or two parents.
var ErrInvalidCommentParent = errors.New("comment must have exactly one parent")

// CommentParent is either a Design or a Post. The zero value is not a valid
// parent; build one with DesignParent or PostParent.
type CommentParent struct {
	kind ParentKind
	id   uint
}

// DesignParent addresses the comments of a design by internal id.
func DesignParent(designID uint) CommentParent {
	return CommentParent{kind: ParentDesign, id: designID}
}

// PostParent addresses the comments of a post.
func PostParent(postID uint) CommentParent {
	return CommentParent{kind: ParentPost, id: postID}
}

func (p CommentParent) Kind() ParentKind { return p.kind }
func (p CommentParent) ID() uint         { return p.id }

// Valid reports whether p names exactly one existing-looking parent.
func (p CommentParent) Valid() bool {
	return (p.kind == ParentDesign || p.kind == ParentPost) && p.id != 0
}

// Column is the foreign key column holding this parent.
func (p CommentParent) Column() string {
	if p.kind == ParentDesign {
		return "design_id"
	}
	return "post_id"
}

func (p CommentParent) String() string {
	return fmt.Sprintf("%s:%d", p.kind, p.id)
}

// Comment belongs to exactly one Design or Post. DesignID and PostID are the
// storage columns; write them through SetParent only.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"author"`
	DesignID  *uint     `gorm:"index;check:(design_id IS NULL) <> (post_id IS NULL)" json:"-"`
	PostID    *uint     `gorm:"index" json:"post_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewComment builds an unsaved comment attached to parent.
func NewComment(parent CommentParent, userID uint, content string) (*Comment, error) {
	c := &Comment{UserID: userID, Content: content}
	if err := c.SetParent(parent); err != nil {
		return nil, err
	}
	return c, nil
}

// Parent decodes the storage columns into the union.
func (c *Comment) Parent() (CommentParent, error) {
	switch {
	case c.DesignID != nil && c.PostID == nil:
		return DesignParent(*c.DesignID), nil
	case c.PostID != nil && c.DesignID == nil:
		return PostParent(*c.PostID), nil
	default:
		return CommentParent{}, ErrInvalidCommentParent
	}
}

// SetParent moves the comment to parent, clearing the other column.
func (c *Comment) SetParent(parent CommentParent) error {
	if !parent.Valid() {
		return ErrInvalidCommentParent
	}
	id := parent.ID()
	switch parent.Kind() {
	case ParentDesign:
		c.DesignID, c.PostID = &id, nil
	case ParentPost:
		c.DesignID, c.PostID = nil, &id
	}
	return nil
}

// BeforeSave rejects comments that have lost their single parent.
func (c *Comment) BeforeSave(_ *gorm.DB) error {
	_, err := c.Parent()
	return err
}
