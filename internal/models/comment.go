package models

import "time"

// CommentStatus is the moderation state of a comment. Moderators may move
// a comment between any two states.
type CommentStatus string

const (
	CommentStatusPending  CommentStatus = "pending"
	CommentStatusApproved CommentStatus = "approved"
	CommentStatusSpam     CommentStatus = "spam"
)

// CommentStatuses lists the moderation states in display order.
var CommentStatuses = []CommentStatus{CommentStatusPending, CommentStatusApproved, CommentStatusSpam}

// Valid reports whether s is a known moderation state.
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentStatusPending, CommentStatusApproved, CommentStatusSpam:
		return true
	}
	return false
}

// Comment is a reader comment on a post. ParentID is set only on replies,
// and a reply's parent is always a top-level comment on the same post.
type Comment struct {
	ID        int64         `json:"id"`
	PostID    int64         `json:"post_id"`
	UserID    int64         `json:"user_id"`
	Username  string        `json:"username"`
	Content   string        `json:"content"`
	Status    CommentStatus `json:"status"`
	ParentID  *int64        `json:"parent_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Populated by specific queries only.
	PostTitle string    `json:"post_title,omitempty"`
	Replies   []Comment `json:"replies,omitempty"`
}

// IsReply returns true if the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// CommentPatch is a partial comment update. At least one field must be set.
type CommentPatch struct {
	Content *string        `json:"content,omitempty"`
	Status  *CommentStatus `json:"status,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p CommentPatch) Empty() bool {
	return p.Content == nil && p.Status == nil
}

// CommentFilter narrows the moderation listing.
type CommentFilter struct {
	Status CommentStatus
	PostID int64
	Search string // matched against content, username, and post title

	// AuthorID limits results to comments on posts written by this user.
	AuthorID int64

	Page Page
}
