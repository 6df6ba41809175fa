package models

import "time"

// PostStatus represents the publishing state of a post. Any status may
// move to any other.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

// PostStatuses lists the allowed post statuses in display order.
var PostStatuses = []PostStatus{PostStatusDraft, PostStatusPublished, PostStatusArchived}

// Valid reports whether s is a known post status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

// Post is a blog article. AuthorName and CategoryName are joined in on
// every read.
type Post struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Excerpt       string     `json:"excerpt"`
	AuthorID      int64      `json:"author_id"`
	AuthorName    string     `json:"author"`
	CategoryID    int64      `json:"category_id"`
	CategoryName  string     `json:"category"`
	Status        PostStatus `json:"status"`
	FeaturedImage string     `json:"featured_image,omitempty"`
	Tags          []Tag      `json:"tags"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsPublished returns true if the post is in published status.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// TagNames returns the names of the post's tags.
func (p *Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

// PostFilter narrows a post listing. Zero values mean "any".
type PostFilter struct {
	Status     PostStatus
	CategoryID int64
	AuthorID   int64
	Search     string

	// PublishedOrOwner restricts results to published posts plus the
	// given user's own posts. Zero disables the restriction unless
	// PublishedOnly is set.
	PublishedOrOwner int64
	PublishedOnly    bool

	Page Page
}

// PostInput is the writable part of a post used by create and update.
// Nil pointers on update mean "leave unchanged".
type PostInput struct {
	Title         *string
	Content       *string
	Excerpt       *string
	CategoryID    *int64
	Status        *PostStatus
	FeaturedImage *string
	Tags          []string
	SetTags       bool // Tags replaces the current set when true
}
