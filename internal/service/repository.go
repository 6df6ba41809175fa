// Package service holds the blog's business rules: visibility, ownership,
// moderation, and validation. Services take the caller's access.Identity
// explicitly and return *models.AppError values the HTTP layer maps to
// status codes.
package service

import (
	"context"

	"github.com/SherPsu/cms-blog/internal/models"
)

// The repository interfaces below are satisfied by the types in
// internal/store and by the in-memory fakes in internal/testutil.

// PostRepository persists posts.
type PostRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Post, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, f models.PostFilter) ([]models.Post, int, error)
	Recent(ctx context.Context, limit int, authorID int64) ([]models.Post, error)
	Create(ctx context.Context, p *models.Post) error
	Update(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, authorID int64) (int, error)
	IDsByAuthor(ctx context.Context, authorID int64) ([]int64, error)
}

// TagRepository persists tags and post-tag links.
type TagRepository interface {
	FindOrCreate(ctx context.Context, name string) (*models.Tag, error)
	Attach(ctx context.Context, postID, tagID int64) error
	DetachAll(ctx context.Context, postID int64) error
	List(ctx context.Context) ([]models.Tag, error)
}

// CategoryRepository persists categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id int64) (*models.Category, error)
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	CountPosts(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// CommentRepository persists comments.
type CommentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Comment, error)
	Create(ctx context.Context, c *models.Comment) error
	ListByPost(ctx context.Context, postID int64, approvedOnly bool) ([]models.Comment, error)
	Update(ctx context.Context, id int64, patch models.CommentPatch) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f models.CommentFilter) ([]models.Comment, int, error)
	Count(ctx context.Context, authorID int64) (int, error)
}

// ReactionRepository persists one reaction per user and post.
type ReactionRepository interface {
	Find(ctx context.Context, postID, userID int64) (*models.Reaction, error)
	Insert(ctx context.Context, postID, userID int64, t models.ReactionType) error
	ChangeType(ctx context.Context, postID, userID int64, t models.ReactionType) error
	Delete(ctx context.Context, postID, userID int64) error
	Counts(ctx context.Context, postID int64) (models.ReactionCounts, error)
}

// UserRepository persists accounts and password hashes.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Taken(ctx context.Context, username, email string, excludeID int64) (bool, error)
	List(ctx context.Context, f models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, username, email, password string, role models.Role) (*models.User, error)
	Update(ctx context.Context, id int64, upd models.UserUpdate) error
	SetPassword(ctx context.Context, id int64, password string) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	CheckPassword(user *models.User, password string) bool
}
