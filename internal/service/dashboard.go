package service

import (
	"context"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/models"
)

// recentLimit is how many posts and comments the dashboard shows.
const recentLimit = 5

// Stats is the admin dashboard summary. Users is zero for non-admins.
type Stats struct {
	Posts          int
	Comments       int
	Categories     int
	Users          int
	ShowUsers      bool
	RecentPosts    []models.Post
	RecentComments []models.Comment
}

// Dashboard builds the admin landing page summary.
type Dashboard struct {
	posts      PostRepository
	comments   CommentRepository
	categories CategoryRepository
	users      UserRepository
}

// NewDashboard creates the dashboard service.
func NewDashboard(posts PostRepository, comments CommentRepository, categories CategoryRepository, users UserRepository) *Dashboard {
	return &Dashboard{posts: posts, comments: comments, categories: categories, users: users}
}

// Stats collects the dashboard summary. Authors see counts and recent
// activity for their own posts only.
func (d *Dashboard) Stats(ctx context.Context, id access.Identity) (*Stats, error) {
	if err := access.Require(id, access.AdminPanel, access.View); err != nil {
		return nil, err
	}

	var authorID int64
	if !access.Allowed(id, access.Post, access.EditAny) {
		authorID = id.UserID
	}

	st := &Stats{}
	var err error
	if st.Posts, err = d.posts.Count(ctx, authorID); err != nil {
		return nil, models.NewStoreError("Error loading dashboard", err)
	}
	if st.Comments, err = d.comments.Count(ctx, authorID); err != nil {
		return nil, models.NewStoreError("Error loading dashboard", err)
	}
	if st.Categories, err = d.categories.Count(ctx); err != nil {
		return nil, models.NewStoreError("Error loading dashboard", err)
	}
	if access.Allowed(id, access.Dashboard, access.ViewUsers) {
		st.ShowUsers = true
		if st.Users, err = d.users.Count(ctx); err != nil {
			return nil, models.NewStoreError("Error loading dashboard", err)
		}
	}

	if st.RecentPosts, err = d.posts.Recent(ctx, recentLimit, authorID); err != nil {
		return nil, models.NewStoreError("Error loading dashboard", err)
	}
	st.RecentComments, _, err = d.comments.List(ctx, models.CommentFilter{
		AuthorID: authorID,
		Page:     models.Page{Number: 1, PerPage: recentLimit},
	})
	if err != nil {
		return nil, models.NewStoreError("Error loading dashboard", err)
	}
	return st, nil
}
