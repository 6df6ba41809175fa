package service

import (
	"context"
	"sort"
	"strings"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/metrics"
	"github.com/SherPsu/cms-blog/internal/models"
)

// Comments implements posting, threading, editing, and moderation of
// comments. Threads are one level deep: a reply's parent is always a
// top-level comment on the same post.
type Comments struct {
	comments CommentRepository
	posts    PostRepository
}

// NewComments creates the comment service.
func NewComments(comments CommentRepository, posts PostRepository) *Comments {
	return &Comments{comments: comments, posts: posts}
}

// CreateResult is the outcome of posting a comment. Comment is nil when
// the comment was queued for moderation.
type CreateResult struct {
	Comment *models.Comment
	Pending bool
}

// Create posts a comment, or a reply when parentID is set. Comments by
// holders of comment:auto_approve are published immediately; all others
// start pending.
func (s *Comments) Create(ctx context.Context, id access.Identity, postID int64, content string, parentID *int64) (*CreateResult, error) {
	if err := access.Require(id, access.Comment, access.Create); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if msg := validateComment(content); msg != "" {
		return nil, models.NewValidationError(msg)
	}

	if _, err := visiblePost(ctx, s.posts, id, postID); err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.comments.FindByID(ctx, *parentID)
		if err != nil {
			return nil, models.NewStoreError("Error loading parent comment", err)
		}
		if parent == nil || parent.PostID != postID {
			return nil, models.NewNotFoundError("Parent comment not found")
		}
		if parent.IsReply() {
			return nil, models.NewValidationError("Replies to replies are not allowed")
		}
	}

	status := models.CommentStatusPending
	if access.Allowed(id, access.Comment, access.AutoApprove) {
		status = models.CommentStatusApproved
	}

	c := &models.Comment{
		PostID:   postID,
		UserID:   id.UserID,
		Content:  content,
		Status:   status,
		ParentID: parentID,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, models.NewStoreError("Error creating comment", err)
	}

	metrics.CommentsCreated.WithLabelValues(string(status)).Inc()
	if status == models.CommentStatusPending {
		return &CreateResult{Pending: true}, nil
	}
	return &CreateResult{Comment: c}, nil
}

// List returns the threaded comments of a post: top-level comments newest
// first, each carrying its replies oldest first. Viewers without
// comment:view_all see approved comments only.
func (s *Comments) List(ctx context.Context, id access.Identity, postID int64) ([]models.Comment, error) {
	if _, err := visiblePost(ctx, s.posts, id, postID); err != nil {
		return nil, err
	}

	approvedOnly := !access.Allowed(id, access.Comment, access.ViewAll)
	flat, err := s.comments.ListByPost(ctx, postID, approvedOnly)
	if err != nil {
		return nil, models.NewStoreError("Error loading comments", err)
	}
	return Thread(flat), nil
}

// Thread groups a flat comment list into top-level comments with nested
// replies. Replies whose parent is not in the list are dropped.
func Thread(flat []models.Comment) []models.Comment {
	replies := make(map[int64][]models.Comment)
	var top []models.Comment
	for _, c := range flat {
		if c.ParentID == nil {
			top = append(top, c)
			continue
		}
		replies[*c.ParentID] = append(replies[*c.ParentID], c)
	}

	sort.SliceStable(top, func(i, j int) bool {
		if !top[i].CreatedAt.Equal(top[j].CreatedAt) {
			return top[i].CreatedAt.After(top[j].CreatedAt)
		}
		return top[i].ID > top[j].ID
	})

	out := make([]models.Comment, 0, len(top))
	for _, c := range top {
		rs := replies[c.ID]
		sort.SliceStable(rs, func(i, j int) bool {
			if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
				return rs[i].CreatedAt.Before(rs[j].CreatedAt)
			}
			return rs[i].ID < rs[j].ID
		})
		c.Replies = rs
		out = append(out, c)
	}
	return out
}

// Update edits a comment. Owners may change content; only moderators may
// change status.
func (s *Comments) Update(ctx context.Context, id access.Identity, commentID int64, patch models.CommentPatch) (*models.Comment, error) {
	if !access.IsAuthenticated(id) {
		return nil, models.NewAuthenticationError("Authentication required")
	}

	c, err := s.find(ctx, commentID)
	if err != nil {
		return nil, err
	}

	moderator := access.Allowed(id, access.Comment, access.Moderate)
	if !access.Owns(id, c.UserID) && !moderator {
		return nil, models.NewPermissionError("You do not have permission to update this comment")
	}

	if patch.Empty() {
		return nil, models.NewValidationError("No fields to update")
	}
	if patch.Status != nil {
		if !moderator {
			return nil, models.NewPermissionError("Only moderators can change comment status")
		}
		if !patch.Status.Valid() {
			return nil, models.NewValidationError("Invalid status")
		}
	}
	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if msg := validateComment(content); msg != "" {
			return nil, models.NewValidationError(msg)
		}
		patch.Content = &content
	}

	if err := s.comments.Update(ctx, commentID, patch); err != nil {
		return nil, models.NewStoreError("Error updating comment", err)
	}
	return s.find(ctx, commentID)
}

// Moderate sets a comment's status.
func (s *Comments) Moderate(ctx context.Context, id access.Identity, commentID int64, status models.CommentStatus) (*models.Comment, error) {
	if err := access.Require(id, access.Comment, access.Moderate); err != nil {
		return nil, err
	}
	return s.Update(ctx, id, commentID, models.CommentPatch{Status: &status})
}

// Delete removes a comment and, through the foreign key, its replies.
func (s *Comments) Delete(ctx context.Context, id access.Identity, commentID int64) error {
	if !access.IsAuthenticated(id) {
		return models.NewAuthenticationError("Authentication required")
	}

	c, err := s.find(ctx, commentID)
	if err != nil {
		return err
	}
	if !access.CanModify(id, c.UserID, access.Comment, access.Moderate) {
		return models.NewPermissionError("You do not have permission to delete this comment")
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return models.NewStoreError("Error deleting comment", err)
	}
	return nil
}

// ListForModeration returns comments across all posts for the moderation
// screen, newest first.
func (s *Comments) ListForModeration(ctx context.Context, id access.Identity, f models.CommentFilter) ([]models.Comment, models.Pagination, error) {
	if err := access.Require(id, access.Comment, access.Moderate); err != nil {
		return nil, models.Pagination{}, err
	}
	if f.Status != "" && !f.Status.Valid() {
		f.Status = ""
	}

	list, total, err := s.comments.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, models.NewStoreError("Error loading comments", err)
	}
	return list, models.Paginate(f.Page, total), nil
}

func (s *Comments) find(ctx context.Context, commentID int64) (*models.Comment, error) {
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, models.NewStoreError("Error loading comment", err)
	}
	if c == nil {
		return nil, models.NewNotFoundError("Comment not found")
	}
	return c, nil
}
