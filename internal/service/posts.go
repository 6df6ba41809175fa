package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/metrics"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/publish"
	"github.com/SherPsu/cms-blog/internal/text"
)

// Posts implements post authoring and reading. Every successful save
// refreshes the post's snapshot through the publisher.
type Posts struct {
	posts      PostRepository
	tags       TagRepository
	categories CategoryRepository
	publisher  publish.Publisher
}

// NewPosts creates the post service. A nil publisher disables snapshots.
func NewPosts(posts PostRepository, tags TagRepository, categories CategoryRepository, publisher publish.Publisher) *Posts {
	if publisher == nil {
		publisher = publish.Nop{}
	}
	return &Posts{posts: posts, tags: tags, categories: categories, publisher: publisher}
}

// Get returns a post the caller may see.
func (s *Posts) Get(ctx context.Context, id access.Identity, postID int64) (*models.Post, error) {
	return visiblePost(ctx, s.posts, id, postID)
}

// List returns a page of posts. Callers without post:view_unpublished see
// published posts plus their own.
func (s *Posts) List(ctx context.Context, id access.Identity, f models.PostFilter) ([]models.Post, models.Pagination, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, models.Pagination{}, models.NewValidationError("Invalid status")
	}
	f.PublishedOnly = false
	f.PublishedOrOwner = 0
	if !access.Allowed(id, access.Post, access.ViewUnpublished) {
		if access.IsAuthenticated(id) {
			f.PublishedOrOwner = id.UserID
		} else {
			f.PublishedOnly = true
		}
	}
	return s.list(ctx, f)
}

// ListManaged returns the posts shown in the admin panel. Authors see only
// their own posts.
func (s *Posts) ListManaged(ctx context.Context, id access.Identity, f models.PostFilter) ([]models.Post, models.Pagination, error) {
	if err := access.Require(id, access.AdminPanel, access.View); err != nil {
		return nil, models.Pagination{}, err
	}
	if f.Status != "" && !f.Status.Valid() {
		f.Status = ""
	}
	f.PublishedOnly = false
	f.PublishedOrOwner = 0
	if !access.Allowed(id, access.Post, access.EditAny) {
		f.AuthorID = id.UserID
	}
	return s.list(ctx, f)
}

func (s *Posts) list(ctx context.Context, f models.PostFilter) ([]models.Post, models.Pagination, error) {
	posts, total, err := s.posts.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, models.NewStoreError("Error loading posts", err)
	}
	return posts, models.Paginate(f.Page, total), nil
}

// Create adds a post authored by the caller. Title, content, and category
// are required; status defaults to draft and a missing excerpt is derived
// from the content.
func (s *Posts) Create(ctx context.Context, id access.Identity, in models.PostInput) (*models.Post, error) {
	if err := access.Require(id, access.Post, access.Create); err != nil {
		return nil, err
	}

	p := &models.Post{AuthorID: id.UserID, Status: models.PostStatusDraft}
	if in.CategoryID == nil || *in.CategoryID <= 0 {
		return nil, models.NewValidationError("Title, content, and category are required")
	}
	if err := s.apply(ctx, p, in); err != nil {
		return nil, err
	}

	if err := s.posts.Create(ctx, p); err != nil {
		return nil, models.NewStoreError("Error creating post", err)
	}
	if in.SetTags {
		s.replaceTags(ctx, p.ID, in.Tags)
	}

	return s.saved(ctx, p.ID)
}

// Update applies a partial edit. Only the author and holders of
// post:edit_any may edit a post.
func (s *Posts) Update(ctx context.Context, id access.Identity, postID int64, in models.PostInput) (*models.Post, error) {
	if !access.IsAuthenticated(id) {
		return nil, models.NewAuthenticationError("Authentication required")
	}
	p, err := visiblePost(ctx, s.posts, id, postID)
	if err != nil {
		return nil, err
	}
	if !access.CanModify(id, p.AuthorID, access.Post, access.EditAny) {
		return nil, models.NewPermissionError("You do not have permission to edit this post")
	}

	if err := s.apply(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, p); err != nil {
		return nil, models.NewStoreError("Error updating post", err)
	}
	if in.SetTags {
		s.replaceTags(ctx, p.ID, in.Tags)
	}

	return s.saved(ctx, p.ID)
}

// apply copies the set fields of in onto p and validates the result.
func (s *Posts) apply(ctx context.Context, p *models.Post, in models.PostInput) error {
	contentChanged := false
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		contentChanged = *in.Content != p.Content
		p.Content = *in.Content
	}
	if in.FeaturedImage != nil {
		p.FeaturedImage = strings.TrimSpace(*in.FeaturedImage)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return models.NewValidationError("Invalid status")
		}
		p.Status = *in.Status
	}

	switch {
	case in.Excerpt != nil && strings.TrimSpace(*in.Excerpt) != "":
		p.Excerpt = strings.TrimSpace(*in.Excerpt)
	case in.Excerpt != nil, contentChanged, p.Excerpt == "":
		p.Excerpt = text.Excerpt(p.Content, text.ExcerptLength)
	}

	if msg := validatePost(p.Title, p.Content, p.Excerpt, p.FeaturedImage); msg != "" {
		return models.NewValidationError(msg)
	}

	if in.CategoryID != nil && *in.CategoryID != p.CategoryID {
		cat, err := s.categories.FindByID(ctx, *in.CategoryID)
		if err != nil {
			return models.NewStoreError("Error loading category", err)
		}
		if cat == nil {
			return models.NewValidationError("Invalid category")
		}
		p.CategoryID = cat.ID
	}
	return nil
}

// replaceTags swaps a post's tag set. Failures are logged and the post
// keeps whatever tags were attached.
func (s *Posts) replaceTags(ctx context.Context, postID int64, names []string) {
	if err := s.tags.DetachAll(ctx, postID); err != nil {
		slog.Error("detach post tags failed", "post_id", postID, "error", err)
		return
	}
	for _, name := range normalizeTags(names) {
		tag, err := s.tags.FindOrCreate(ctx, name)
		if err != nil {
			slog.Error("create tag failed", "post_id", postID, "tag", name, "error", err)
			continue
		}
		if err := s.tags.Attach(ctx, postID, tag.ID); err != nil {
			slog.Error("attach tag failed", "post_id", postID, "tag", name, "error", err)
		}
	}
}

// saved re-reads a post after a write and refreshes its snapshot.
func (s *Posts) saved(ctx context.Context, postID int64) (*models.Post, error) {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, models.NewStoreError("Error loading post", err)
	}
	if p == nil {
		return nil, models.NewNotFoundError("Post not found")
	}
	if err := s.publisher.PublishPostSnapshot(ctx, p); err != nil {
		metrics.SnapshotFailures.WithLabelValues("publish").Inc()
		slog.Warn("publish post snapshot failed", "post_id", p.ID, "error", err)
	}
	return p, nil
}

// Delete removes a post along with its comments, reactions, and snapshot.
func (s *Posts) Delete(ctx context.Context, id access.Identity, postID int64) error {
	if !access.IsAuthenticated(id) {
		return models.NewAuthenticationError("Authentication required")
	}
	p, err := visiblePost(ctx, s.posts, id, postID)
	if err != nil {
		return err
	}
	if !access.CanModify(id, p.AuthorID, access.Post, access.DeleteAny) {
		return models.NewPermissionError("You do not have permission to delete this post")
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return models.NewStoreError("Error deleting post", err)
	}
	removeSnapshots(ctx, s.publisher, postID)
	return nil
}

// removeSnapshots drops the snapshots of deleted posts. Failures are
// counted and logged only.
func removeSnapshots(ctx context.Context, publisher publish.Publisher, postIDs ...int64) {
	for _, postID := range postIDs {
		if err := publisher.RemovePostSnapshot(ctx, postID); err != nil {
			metrics.SnapshotFailures.WithLabelValues("remove").Inc()
			slog.Warn("remove post snapshot failed", "post_id", postID, "error", err)
		}
	}
}

// Tags lists every tag with its post count.
func (s *Posts) Tags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, models.NewStoreError("Error loading tags", err)
	}
	return tags, nil
}
