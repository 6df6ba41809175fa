package service

import (
	"context"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/models"
)

// canView reports whether id may see p. Unpublished posts are visible to
// their author and to holders of post:view_unpublished.
func canView(id access.Identity, p *models.Post) bool {
	return p.IsPublished() || access.Owns(id, p.AuthorID) || access.Allowed(id, access.Post, access.ViewUnpublished)
}

// visiblePost loads a post the caller may see. Posts the caller may not
// see are reported as missing.
func visiblePost(ctx context.Context, posts PostRepository, id access.Identity, postID int64) (*models.Post, error) {
	p, err := posts.FindByID(ctx, postID)
	if err != nil {
		return nil, models.NewStoreError("Error loading post", err)
	}
	if p == nil || !canView(id, p) {
		return nil, models.NewNotFoundError("Post not found")
	}
	return p, nil
}
