package publish

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/SherPsu/cms-blog/internal/models"
)

// ObjectStore is the subset of the storage client the S3 publisher needs.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
}

// S3Publisher mirrors snapshots into an object store under prefix.
type S3Publisher struct {
	store  ObjectStore
	prefix string
}

// NewS3Publisher returns a publisher that writes <prefix>/post_<id>.xml.
func NewS3Publisher(store ObjectStore, prefix string) *S3Publisher {
	return &S3Publisher{store: store, prefix: prefix}
}

// Key returns the object key for a post's snapshot.
func (s *S3Publisher) Key(postID int64) string {
	return path.Join(s.prefix, FileName(postID))
}

func (s *S3Publisher) PublishPostSnapshot(ctx context.Context, post *models.Post) error {
	body, err := Marshal(post)
	if err != nil {
		return err
	}
	return s.store.Upload(ctx, s.Key(post.ID), "application/xml", bytes.NewReader(body), int64(len(body)))
}

func (s *S3Publisher) RemovePostSnapshot(ctx context.Context, postID int64) error {
	return s.store.Delete(ctx, s.Key(postID))
}
