package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/SherPsu/cms-blog/internal/models"
)

// FilePublisher writes snapshots to <dir>/post_<id>.xml.
type FilePublisher struct {
	dir string
}

// NewFilePublisher returns a publisher rooted at dir. The directory is
// created on first write.
func NewFilePublisher(dir string) *FilePublisher {
	return &FilePublisher{dir: dir}
}

// Path returns the snapshot file path for a post.
func (f *FilePublisher) Path(postID int64) string {
	return filepath.Join(f.dir, FileName(postID))
}

// PublishPostSnapshot replaces the post's snapshot file. The new document
// is written to a temporary file and renamed so readers never see a
// partial write.
func (f *FilePublisher) PublishPostSnapshot(_ context.Context, post *models.Post) error {
	body, err := Marshal(post)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".post-*.xml")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path(post.ID)); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// RemovePostSnapshot deletes the post's snapshot file if it exists.
func (f *FilePublisher) RemovePostSnapshot(_ context.Context, postID int64) error {
	err := os.Remove(f.Path(postID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}
