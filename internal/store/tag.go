package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SherPsu/cms-blog/internal/models"
)

// TagStore manages tags and their links to posts.
type TagStore struct {
	db *sql.DB
}

// NewTagStore creates a new TagStore.
func NewTagStore(db *sql.DB) *TagStore {
	return &TagStore{db: db}
}

// FindOrCreate returns the tag with the given name, creating it first if
// needed. Concurrent creators converge on the same row.
func (s *TagStore) FindOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	t := &models.Tag{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tags (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at
	`, name).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find or create tag %q: %w", name, err)
	}
	return t, nil
}

// Attach links a tag to a post. Linking twice is a no-op.
func (s *TagStore) Attach(ctx context.Context, postID, tagID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, postID, tagID)
	if err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

// DetachAll removes every tag link of a post.
func (s *TagStore) DetachAll(ctx context.Context, postID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, postID)
	if err != nil {
		return fmt.Errorf("detach tags: %w", err)
	}
	return nil
}

// List returns every tag with the number of posts using it.
func (s *TagStore) List(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at, COUNT(pt.post_id) AS post_count
		FROM tags t
		LEFT JOIN post_tags pt ON pt.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.PostCount); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
