package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SherPsu/cms-blog/internal/models"
)

// PostStore handles all post database operations. Reads join the author's
// username and the category name, and attach the post's tags.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postSelect = `
	SELECT p.id, p.title, p.content, p.excerpt, p.author_id, u.username,
	       p.category_id, c.name, p.status, p.featured_image,
	       p.created_at, p.updated_at
	FROM posts p
	JOIN users u ON u.id = p.author_id
	JOIN categories c ON c.id = p.category_id`

func scanPost(row rowScanner) (*models.Post, error) {
	p := &models.Post{}
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.Excerpt, &p.AuthorID, &p.AuthorName,
		&p.CategoryID, &p.CategoryName, &p.Status, &p.FeaturedImage,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID retrieves a post with its tags. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, postSelect+` WHERE p.id = $1`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}

	tags, err := s.tagsFor(ctx, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Tags = tags[p.ID]
	return p, nil
}

// Exists reports whether a post with the given ID exists.
func (s *PostStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check post exists: %w", err)
	}
	return exists, nil
}

// postWhere builds the WHERE clause for a filter. Placeholders are
// numbered from 1.
func postWhere(f models.PostFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("p.status = $%d", f.Status)
	}
	if f.CategoryID > 0 {
		add("p.category_id = $%d", f.CategoryID)
	}
	if f.AuthorID > 0 {
		add("p.author_id = $%d", f.AuthorID)
	}
	if f.Search != "" {
		add("p.title ILIKE $%d", "%"+f.Search+"%")
	}
	if f.PublishedOnly {
		add("p.status = $%d", models.PostStatusPublished)
	} else if f.PublishedOrOwner > 0 {
		args = append(args, models.PostStatusPublished, f.PublishedOrOwner)
		where = append(where, fmt.Sprintf("(p.status = $%d OR p.author_id = $%d)", len(args)-1, len(args)))
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// List returns one page of posts matching the filter, newest first, plus
// the total number of matches.
func (s *PostStore) List(ctx context.Context, f models.PostFilter) ([]models.Post, int, error) {
	clause, args := postWhere(f)

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+clause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	args = append(args, f.Page.Limit(), f.Page.Offset())
	query := postSelect + clause +
		fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	posts, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// Recent returns the newest posts, optionally limited to one author.
func (s *PostStore) Recent(ctx context.Context, limit int, authorID int64) ([]models.Post, error) {
	if authorID > 0 {
		return s.query(ctx, postSelect+` WHERE p.author_id = $1 ORDER BY p.created_at DESC, p.id DESC LIMIT $2`, authorID, limit)
	}
	return s.query(ctx, postSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT $1`, limit)
}

// query runs a post SELECT and attaches tags to every row.
func (s *PostStore) query(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var (
		posts []models.Post
		ids   []int64
	)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	if len(ids) == 0 {
		return posts, nil
	}

	tags, err := s.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Tags = tags[posts[i].ID]
	}
	return posts, nil
}

// tagsFor loads the tags of several posts in one round trip.
func (s *PostStore) tagsFor(ctx context.Context, postIDs []int64) (map[int64][]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pt.post_id, t.id, t.name, t.created_at
		FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1)
		ORDER BY t.name
	`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load post tags: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.Tag, len(postIDs))
	for rows.Next() {
		var (
			postID int64
			t      models.Tag
		)
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post tag: %w", err)
		}
		out[postID] = append(out[postID], t)
	}
	return out, rows.Err()
}

// Create inserts a new post and fills in its ID and timestamps.
func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, content, excerpt, author_id, category_id, status, featured_image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, p.Title, p.Content, p.Excerpt, p.AuthorID, p.CategoryID, p.Status, p.FeaturedImage,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// Update writes every editable column of the post and bumps updated_at.
func (s *PostStore) Update(ctx context.Context, p *models.Post) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE posts SET
			title = $1, content = $2, excerpt = $3, category_id = $4,
			status = $5, featured_image = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`, p.Title, p.Content, p.Excerpt, p.CategoryID, p.Status, p.FeaturedImage, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// Delete removes a post. Comments, reactions, and tag links cascade.
func (s *PostStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// Count returns the number of posts, optionally limited to one author.
// IDsByAuthor lists the ids of every post written by authorID.
func (s *PostStore) IDsByAuthor(ctx context.Context, authorID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM posts WHERE author_id = $1 ORDER BY id`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list post ids by author: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan post id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostStore) Count(ctx context.Context, authorID int64) (int, error) {
	var (
		n   int
		err error
	)
	if authorID > 0 {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE author_id = $1`, authorID).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}
