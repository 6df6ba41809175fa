package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SherPsu/cms-blog/internal/models"
)

// CommentStore handles comment persistence. Every read joins the author's
// username.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a new CommentStore.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

const commentSelect = `
	SELECT cm.id, cm.post_id, cm.user_id, u.username, cm.content, cm.status,
	       cm.parent_id, cm.created_at, cm.updated_at
	FROM comments cm
	JOIN users u ON u.id = cm.user_id`

func scanComment(row rowScanner, extra ...any) (*models.Comment, error) {
	c := &models.Comment{}
	var parent sql.NullInt64
	dest := append([]any{
		&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Content, &c.Status,
		&parent, &c.CreatedAt, &c.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if parent.Valid {
		id := parent.Int64
		c.ParentID = &id
	}
	return c, nil
}

// FindByID retrieves a comment. Returns nil if not found.
func (s *CommentStore) FindByID(ctx context.Context, id int64) (*models.Comment, error) {
	row := s.db.QueryRowContext(ctx, commentSelect+` WHERE cm.id = $1`, id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find comment by id: %w", err)
	}
	return c, nil
}

// Create inserts a comment and fills in its ID, timestamps, and the
// author's username.
func (s *CommentStore) Create(ctx context.Context, c *models.Comment) error {
	err := s.db.QueryRowContext(ctx, `
		WITH ins AS (
			INSERT INTO comments (post_id, user_id, parent_id, content, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, user_id, created_at, updated_at
		)
		SELECT ins.id, ins.created_at, ins.updated_at, u.username
		FROM ins JOIN users u ON u.id = ins.user_id
	`, c.PostID, c.UserID, c.ParentID, c.Content, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.Username)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListByPost returns all comments of a post oldest first. With
// approvedOnly set, pending and spam comments are left out.
func (s *CommentStore) ListByPost(ctx context.Context, postID int64, approvedOnly bool) ([]models.Comment, error) {
	query := commentSelect + ` WHERE cm.post_id = $1`
	args := []any{postID}
	if approvedOnly {
		query += ` AND cm.status = $2`
		args = append(args, models.CommentStatusApproved)
	}
	query += ` ORDER BY cm.created_at ASC, cm.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// Update applies a patch in one statement. Nil fields keep their value.
func (s *CommentStore) Update(ctx context.Context, id int64, patch models.CommentPatch) error {
	var content, status sql.NullString
	if patch.Content != nil {
		content = sql.NullString{String: *patch.Content, Valid: true}
	}
	if patch.Status != nil {
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE comments SET
			content = COALESCE($1, content),
			status = COALESCE($2, status),
			updated_at = NOW()
		WHERE id = $3
	`, content, status, id)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// Delete removes a comment. Replies go with it through ON DELETE CASCADE.
func (s *CommentStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// commentWhere builds the moderation listing filter.
func commentWhere(f models.CommentFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("cm.status = $%d", len(args)))
	}
	if f.PostID > 0 {
		args = append(args, f.PostID)
		where = append(where, fmt.Sprintf("cm.post_id = $%d", len(args)))
	}
	if f.AuthorID > 0 {
		args = append(args, f.AuthorID)
		where = append(where, fmt.Sprintf("p.author_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(cm.content ILIKE $%d OR u.username ILIKE $%d OR p.title ILIKE $%d)", n, n, n))
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// List returns one page of comments across posts, newest first, with the
// post title attached, plus the total number of matches.
func (s *CommentStore) List(ctx context.Context, f models.CommentFilter) ([]models.Comment, int, error) {
	clause, args := commentWhere(f)
	from := ` FROM comments cm JOIN users u ON u.id = cm.user_id JOIN posts p ON p.id = cm.post_id`

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	args = append(args, f.Page.Limit(), f.Page.Offset())
	rows, err := s.db.QueryContext(ctx, `
		SELECT cm.id, cm.post_id, cm.user_id, u.username, cm.content, cm.status,
		       cm.parent_id, cm.created_at, cm.updated_at, p.title`+from+clause+
		fmt.Sprintf(` ORDER BY cm.created_at DESC, cm.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var title string
		c, err := scanComment(rows, &title)
		if err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		c.PostTitle = title
		comments = append(comments, *c)
	}
	return comments, total, rows.Err()
}

// Count returns the number of comments, optionally limited to comments on
// one author's posts.
func (s *CommentStore) Count(ctx context.Context, authorID int64) (int, error) {
	var (
		n   int
		err error
	)
	if authorID > 0 {
		err = s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM comments cm JOIN posts p ON p.id = cm.post_id
			WHERE p.author_id = $1
		`, authorID).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}
