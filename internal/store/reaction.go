package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SherPsu/cms-blog/internal/models"
)

// ReactionStore handles like/dislike rows. The (post_id, user_id) unique
// constraint guarantees one reaction per user per post.
type ReactionStore struct {
	db *sql.DB
}

// NewReactionStore creates a new ReactionStore.
func NewReactionStore(db *sql.DB) *ReactionStore {
	return &ReactionStore{db: db}
}

// Find returns a user's reaction to a post. Returns nil if there is none.
func (s *ReactionStore) Find(ctx context.Context, postID, userID int64) (*models.Reaction, error) {
	r := &models.Reaction{}
	err := s.db.QueryRowContext(ctx, `
		SELECT post_id, user_id, reaction_type, created_at
		FROM post_reactions WHERE post_id = $1 AND user_id = $2
	`, postID, userID).Scan(&r.PostID, &r.UserID, &r.Type, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reaction: %w", err)
	}
	return r, nil
}

// Insert records a new reaction. Returns ErrDuplicate if the user already
// reacted to the post.
func (s *ReactionStore) Insert(ctx context.Context, postID, userID int64, t models.ReactionType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_reactions (post_id, user_id, reaction_type) VALUES ($1, $2, $3)
	`, postID, userID, t)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

// ChangeType replaces the type of an existing reaction in a single
// statement. The row is treated as new, so created_at is reset.
func (s *ReactionStore) ChangeType(ctx context.Context, postID, userID int64, t models.ReactionType) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE post_reactions SET reaction_type = $3, created_at = NOW()
		WHERE post_id = $1 AND user_id = $2
	`, postID, userID, t)
	if err != nil {
		return fmt.Errorf("change reaction: %w", err)
	}
	return nil
}

// Delete removes a user's reaction to a post. Deleting a missing reaction
// is not an error.
func (s *ReactionStore) Delete(ctx context.Context, postID, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM post_reactions WHERE post_id = $1 AND user_id = $2
	`, postID, userID)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

// Counts returns the like and dislike totals for a post.
func (s *ReactionStore) Counts(ctx context.Context, postID int64) (models.ReactionCounts, error) {
	var c models.ReactionCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE reaction_type = 'like'),
		       COUNT(*) FILTER (WHERE reaction_type = 'dislike')
		FROM post_reactions WHERE post_id = $1
	`, postID).Scan(&c.Likes, &c.Dislikes)
	if err != nil {
		return models.ReactionCounts{}, fmt.Errorf("count reactions: %w", err)
	}
	return c, nil
}
