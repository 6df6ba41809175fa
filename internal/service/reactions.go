package service

import (
	"context"
	"errors"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/metrics"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/store"
)

// Reactions records like/dislike votes. A user holds at most one reaction
// per post; reacting again with the other type replaces it.
type Reactions struct {
	reactions ReactionRepository
	posts     PostRepository
}

// NewReactions creates the reaction service.
func NewReactions(reactions ReactionRepository, posts PostRepository) *Reactions {
	return &Reactions{reactions: reactions, posts: posts}
}

// Set adds or removes the caller's reaction and returns the post's new
// counts. An empty action means add.
func (s *Reactions) Set(ctx context.Context, id access.Identity, postID int64, typ models.ReactionType, action models.ReactionAction) (*models.ReactionState, error) {
	if err := access.Require(id, access.Reaction, access.Set); err != nil {
		return nil, err
	}
	if action == "" {
		action = models.ReactionAdd
	}
	if action != models.ReactionAdd && action != models.ReactionRemove {
		return nil, models.NewValidationError("Invalid action")
	}
	if !typ.Valid() {
		return nil, models.NewValidationError("Invalid reaction type")
	}
	if _, err := visiblePost(ctx, s.posts, id, postID); err != nil {
		return nil, err
	}

	switch action {
	case models.ReactionRemove:
		if err := s.reactions.Delete(ctx, postID, id.UserID); err != nil {
			return nil, models.NewStoreError("Error removing reaction", err)
		}
	case models.ReactionAdd:
		if err := s.add(ctx, postID, id.UserID, typ); err != nil {
			return nil, models.NewStoreError("Error saving reaction", err)
		}
	}

	metrics.ReactionsSet.WithLabelValues(string(typ), string(action)).Inc()
	return s.state(ctx, postID, id.UserID)
}

// add inserts a reaction or switches the existing one. A concurrent insert
// by the same user surfaces as ErrDuplicate and is retried as a switch.
func (s *Reactions) add(ctx context.Context, postID, userID int64, typ models.ReactionType) error {
	existing, err := s.reactions.Find(ctx, postID, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Type == typ {
			return nil
		}
		return s.reactions.ChangeType(ctx, postID, userID, typ)
	}

	err = s.reactions.Insert(ctx, postID, userID, typ)
	if errors.Is(err, store.ErrDuplicate) {
		return s.reactions.ChangeType(ctx, postID, userID, typ)
	}
	return err
}

// State returns a post's counts and, for signed-in callers, their own
// reaction.
func (s *Reactions) State(ctx context.Context, id access.Identity, postID int64) (*models.ReactionState, error) {
	if _, err := visiblePost(ctx, s.posts, id, postID); err != nil {
		return nil, err
	}
	return s.state(ctx, postID, id.UserID)
}

// Counts returns like and dislike totals for a post.
func (s *Reactions) Counts(ctx context.Context, postID int64) (models.ReactionCounts, error) {
	counts, err := s.reactions.Counts(ctx, postID)
	if err != nil {
		return models.ReactionCounts{}, models.NewStoreError("Error loading reactions", err)
	}
	return counts, nil
}

func (s *Reactions) state(ctx context.Context, postID, userID int64) (*models.ReactionState, error) {
	counts, err := s.Counts(ctx, postID)
	if err != nil {
		return nil, err
	}
	st := &models.ReactionState{Counts: counts}
	if userID > 0 {
		r, err := s.reactions.Find(ctx, postID, userID)
		if err != nil {
			return nil, models.NewStoreError("Error loading reactions", err)
		}
		if r != nil {
			t := r.Type
			st.UserReaction = &t
		}
	}
	return st, nil
}
