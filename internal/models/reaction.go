package models

import "time"

// ReactionType is the kind of vote a user casts on a post.
type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

// Valid reports whether t is a known reaction type.
func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// ReactionAction selects whether a reaction is being cast or withdrawn.
type ReactionAction string

const (
	ReactionAdd    ReactionAction = "add"
	ReactionRemove ReactionAction = "remove"
)

// Reaction is a single user's vote on a post. There is at most one per
// (post, user) pair.
type Reaction struct {
	PostID    int64        `json:"post_id"`
	UserID    int64        `json:"user_id"`
	Type      ReactionType `json:"reaction_type"`
	CreatedAt time.Time    `json:"created_at"`
}

// ReactionCounts holds the vote totals for a post.
type ReactionCounts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// ReactionState is the result of a reaction change: the new totals and the
// caller's own reaction, nil when they have none.
type ReactionState struct {
	Counts       ReactionCounts `json:"counts"`
	UserReaction *ReactionType  `json:"user_reaction"`
}
