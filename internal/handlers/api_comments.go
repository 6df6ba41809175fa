package handlers

import (
	"net/http"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/models"
)

// Comment creation messages, shared by the API and the public pages.
const (
	msgCommentApproved = "Comment added successfully"
	msgCommentPending  = "Comment submitted and is awaiting approval"
)

type commentRequest struct {
	PostID   int64  `json:"post_id"`
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id"`
}

// ListComments handles GET /api/comments. With post_id it returns the
// post's threaded comments; without it, moderators get the paged
// moderation list.
func (a *API) ListComments(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	postID := queryInt64(r, "post_id")
	if postID > 0 {
		a.listComments(w, r, postID)
		return
	}
	if !access.Allowed(id, access.Comment, access.Moderate) {
		failMessage(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	q := r.URL.Query()
	comments, p, err := a.svc.Comments.ListForModeration(r.Context(), id, models.CommentFilter{
		Status: models.CommentStatus(q.Get("status")),
		Search: q.Get("search"),
		Page:   pageFrom(r),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	respondPage(w, list(comments), p)
}

// ListPostComments handles GET /api/posts/{id}/comments.
func (a *API) ListPostComments(w http.ResponseWriter, r *http.Request) {
	postID, valid := idParam(w, r, "Post")
	if !valid {
		return
	}
	a.listComments(w, r, postID)
}

func (a *API) listComments(w http.ResponseWriter, r *http.Request, postID int64) {
	comments, err := a.svc.Comments.List(r.Context(), middleware.IdentityFromCtx(r.Context()), postID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "", list(comments))
}

// CreateComment handles POST /api/comments.
func (a *API) CreateComment(w http.ResponseWriter, r *http.Request) {
	if !access.IsAuthenticated(middleware.IdentityFromCtx(r.Context())) {
		failMessage(w, http.StatusUnauthorized, "You must be logged in to comment")
		return
	}
	var req commentRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.PostID <= 0 {
		fail(w, r, models.NewValidationError("Post ID and content are required"))
		return
	}

	res, err := a.svc.Comments.Create(r.Context(), middleware.IdentityFromCtx(r.Context()), req.PostID, req.Content, req.ParentID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if res.Pending {
		respondCreated(w, msgCommentPending, res.Comment)
		return
	}
	respondCreated(w, msgCommentApproved, res.Comment)
}

// UpdateComment handles PUT /api/comments/{id}.
func (a *API) UpdateComment(w http.ResponseWriter, r *http.Request) {
	commentID, valid := idParam(w, r, "Comment")
	if !valid {
		return
	}
	var patch models.CommentPatch
	if err := decode(w, r, &patch); err != nil {
		fail(w, r, err)
		return
	}
	c, err := a.svc.Comments.Update(r.Context(), middleware.IdentityFromCtx(r.Context()), commentID, patch)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "Comment updated successfully", c)
}

// DeleteComment handles DELETE /api/comments/{id}.
func (a *API) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, valid := idParam(w, r, "Comment")
	if !valid {
		return
	}
	if err := a.svc.Comments.Delete(r.Context(), middleware.IdentityFromCtx(r.Context()), commentID); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "Comment deleted successfully", nil)
}

type reactionRequest struct {
	PostID int64                 `json:"post_id"`
	Type   models.ReactionType   `json:"reaction_type"`
	Action models.ReactionAction `json:"action"`
}

// GetReactions handles GET /api/reactions?post_id=.
func (a *API) GetReactions(w http.ResponseWriter, r *http.Request) {
	postID := queryInt64(r, "post_id")
	if postID == 0 {
		failMessage(w, http.StatusBadRequest, "Post ID is required")
		return
	}
	st, err := a.svc.Reactions.State(r.Context(), middleware.IdentityFromCtx(r.Context()), postID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "", st)
}

// SetReaction handles POST /api/reactions.
func (a *API) SetReaction(w http.ResponseWriter, r *http.Request) {
	if !access.IsAuthenticated(middleware.IdentityFromCtx(r.Context())) {
		failMessage(w, http.StatusUnauthorized, "You must be logged in to react to posts")
		return
	}
	var req reactionRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.PostID <= 0 || req.Type == "" {
		fail(w, r, models.NewValidationError("Post ID and reaction type are required"))
		return
	}
	st, err := a.svc.Reactions.Set(r.Context(), middleware.IdentityFromCtx(r.Context()), req.PostID, req.Type, req.Action)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "Reaction updated successfully", st)
}
