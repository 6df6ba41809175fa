// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/render"
	"github.com/SherPsu/cms-blog/internal/session"
	"github.com/SherPsu/cms-blog/internal/text"
)

// Public groups handlers for the public-facing blog pages.
type Public struct {
	renderer *render.Renderer
	svc      Services
}

// NewPublic creates a new Public handler group.
func NewPublic(renderer *render.Renderer, svc Services) *Public {
	return &Public{renderer: renderer, svc: svc}
}

// Home renders the paged list of published posts, optionally filtered by
// category or a search term.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := middleware.IdentityFromCtx(ctx)
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	categoryID := queryInt64(r, "category")

	posts, pagination, err := p.svc.Posts.List(ctx, id, models.PostFilter{
		Status:     models.PostStatusPublished,
		CategoryID: categoryID,
		Search:     search,
		Page:       pageFrom(r),
	})
	if err != nil {
		p.renderer.Error(w, r, err)
		return
	}

	cats, err := p.svc.Categories.List(ctx)
	if err != nil {
		slog.Error("list categories failed", "error", err)
	}

	p.renderer.Page(w, r, "home", &render.PageData{
		Title:   "Home",
		Section: "home",
		Data: map[string]any{
			"Posts":      posts,
			"Categories": cats,
			"CategoryID": categoryID,
			"Search":     search,
			"PageLinks":  pageLinks(r, pagination),
		},
	})
}

// Post renders a single post with its reactions and threaded comments.
// Posts the caller may not see are reported as not found.
func (p *Public) Post(w http.ResponseWriter, r *http.Request) {
	postID, valid := pathID(r, "id")
	if !valid {
		p.renderer.Error(w, r, models.NewNotFoundError("Post not found"))
		return
	}

	ctx := r.Context()
	id := middleware.IdentityFromCtx(ctx)

	post, err := p.svc.Posts.Get(ctx, id, postID)
	if err != nil {
		p.renderer.Error(w, r, err)
		return
	}
	comments, err := p.svc.Comments.List(ctx, id, postID)
	if err != nil {
		p.renderer.Error(w, r, err)
		return
	}
	reactions, err := p.svc.Reactions.State(ctx, id, postID)
	if err != nil {
		p.renderer.Error(w, r, err)
		return
	}

	p.renderer.Page(w, r, "post", &render.PageData{
		Title: post.Title,
		Data: map[string]any{
			"Post":      post,
			"Comments":  comments,
			"Reactions": reactions,
		},
	})
}

// CommentSubmit handles the comment and reply forms on a post page.
func (p *Public) CommentSubmit(w http.ResponseWriter, r *http.Request) {
	postID, valid := pathID(r, "id")
	if !valid {
		p.renderer.Error(w, r, models.NewNotFoundError("Post not found"))
		return
	}
	back := text.PostPath(postID, "") + "#comments"

	parentID, err := formInt64(r, "parent_id")
	if err != nil {
		session.SetFlash(w, "error", "Parent comment not found")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	res, err := p.svc.Comments.Create(r.Context(), middleware.IdentityFromCtx(r.Context()), postID, r.FormValue("content"), parentID)
	switch {
	case models.IsKind(err, models.KindValidation):
		session.SetFlash(w, "error", errMessage(err))
	case err != nil:
		p.renderer.Error(w, r, err)
		return
	case res.Pending:
		session.SetFlash(w, "info", msgCommentPending)
	default:
		session.SetFlash(w, "success", msgCommentApproved)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// ReactionSubmit handles the like and dislike buttons on a post page.
func (p *Public) ReactionSubmit(w http.ResponseWriter, r *http.Request) {
	postID, valid := pathID(r, "id")
	if !valid {
		p.renderer.Error(w, r, models.NewNotFoundError("Post not found"))
		return
	}

	_, err := p.svc.Reactions.Set(r.Context(), middleware.IdentityFromCtx(r.Context()), postID,
		models.ReactionType(r.FormValue("reaction_type")), models.ReactionAction(r.FormValue("action")))
	if models.IsKind(err, models.KindValidation) {
		session.SetFlash(w, "error", errMessage(err))
	} else if err != nil {
		p.renderer.Error(w, r, err)
		return
	}
	http.Redirect(w, r, text.PostPath(postID, ""), http.StatusSeeOther)
}

// Account renders the signed-in user's account page.
func (p *Public) Account(w http.ResponseWriter, r *http.Request) {
	p.renderer.Page(w, r, "account", &render.PageData{Title: "Your account", Section: "account"})
}

// PasswordSubmit handles the change-password form.
func (p *Public) PasswordSubmit(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	err := p.svc.Users.ChangePassword(r.Context(), id,
		r.FormValue("current_password"), r.FormValue("new_password"), r.FormValue("confirm_password"))
	if err != nil {
		status, message := render.StatusFor(err)
		if status == http.StatusInternalServerError {
			p.renderer.Error(w, r, err)
			return
		}
		p.renderer.PageStatus(w, r, status, "account", &render.PageData{
			Title:   "Your account",
			Section: "account",
			Data:    map[string]any{"Error": message},
		})
		return
	}
	session.SetFlash(w, "success", "Password changed successfully")
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

// errMessage returns the caller-facing message of err.
func errMessage(err error) string {
	_, message := render.StatusFor(err)
	return message
}

// canEditPost reports whether id may open the edit form for p.
func canEditPost(id access.Identity, p *models.Post) bool {
	return access.CanModify(id, p.AuthorID, access.Post, access.EditAny)
}

// NotFound renders the 404 page for unknown browser paths.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderer.Error(w, r, models.NewNotFoundError("Page not found"))
}
