// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/render"
	"github.com/SherPsu/cms-blog/internal/service"
	"github.com/SherPsu/cms-blog/internal/session"
)

// Admin groups all admin panel HTTP handlers and their dependencies.
type Admin struct {
	renderer *render.Renderer
	sessions Sessions
	svc      Services
}

// NewAdmin creates a new Admin handler group with the given dependencies.
func NewAdmin(renderer *render.Renderer, sessions Sessions, svc Services) *Admin {
	return &Admin{renderer: renderer, sessions: sessions, svc: svc}
}

// inlineError reports whether err belongs on the form that caused it
// rather than on the error page.
func inlineError(err error) bool {
	return models.IsKind(err, models.KindValidation) || models.IsKind(err, models.KindConflict)
}

// Dashboard renders the admin dashboard page with real stats.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Dashboard.Stats(r.Context(), middleware.IdentityFromCtx(r.Context()))
	if err != nil {
		a.renderer.Error(w, r, err)
		return
	}

	a.renderer.Page(w, r, "admin_dashboard", &render.PageData{
		Title:   "Dashboard",
		Section: "dashboard",
		Data:    map[string]any{"Stats": stats},
	})
}

// --- Posts ---

// postForm is the state of the post editor.
type postForm struct {
	Title         string
	Content       string
	Excerpt       string
	CategoryID    int64
	Status        string
	FeaturedImage string
	Tags          string
}

func postFormOf(p *models.Post) postForm {
	return postForm{
		Title:         p.Title,
		Content:       p.Content,
		Excerpt:       p.Excerpt,
		CategoryID:    p.CategoryID,
		Status:        string(p.Status),
		FeaturedImage: p.FeaturedImage,
		Tags:          strings.Join(p.TagNames(), ", "),
	}
}

// readPostForm parses the editor submission into both the form state (for
// re-rendering) and the service input.
func readPostForm(r *http.Request) (postForm, models.PostInput) {
	f := postForm{
		Title:         r.FormValue("title"),
		Content:       r.FormValue("content"),
		Excerpt:       r.FormValue("excerpt"),
		Status:        r.FormValue("status"),
		FeaturedImage: r.FormValue("featured_image"),
		Tags:          r.FormValue("tags"),
	}
	status := models.PostStatus(f.Status)
	if status == "" {
		status = models.PostStatusDraft
	}
	in := models.PostInput{
		Title:         &f.Title,
		Content:       &f.Content,
		Excerpt:       &f.Excerpt,
		Status:        &status,
		FeaturedImage: &f.FeaturedImage,
		Tags:          service.SplitTags(f.Tags),
		SetTags:       true,
	}
	if catID, err := formInt64(r, "category_id"); err == nil && catID != nil {
		f.CategoryID = *catID
		in.CategoryID = catID
	}
	return f, in
}

// PostsList renders the posts management page. Authors only see their own.
func (a *Admin) PostsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	search := strings.TrimSpace(q.Get("q"))

	posts, pagination, err := a.svc.Posts.ListManaged(r.Context(), middleware.IdentityFromCtx(r.Context()), models.PostFilter{
		Status: models.PostStatus(status),
		Search: search,
		Page:   pageFrom(r),
	})
	if err != nil {
		a.renderer.Error(w, r, err)
		return
	}

	a.renderer.Page(w, r, "admin_posts", &render.PageData{
		Title:   "Posts",
		Section: "posts",
		Data: map[string]any{
			"Posts":     posts,
			"Status":    status,
			"Search":    search,
			"PageLinks": pageLinks(r, pagination),
		},
	})
}

func (a *Admin) renderPostForm(w http.ResponseWriter, r *http.Request, status int, title, action string, form postForm, errMsg string) {
	cats, err := a.svc.Categories.List(r.Context())
	if err != nil {
		a.renderer.Error(w, r, err)
		return
	}
	a.renderer.PageStatus(w, r, status, "admin_post_form", &render.PageData{
		Title:   title,
		Section: "posts",
		Data: map[string]any{
			"Form":       form,
			"Categories": cats,
			"Action":     action,
			"Error":      errMsg,
		},
	})
}

// PostNew renders the new post form.
func (a *Admin) PostNew(w http.ResponseWriter, r *http.Request) {
	a.renderPostForm(w, r, http.StatusOK, "New Post", "/admin/posts", postForm{Status: string(models.PostStatusDraft)}, "")
}

// PostCreate handles the new post form submission.
func (a *Admin) PostCreate(w http.ResponseWriter, r *http.Request) {
	form, in := readPostForm(r)
	post, err := a.svc.Posts.Create(r.Context(), middleware.IdentityFromCtx(r.Context()), in)
	if err != nil {
		if !inlineError(err) {
			a.renderer.Error(w, r, err)
			return
		}
		status, message := render.StatusFor(err)
		a.renderPostForm(w, r, status, "New Post", "/admin/posts", form, message)
		return
	}

	session.SetFlash(w, "success", fmt.Sprintf("Post %q created.", post.Title))
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

// PostEdit renders the edit post form.
func (a *Admin) PostEdit(w http.ResponseWriter, r *http.Request) {
	postID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("Post not found"))
		return
	}
	id := middleware.IdentityFromCtx(r.Context())
	post, err := a.svc.Posts.Get(r.Context(), id, postID)
	if err != nil {
		a.renderer.Error(w, r, err)
		return
	}
	if !canEditPost(id, post) {
		a.renderer.Error(w, r, models.NewPermissionError("You do not have permission to edit this post"))
		return
	}
	a.renderPostForm(w, r, http.StatusOK, "Edit Post", fmt.Sprintf("/admin/posts/%d", post.ID), postFormOf(post), "")
}

// PostUpdate handles the edit post form submission.
func (a *Admin) PostUpdate(w http.ResponseWriter, r *http.Request) {
	postID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("Post not found"))
		return
	}
	form, in := readPostForm(r)
	post, err := a.svc.Posts.Update(r.Context(), middleware.IdentityFromCtx(r.Context()), postID, in)
	if err != nil {
		if !inlineError(err) {
			a.renderer.Error(w, r, err)
			return
		}
		status, message := render.StatusFor(err)
		a.renderPostForm(w, r, status, "Edit Post", fmt.Sprintf("/admin/posts/%d", postID), form, message)
		return
	}

	session.SetFlash(w, "success", fmt.Sprintf("Post %q updated.", post.Title))
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

// PostDelete handles post deletion.
func (a *Admin) PostDelete(w http.ResponseWriter, r *http.Request) {
	postID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("Post not found"))
		return
	}
	if err := a.svc.Posts.Delete(r.Context(), middleware.IdentityFromCtx(r.Context()), postID); err != nil {
		a.renderer.Error(w, r, err)
		return
	}
	session.SetFlash(w, "success", "Post deleted.")
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

// --- Categories ---

type categoryForm struct {
	Name        string
	Description string
}

func (a *Admin) renderCategories(w http.ResponseWriter, r *http.Request, status int, form categoryForm, errMsg string) {
	cats, err := a.svc.Categories.List(r.Context())
	if err != nil {
		a.renderer.Error(w, r, err)
		return
	}
	a.renderer.PageStatus(w, r, status, "admin_categories", &render.PageData{
		Title:   "Categories",
		Section: "categories",
		Data:    map[string]any{"Categories": cats, "Form": form, "Error": errMsg},
	})
}

// CategoriesList renders the category list with the add form.
func (a *Admin) CategoriesList(w http.ResponseWriter, r *http.Request) {
	a.renderCategories(w, r, http.StatusOK, categoryForm{}, "")
}

// CategoryCreate handles the add category form.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	form := categoryForm{Name: r.FormValue("name"), Description: r.FormValue("description")}
	cat, err := a.svc.Categories.Create(r.Context(), middleware.IdentityFromCtx(r.Context()), form.Name, form.Description)
	if err != nil {
		if !inlineError(err) {
			a.renderer.Error(w, r, err)
			return
		}
		status, message := render.StatusFor(err)
		a.renderCategories(w, r, status, form, message)
		return
	}
	session.SetFlash(w, "success", fmt.Sprintf("Category %q created.", cat.Name))
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}

func (a *Admin) renderCategoryForm(w http.ResponseWriter, r *http.Request, status int, categoryID int64, form categoryForm, errMsg string) {
	a.renderer.PageStatus(w, r, status, "admin_category_form", &render.PageData{
		Title:   "Edit Category",
		Section: "categories",
		Data:    map[string]any{"CategoryID": categoryID, "Form": form, "Error": errMsg},
	})
}

// CategoryEdit renders the edit category form.
func (a *Admin) CategoryEdit(w http.ResponseWriter, r *http.Request) {
	categoryID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("Category not found"))
		return
	}
	cat, err := a.svc.Categories.Get(r.Context(), categoryID)
	if err != nil {
		a.renderer.Error(w, r, err)
		return
	}
	a.renderCategoryForm(w, r, http.StatusOK, cat.ID, categoryForm{Name: cat.Name, Description: cat.Description}, "")
}

// CategoryUpdate handles the edit category form.
func (a *Admin) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	categoryID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("Category not found"))
		return
	}
	form := categoryForm{Name: r.FormValue("name"), Description: r.FormValue("description")}
	_, err := a.svc.Categories.Update(r.Context(), middleware.IdentityFromCtx(r.Context()), categoryID, form.Name, form.Description)
	if err != nil {
		if !inlineError(err) {
			a.renderer.Error(w, r, err)
			return
		}
		status, message := render.StatusFor(err)
		a.renderCategoryForm(w, r, status, categoryID, form, message)
		return
	}
	session.SetFlash(w, "success", "Category updated.")
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}

// CategoryDelete handles category deletion. Categories still holding posts
// stay, and the reason is flashed.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	categoryID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("Category not found"))
		return
	}
	err := a.svc.Categories.Delete(r.Context(), middleware.IdentityFromCtx(r.Context()), categoryID)
	switch {
	case models.IsKind(err, models.KindConflict):
		session.SetFlash(w, "error", errMessage(err))
	case err != nil:
		a.renderer.Error(w, r, err)
		return
	default:
		session.SetFlash(w, "success", "Category deleted.")
	}
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
}

// --- Comments ---

// CommentsList renders the moderation queue.
func (a *Admin) CommentsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	search := strings.TrimSpace(q.Get("q"))

	comments, pagination, err := a.svc.Comments.ListForModeration(r.Context(), middleware.IdentityFromCtx(r.Context()), models.CommentFilter{
		Status: models.CommentStatus(status),
		Search: search,
		Page:   pageFrom(r),
	})
	if err != nil {
		a.renderer.Error(w, r, err)
		return
	}

	a.renderer.Page(w, r, "admin_comments", &render.PageData{
		Title:   "Comments",
		Section: "comments",
		Data: map[string]any{
			"Comments":  comments,
			"Status":    status,
			"Search":    search,
			"PageLinks": pageLinks(r, pagination),
		},
	})
}

// CommentStatus handles the approve / pending / spam buttons.
func (a *Admin) CommentStatus(w http.ResponseWriter, r *http.Request) {
	commentID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("Comment not found"))
		return
	}
	status := models.CommentStatus(r.FormValue("status"))
	_, err := a.svc.Comments.Moderate(r.Context(), middleware.IdentityFromCtx(r.Context()), commentID, status)
	switch {
	case models.IsKind(err, models.KindValidation):
		session.SetFlash(w, "error", errMessage(err))
	case err != nil:
		a.renderer.Error(w, r, err)
		return
	default:
		session.SetFlash(w, "success", fmt.Sprintf("Comment marked as %s.", status))
	}
	http.Redirect(w, r, backTo(r, "/admin/comments"), http.StatusSeeOther)
}

// CommentDelete removes a comment and its replies.
func (a *Admin) CommentDelete(w http.ResponseWriter, r *http.Request) {
	commentID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("Comment not found"))
		return
	}
	if err := a.svc.Comments.Delete(r.Context(), middleware.IdentityFromCtx(r.Context()), commentID); err != nil {
		a.renderer.Error(w, r, err)
		return
	}
	session.SetFlash(w, "success", "Comment deleted.")
	http.Redirect(w, r, backTo(r, "/admin/comments"), http.StatusSeeOther)
}

// backTo returns the local page the form was submitted from, so filters
// and paging survive a moderation action.
func backTo(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	i := strings.Index(ref, fallback)
	if i < 0 {
		return fallback
	}
	return safeNext(ref[i:], fallback)
}

// --- Users ---

type userForm struct {
	Username string
	Email    string
	Role     string
	Active   bool
}

// UsersList renders the user management page (admin only).
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role := q.Get("role")
	search := strings.TrimSpace(q.Get("q"))

	users, pagination, err := a.svc.Users.List(r.Context(), middleware.IdentityFromCtx(r.Context()), models.UserFilter{
		Role:   models.Role(role),
		Search: search,
		Page:   pageFrom(r),
	})
	if err != nil {
		a.renderer.Error(w, r, err)
		return
	}

	a.renderer.Page(w, r, "admin_users", &render.PageData{
		Title:   "Users",
		Section: "users",
		Data: map[string]any{
			"Users":     users,
			"Role":      role,
			"Search":    search,
			"PageLinks": pageLinks(r, pagination),
		},
	})
}

func (a *Admin) renderUserForm(w http.ResponseWriter, r *http.Request, status int, userID int64, form userForm, errMsg string) {
	a.renderer.PageStatus(w, r, status, "admin_user_form", &render.PageData{
		Title:   "Edit User",
		Section: "users",
		Data:    map[string]any{"UserID": userID, "Form": form, "Error": errMsg},
	})
}

// UserEdit renders the edit user form.
func (a *Admin) UserEdit(w http.ResponseWriter, r *http.Request) {
	userID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("User not found"))
		return
	}
	u, err := a.svc.Users.Get(r.Context(), middleware.IdentityFromCtx(r.Context()), userID)
	if err != nil {
		a.renderer.Error(w, r, err)
		return
	}
	a.renderUserForm(w, r, http.StatusOK, u.ID, userForm{
		Username: u.Username,
		Email:    u.Email,
		Role:     string(u.Role),
		Active:   u.Active,
	}, "")
}

// UserUpdate handles the edit user form.
func (a *Admin) UserUpdate(w http.ResponseWriter, r *http.Request) {
	userID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("User not found"))
		return
	}
	form := userForm{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Role:     r.FormValue("role"),
		Active:   r.FormValue("active") != "",
	}
	password := r.FormValue("password")

	id := middleware.IdentityFromCtx(r.Context())
	u, err := a.svc.Users.Update(r.Context(), id, userID, models.UserUpdate{
		Username: form.Username,
		Email:    form.Email,
		Role:     models.Role(form.Role),
		Active:   form.Active,
		Password: &password,
	})
	if err != nil {
		if !inlineError(err) {
			a.renderer.Error(w, r, err)
			return
		}
		status, message := render.StatusFor(err)
		a.renderUserForm(w, r, status, userID, form, message)
		return
	}

	syncSessions(r, a.sessions, id, u.ID, u)
	session.SetFlash(w, "success", fmt.Sprintf("User %q updated.", u.Username))
	if access.Owns(id, u.ID) && !access.Allowed(session.NewData(u).Identity(), access.User, access.Manage) {
		// Demoted themselves out of the users screen.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// UserDelete handles user deletion.
func (a *Admin) UserDelete(w http.ResponseWriter, r *http.Request) {
	userID, valid := pathID(r, "id")
	if !valid {
		a.renderer.Error(w, r, models.NewNotFoundError("User not found"))
		return
	}
	id := middleware.IdentityFromCtx(r.Context())
	err := a.svc.Users.Delete(r.Context(), id, userID)
	switch {
	case models.IsKind(err, models.KindValidation):
		session.SetFlash(w, "error", errMessage(err))
	case err != nil:
		a.renderer.Error(w, r, err)
		return
	default:
		syncSessions(r, a.sessions, id, userID, nil)
		session.SetFlash(w, "success", "User deleted.")
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}
