package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/service"
)

// tagList accepts tags either as a JSON array or as a comma-separated
// string. set records whether the field was present at all.
type tagList struct {
	names []string
	set   bool
}

func (t *tagList) UnmarshalJSON(b []byte) error {
	t.set = true
	if string(b) == "null" {
		t.names = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		t.names = service.SplitTags(s)
		return nil
	}
	return json.Unmarshal(b, &t.names)
}

type postRequest struct {
	Title         *string            `json:"title"`
	Content       *string            `json:"content"`
	Excerpt       *string            `json:"excerpt"`
	CategoryID    *int64             `json:"category_id"`
	Status        *models.PostStatus `json:"status"`
	FeaturedImage *string            `json:"featured_image"`
	Tags          tagList            `json:"tags"`
}

func (p postRequest) empty() bool {
	return p.Title == nil && p.Content == nil && p.Excerpt == nil && p.CategoryID == nil &&
		p.Status == nil && p.FeaturedImage == nil && !p.Tags.set
}

func (p postRequest) input() models.PostInput {
	return models.PostInput{
		Title:         p.Title,
		Content:       p.Content,
		Excerpt:       p.Excerpt,
		CategoryID:    p.CategoryID,
		Status:        p.Status,
		FeaturedImage: p.FeaturedImage,
		Tags:          p.Tags.names,
		SetTags:       p.Tags.set,
	}
}

// ListPosts handles GET /api/posts.
func (a *API) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.PostFilter{
		Status:     models.PostStatus(q.Get("status")),
		CategoryID: queryInt64(r, "category_id"),
		AuthorID:   queryInt64(r, "author_id"),
		Search:     q.Get("search"),
		Page:       pageFrom(r),
	}
	posts, p, err := a.svc.Posts.List(r.Context(), middleware.IdentityFromCtx(r.Context()), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondPage(w, list(posts), p)
}

// GetPost handles GET /api/posts/{id}.
func (a *API) GetPost(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "Post")
	if !valid {
		return
	}
	post, err := a.svc.Posts.Get(r.Context(), middleware.IdentityFromCtx(r.Context()), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "", post)
}

// CreatePost handles POST /api/posts.
func (a *API) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	post, err := a.svc.Posts.Create(r.Context(), middleware.IdentityFromCtx(r.Context()), req.input())
	if err != nil {
		fail(w, r, err)
		return
	}
	respondCreated(w, "Post created successfully", post)
}

// UpdatePost handles PUT /api/posts/{id}. Only fields present in the body
// change.
func (a *API) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "Post")
	if !valid {
		return
	}
	var req postRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.empty() {
		fail(w, r, models.NewValidationError("No fields to update"))
		return
	}
	post, err := a.svc.Posts.Update(r.Context(), middleware.IdentityFromCtx(r.Context()), id, req.input())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "Post updated successfully", post)
}

// DeletePost handles DELETE /api/posts/{id}.
func (a *API) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "Post")
	if !valid {
		return
	}
	if err := a.svc.Posts.Delete(r.Context(), middleware.IdentityFromCtx(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "Post deleted successfully", nil)
}

// ListTags handles GET /api/tags.
func (a *API) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := a.svc.Posts.Tags(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "", list(tags))
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListCategories handles GET /api/categories.
func (a *API) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := a.svc.Categories.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "", list(cats))
}

// GetCategory handles GET /api/categories/{id}.
func (a *API) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "Category")
	if !valid {
		return
	}
	cat, err := a.svc.Categories.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "", cat)
}

// CreateCategory handles POST /api/categories.
func (a *API) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	cat, err := a.svc.Categories.Create(r.Context(), middleware.IdentityFromCtx(r.Context()), req.Name, req.Description)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondCreated(w, "Category created successfully", cat)
}

// UpdateCategory handles PUT /api/categories/{id}.
func (a *API) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "Category")
	if !valid {
		return
	}
	var req categoryRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	cat, err := a.svc.Categories.Update(r.Context(), middleware.IdentityFromCtx(r.Context()), id, req.Name, req.Description)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "Category updated successfully", cat)
}

// DeleteCategory handles DELETE /api/categories/{id}.
func (a *API) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r, "Category")
	if !valid {
		return
	}
	if err := a.svc.Categories.Delete(r.Context(), middleware.IdentityFromCtx(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "Category deleted successfully", nil)
}
