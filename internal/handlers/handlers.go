// Package handlers contains the HTTP handlers for the blog. Handlers are
// grouped by concern (JSON API, public pages, auth pages, admin panel) and
// receive their dependencies through the handler struct. They translate
// requests into service calls and never talk to the store directly.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/service"
	"github.com/SherPsu/cms-blog/internal/session"
)

// Services bundles the service layer the handlers call into.
type Services struct {
	Posts      *service.Posts
	Categories *service.Categories
	Comments   *service.Comments
	Reactions  *service.Reactions
	Users      *service.Users
	Dashboard  *service.Dashboard
}

// Sessions is the part of the session store the handlers write to.
type Sessions interface {
	Create(ctx context.Context, w http.ResponseWriter, r *http.Request, data *session.Data) (string, error)
	Update(ctx context.Context, r *http.Request, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	Revoke(ctx context.Context, userID int64) error
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt64 returns a non-negative integer query parameter, or zero when
// it is missing or malformed.
func queryInt64(r *http.Request, name string) int64 {
	n, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// formInt64 parses an optional integer form value. Empty means nil.
func formInt64(r *http.Request, name string) (*int64, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &n, nil
}

// pageFrom reads page and per_page query parameters.
func pageFrom(r *http.Request) models.Page {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return models.NewPage(number, perPage)
}

// pageLink is one entry of an HTML pager.
type pageLink struct {
	Number  int
	URL     string
	Current bool
}

// pageLinks builds pager links that keep the request's other query
// parameters. Single-page results get no pager.
func pageLinks(r *http.Request, p models.Pagination) []pageLink {
	if p.TotalPages <= 1 {
		return nil
	}
	links := make([]pageLink, 0, p.TotalPages)
	for i := 1; i <= p.TotalPages; i++ {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(i))
		u := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
		links = append(links, pageLink{Number: i, URL: u.String(), Current: i == p.Page})
	}
	return links
}

// safeNext returns target if it is a local path, otherwise fallback.
func safeNext(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}
