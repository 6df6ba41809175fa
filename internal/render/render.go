// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the public site and
// the admin interface. Every page is paired with the base layout, and the
// request's CSRF token, identity, and pending flash message are injected
// automatically.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/session"
	"github.com/SherPsu/cms-blog/internal/text"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageData holds all data passed to templates.
type PageData struct {
	Title     string          // Page title for <title> tag
	Section   string          // Active navigation section (e.g., "dashboard", "posts")
	Identity  access.Identity // Current caller (anonymous if not signed in)
	CSRFToken string          // CSRF token for forms
	Data      map[string]any  // Page-specific data
	Flashes   []session.Flash // One-time notification messages
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// New creates a Renderer by parsing all templates from the embedded
// filesystem. Each page template is paired with the base layout.
func New() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap:   funcMap(),
	}

	entries, err := fs.ReadDir(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "base.html" {
			continue
		}

		tmpl, err := template.New("base.html").Funcs(r.funcMap).ParseFS(
			templatesFS, "templates/base.html", "templates/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}

		r.templates[strings.TrimSuffix(name, ".html")] = tmpl
	}

	return r, nil
}

// Has reports whether a page template with the given name was parsed.
func (rn *Renderer) Has(name string) bool {
	_, ok := rn.templates[name]
	return ok
}

// Page renders a full page with status 200.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus renders a full page with the given status code. The page is
// rendered into a buffer first so a template error never leaves a
// half-written response.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	tmpl, ok := rn.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = &PageData{}
	}
	if data.Data == nil {
		data.Data = map[string]any{}
	}
	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	data.Identity = middleware.IdentityFromCtx(r.Context())
	if f := session.PopFlash(w, r); f != nil {
		data.Flashes = append(data.Flashes, *f)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		slog.Error("template execute failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Error renders the error page with the status code matching err.
func (rn *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, message := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	rn.PageStatus(w, r, status, "error", &PageData{
		Title: http.StatusText(status),
		Data:  map[string]any{"Status": status, "Message": message},
	})
}

// StatusFor maps an error to an HTTP status code and a caller-facing
// message. Store errors keep the driver detail.
func StatusFor(err error) (int, string) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "Internal server error"
	}
	switch appErr.Kind {
	case models.KindValidation:
		return http.StatusBadRequest, appErr.Message
	case models.KindAuthentication:
		return http.StatusUnauthorized, appErr.Message
	case models.KindPermission:
		return http.StatusForbidden, appErr.Message
	case models.KindNotFound:
		return http.StatusNotFound, appErr.Message
	case models.KindConflict:
		return http.StatusConflict, appErr.Message
	}
	return http.StatusInternalServerError, appErr.Error()
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"activeClass": func(current, target string) string {
			if current == target {
				return "active"
			}
			return ""
		},
		// can checks the policy table from a template.
		"can": func(id access.Identity, resource, action string) bool {
			return access.Allowed(id, access.Resource(resource), access.Action(action))
		},
		"canModify": func(id access.Identity, ownerID int64, resource, action string) bool {
			return access.CanModify(id, ownerID, access.Resource(resource), access.Action(action))
		},
		"signedIn": access.IsAuthenticated,
		"date": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04")
		},
		// html marks stored post content as trusted markup. Post content is
		// written by staff accounts only.
		"html": func(s string) template.HTML {
			return template.HTML(s)
		},
		"postURL": text.PostPath,
		"reacted": func(st *models.ReactionState, typ string) bool {
			return st != nil && st.UserReaction != nil && string(*st.UserReaction) == typ
		},
		"postStatuses":    func() []models.PostStatus { return models.PostStatuses },
		"commentStatuses": func() []models.CommentStatus { return models.CommentStatuses },
		"roles":           func() []models.Role { return models.Roles },
	}
}
