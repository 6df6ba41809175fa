// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests drive the full middleware chain and route table
// through a real HTTP server backed by in-memory repositories.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SherPsu/cms-blog/internal/handlers"
	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/publish"
	"github.com/SherPsu/cms-blog/internal/render"
	"github.com/SherPsu/cms-blog/internal/service"
	"github.com/SherPsu/cms-blog/internal/session"
	"github.com/SherPsu/cms-blog/internal/testutil"
)

type stack struct {
	srv  *httptest.Server
	mem  *testutil.Memory
	seed *testutil.Seeder
}

func newStack(t *testing.T, checks map[string]HealthCheck, limiter *middleware.RateLimiter) *stack {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	sessions := session.NewStore(client, false)

	renderer, err := render.New()
	require.NoError(t, err)

	mem := testutil.NewMemory()
	svc := handlers.Services{
		Posts:      service.NewPosts(mem.Posts(), mem.Tags(), mem.Categories(), publish.Nop{}),
		Categories: service.NewCategories(mem.Categories()),
		Comments:   service.NewComments(mem.Comments(), mem.Posts()),
		Reactions:  service.NewReactions(mem.Reactions(), mem.Posts()),
		Users:      service.NewUsers(mem.Users(), mem.Posts(), publish.Nop{}),
		Dashboard:  service.NewDashboard(mem.Posts(), mem.Comments(), mem.Categories(), mem.Users()),
	}

	h := New(Options{
		Sessions:    sessions,
		AuthLimiter: limiter,
		Checks:      checks,
		API:         handlers.NewAPI(svc, sessions),
		Public:      handlers.NewPublic(renderer, svc),
		Auth:        handlers.NewAuth(renderer, sessions, svc.Users),
		Admin:       handlers.NewAdmin(renderer, sessions, svc),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &stack{srv: srv, mem: mem, seed: mem.Seeder(t)}
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t      *testing.T
	base   *url.URL
	client *http.Client
}

func (s *stack) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, err := url.Parse(s.srv.URL)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar:           jar,
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
}

func (b *browser) csrf() string {
	for _, c := range b.client.Jar.Cookies(b.base) {
		if c.Name == middleware.CSRFCookieName {
			return c.Value
		}
	}
	return ""
}

// do sends a request. JSON bodies carry the CSRF header when withToken is
// set.
func (b *browser) do(method, path string, body any, withToken bool) *http.Response {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.srv()+path, reader)
	require.NoError(b.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withToken {
		req.Header.Set(middleware.CSRFHeaderName, b.csrf())
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (b *browser) srv() string { return b.base.String() }

func (b *browser) login(username string) {
	b.t.Helper()
	b.do(http.MethodGet, "/api/posts", nil, false)
	resp := b.do(http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": testutil.Password}, true)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func readEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var e envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]HealthCheck
		status int
		body   map[string]string
	}{
		{
			name:   "no checks",
			status: http.StatusOK,
			body:   map[string]string{"status": "ok"},
		},
		{
			name:   "all healthy",
			checks: map[string]HealthCheck{"database": func(context.Context) error { return nil }},
			status: http.StatusOK,
			body:   map[string]string{"status": "ok", "database": "ok"},
		},
		{
			name: "one failing",
			checks: map[string]HealthCheck{
				"database": func(context.Context) error { return nil },
				"valkey":   func(context.Context) error { return errors.New("connection refused") },
			},
			status: http.StatusServiceUnavailable,
			body:   map[string]string{"status": "degraded", "database": "ok", "valkey": "unavailable"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			healthHandler(tt.checks)(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestAPIRoutingErrors(t *testing.T) {
	s := newStack(t, nil, nil)
	b := s.browser(t)

	resp := b.do(http.MethodGet, "/api/nope", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, envelope{Message: "Endpoint not found"}, readEnvelope(t, resp))

	resp = b.do(http.MethodPatch, "/api/posts/", nil, true)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "Method not allowed", readEnvelope(t, resp).Message)

	resp = b.do(http.MethodGet, "/nowhere", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestCSRFProtectsWrites(t *testing.T) {
	s := newStack(t, nil, nil)
	editor := s.seed.User(models.RoleEditor)
	cat := s.seed.Category()
	b := s.browser(t)
	b.login(editor.Username)

	post := map[string]any{"title": "Hello", "content": "<p>World</p>", "category_id": cat.ID}

	resp := b.do(http.MethodPost, "/api/posts", post, false)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Invalid CSRF token", readEnvelope(t, resp).Message)

	resp = b.do(http.MethodPost, "/api/posts", post, true)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, readEnvelope(t, resp).Success)
}

func TestSessionFlow(t *testing.T) {
	s := newStack(t, nil, nil)
	u := s.seed.User(models.RoleSubscriber)
	b := s.browser(t)

	resp := b.do(http.MethodGet, "/api/auth/me", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	b.login(u.Username)
	resp = b.do(http.MethodGet, "/api/auth/me", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(readEnvelope(t, resp).Data, &me))
	assert.Equal(t, u.Username, me.Username)

	resp = b.do(http.MethodPost, "/api/auth/logout", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = b.do(http.MethodGet, "/api/auth/me", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminAccess(t *testing.T) {
	s := newStack(t, nil, nil)

	anon := s.browser(t)
	resp := anon.do(http.MethodGet, "/admin/", nil, false)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fadmin%2F", resp.Header.Get("Location"))

	sub := s.browser(t)
	sub.login(s.seed.User(models.RoleSubscriber).Username)
	resp = sub.do(http.MethodGet, "/admin/", nil, false)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	author := s.browser(t)
	author.login(s.seed.User(models.RoleAuthor).Username)
	resp = author.do(http.MethodGet, "/admin/", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = author.do(http.MethodGet, "/admin/categories/", nil, false)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "authors cannot manage categories")

	admin := s.browser(t)
	admin.login(s.seed.User(models.RoleAdmin).Username)
	resp = admin.do(http.MethodGet, "/admin/users/", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCommentFormRequiresLogin(t *testing.T) {
	s := newStack(t, nil, nil)
	author := s.seed.User(models.RoleAuthor)
	post := s.seed.Post(author.ID, s.seed.Category().ID, models.PostStatusPublished)
	b := s.browser(t)

	path := "/posts/" + idStr(post.ID)
	resp := b.do(http.MethodGet, path, nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	form := url.Values{"content": {"Hi"}, "csrf_token": {b.csrf()}}
	resp, err := b.client.PostForm(b.srv()+path+"/comments", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/login?next="))
}

func TestAuthRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	s := newStack(t, nil, limiter)
	b := s.browser(t)
	b.do(http.MethodGet, "/api/posts", nil, false)

	creds := map[string]string{"username": "ghost", "password": "nope"}
	for range 2 {
		resp := b.do(http.MethodPost, "/api/auth/login", creds, true)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := b.do(http.MethodPost, "/api/auth/login", creds, true)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newStack(t, nil, nil)
	b := s.browser(t)
	b.do(http.MethodGet, "/api/posts", nil, false)

	resp := b.do(http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cmsblog_http_requests_total")
}

func idStr(id int64) string {
	return strconv.FormatInt(id, 10)
}
