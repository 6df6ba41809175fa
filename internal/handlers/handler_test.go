// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Handlers run against the in-memory repositories and a miniredis-backed
// session store, so no external services are needed.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/publish"
	"github.com/SherPsu/cms-blog/internal/render"
	"github.com/SherPsu/cms-blog/internal/service"
	"github.com/SherPsu/cms-blog/internal/session"
	"github.com/SherPsu/cms-blog/internal/testutil"
)

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	mem      *testutil.Memory
	seed     *testutil.Seeder
	redis    *miniredis.Miniredis
	sessions *session.Store
	svc      Services

	api    *API
	public *Public
	auth   *Auth
	admin  *Admin
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	sessions := session.NewStore(client, false)

	renderer, err := render.New()
	require.NoError(t, err)

	mem := testutil.NewMemory()
	svc := Services{
		Posts:      service.NewPosts(mem.Posts(), mem.Tags(), mem.Categories(), publish.Nop{}),
		Categories: service.NewCategories(mem.Categories()),
		Comments:   service.NewComments(mem.Comments(), mem.Posts()),
		Reactions:  service.NewReactions(mem.Reactions(), mem.Posts()),
		Users:      service.NewUsers(mem.Users(), mem.Posts(), publish.Nop{}),
		Dashboard:  service.NewDashboard(mem.Posts(), mem.Comments(), mem.Categories(), mem.Users()),
	}

	return &testEnv{
		mem:      mem,
		seed:     mem.Seeder(t),
		redis:    mr,
		sessions: sessions,
		svc:      svc,
		api:      NewAPI(svc, sessions),
		public:   NewPublic(renderer, svc),
		auth:     NewAuth(renderer, sessions, svc.Users),
		admin:    NewAdmin(renderer, sessions, svc),
	}
}

// call invokes h directly with chi URL params and an identity in the
// request context. body is sent as JSON unless it is url.Values, which is
// sent as a form.
func call(t *testing.T, h http.HandlerFunc, method, target string, id access.Identity, params map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	case string:
		reader = strings.NewReader(b)
		contentType = "application/json"
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
		contentType = "application/json"
	}

	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithIdentity(ctx, id)

	w := httptest.NewRecorder()
	h(w, req.WithContext(ctx))
	return w
}

// apiResponse mirrors the JSON envelope with a raw data field.
type apiResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       json.RawMessage    `json:"data"`
	Pagination *models.Pagination `json:"pagination"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) apiResponse {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data), string(resp.Data))
	}
	return resp
}

func idStr(id int64) string {
	return strconv.FormatInt(id, 10)
}
