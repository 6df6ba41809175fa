package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/session"
	"github.com/SherPsu/cms-blog/internal/testutil"
)

var anon = access.Anonymous()

func TestAPIListPostsVisibility(t *testing.T) {
	env := newTestEnv(t)
	author := env.seed.User(models.RoleAuthor)
	cat := env.seed.Category()
	env.seed.Post(author.ID, cat.ID, models.PostStatusPublished)
	env.seed.Post(author.ID, cat.ID, models.PostStatusDraft)

	var posts []models.Post
	w := call(t, env.api.ListPosts, http.MethodGet, "/api/posts", anon, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w, &posts)
	assert.True(t, resp.Success)
	assert.Len(t, posts, 1)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 1, resp.Pagination.Total)

	w = call(t, env.api.ListPosts, http.MethodGet, "/api/posts", env.seed.Identity(models.RoleEditor), nil, nil)
	decodeEnvelope(t, w, &posts)
	assert.Len(t, posts, 2)

	w = call(t, env.api.ListPosts, http.MethodGet, "/api/posts?status=bogus", anon, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIListPostsEmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	w := call(t, env.api.ListPosts, http.MethodGet, "/api/posts", anon, nil, nil)
	resp := decodeEnvelope(t, w, nil)
	assert.JSONEq(t, `[]`, string(resp.Data))
}

func TestAPIGetPost(t *testing.T) {
	env := newTestEnv(t)
	author := env.seed.User(models.RoleAuthor)
	draft := env.seed.Post(author.ID, env.seed.Category().ID, models.PostStatusDraft)
	params := map[string]string{"id": idStr(draft.ID)}

	w := call(t, env.api.GetPost, http.MethodGet, "/api/posts/x", anon, params, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Post not found", decodeEnvelope(t, w, nil).Message)

	var got models.Post
	w = call(t, env.api.GetPost, http.MethodGet, "/api/posts/x", testutil.IdentityOf(author), params, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeEnvelope(t, w, &got)
	assert.Equal(t, draft.Title, got.Title)

	w = call(t, env.api.GetPost, http.MethodGet, "/api/posts/x", anon, map[string]string{"id": "abc"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Post ID is required", decodeEnvelope(t, w, nil).Message)
}

func TestAPICreatePost(t *testing.T) {
	env := newTestEnv(t)
	cat := env.seed.Category()
	body := map[string]any{
		"title":       "Hello",
		"content":     "<p>Some <em>content</em></p>",
		"category_id": cat.ID,
		"tags":        "go, web, Go",
	}

	tests := []struct {
		name   string
		id     access.Identity
		status int
	}{
		{"anonymous", anon, http.StatusUnauthorized},
		{"subscriber", env.seed.Identity(models.RoleSubscriber), http.StatusForbidden},
		{"author", env.seed.Identity(models.RoleAuthor), http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(t, env.api.CreatePost, http.MethodPost, "/api/posts", tt.id, nil, body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	var post models.Post
	w := call(t, env.api.CreatePost, http.MethodPost, "/api/posts", env.seed.Identity(models.RoleEditor), nil, body)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeEnvelope(t, w, &post)
	assert.Equal(t, "Post created successfully", resp.Message)
	assert.Equal(t, models.PostStatusDraft, post.Status)
	assert.Equal(t, "Some content", post.Excerpt)
	assert.ElementsMatch(t, []string{"go", "web"}, post.TagNames())

	delete(body, "category_id")
	w = call(t, env.api.CreatePost, http.MethodPost, "/api/posts", env.seed.Identity(models.RoleEditor), nil, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Title, content, and category are required", decodeEnvelope(t, w, nil).Message)
}

func TestAPIUpdatePost(t *testing.T) {
	env := newTestEnv(t)
	author := env.seed.User(models.RoleAuthor)
	post := env.seed.Post(author.ID, env.seed.Category().ID, models.PostStatusDraft)
	params := map[string]string{"id": idStr(post.ID)}
	id := testutil.IdentityOf(author)

	w := call(t, env.api.UpdatePost, http.MethodPut, "/api/posts/x", id, params, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No fields to update", decodeEnvelope(t, w, nil).Message)

	w = call(t, env.api.UpdatePost, http.MethodPut, "/api/posts/x", id, params, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON body", decodeEnvelope(t, w, nil).Message)

	other := env.seed.Identity(models.RoleAuthor)
	w = call(t, env.api.UpdatePost, http.MethodPut, "/api/posts/x", other, params, map[string]any{"title": "Mine now"})
	assert.Equal(t, http.StatusNotFound, w.Code, "another author's draft is invisible")

	var updated models.Post
	w = call(t, env.api.UpdatePost, http.MethodPut, "/api/posts/x", id, params, map[string]any{"title": "Renamed", "status": "published"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeEnvelope(t, w, &updated)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, models.PostStatusPublished, updated.Status)

	w = call(t, env.api.UpdatePost, http.MethodPut, "/api/posts/x", other, params, map[string]any{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You do not have permission to edit this post", decodeEnvelope(t, w, nil).Message)
}

func TestAPIDeletePost(t *testing.T) {
	env := newTestEnv(t)
	author := env.seed.User(models.RoleAuthor)
	post := env.seed.Post(author.ID, env.seed.Category().ID, models.PostStatusPublished)
	params := map[string]string{"id": idStr(post.ID)}

	w := call(t, env.api.DeletePost, http.MethodDelete, "/api/posts/x", env.seed.Identity(models.RoleSubscriber), params, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, env.api.DeletePost, http.MethodDelete, "/api/posts/x", env.seed.Identity(models.RoleEditor), params, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Post deleted successfully", decodeEnvelope(t, w, nil).Message)

	w = call(t, env.api.GetPost, http.MethodGet, "/api/posts/x", anon, params, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPICommentFlow(t *testing.T) {
	env := newTestEnv(t)
	author := env.seed.User(models.RoleAuthor)
	post := env.seed.Post(author.ID, env.seed.Category().ID, models.PostStatusPublished)
	subscriber := env.seed.Identity(models.RoleSubscriber)
	editor := env.seed.Identity(models.RoleEditor)

	w := call(t, env.api.CreateComment, http.MethodPost, "/api/comments", anon, nil, map[string]any{"post_id": post.ID, "content": "Hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "You must be logged in to comment", decodeEnvelope(t, w, nil).Message)

	w = call(t, env.api.CreateComment, http.MethodPost, "/api/comments", subscriber, nil, map[string]any{"post_id": post.ID, "content": "Nice!"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, msgCommentPending, decodeEnvelope(t, w, nil).Message)

	var top, reply models.Comment
	w = call(t, env.api.CreateComment, http.MethodPost, "/api/comments", editor, nil, map[string]any{"post_id": post.ID, "content": "Welcome"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, msgCommentApproved, decodeEnvelope(t, w, &top).Message)
	assert.Equal(t, models.CommentStatusApproved, top.Status)

	w = call(t, env.api.CreateComment, http.MethodPost, "/api/comments", editor, nil, map[string]any{"post_id": post.ID, "content": "Thanks", "parent_id": top.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decodeEnvelope(t, w, &reply)

	w = call(t, env.api.CreateComment, http.MethodPost, "/api/comments", editor, nil, map[string]any{"post_id": post.ID, "content": "Deeper", "parent_id": reply.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code, "replies to replies are rejected")

	w = call(t, env.api.CreateComment, http.MethodPost, "/api/comments", editor, nil, map[string]any{"content": "No post"})
	assert.Equal(t, "Post ID and content are required", decodeEnvelope(t, w, nil).Message)

	var thread []models.Comment
	w = call(t, env.api.ListComments, http.MethodGet, "/api/comments?post_id="+idStr(post.ID), anon, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeEnvelope(t, w, &thread)
	require.Len(t, thread, 1, "pending comments are hidden from readers")
	assert.Len(t, thread[0].Replies, 1)

	w = call(t, env.api.ListPostComments, http.MethodGet, "/api/posts/x/comments", editor, map[string]string{"id": idStr(post.ID)}, nil)
	decodeEnvelope(t, w, &thread)
	assert.Len(t, thread, 2)

	w = call(t, env.api.ListComments, http.MethodGet, "/api/comments", subscriber, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Post ID is required", decodeEnvelope(t, w, nil).Message)

	var queue []models.Comment
	w = call(t, env.api.ListComments, http.MethodGet, "/api/comments?status=pending", editor, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w, &queue)
	assert.Len(t, queue, 1)
	assert.NotNil(t, resp.Pagination)
}

func TestAPIUpdateAndDeleteComment(t *testing.T) {
	env := newTestEnv(t)
	author := env.seed.User(models.RoleAuthor)
	post := env.seed.Post(author.ID, env.seed.Category().ID, models.PostStatusPublished)
	owner := env.seed.User(models.RoleSubscriber)
	c := env.seed.Comment(post.ID, owner.ID, models.CommentStatusPending, nil)
	params := map[string]string{"id": idStr(c.ID)}

	w := call(t, env.api.UpdateComment, http.MethodPut, "/api/comments/x", testutil.IdentityOf(owner), params, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, env.api.UpdateComment, http.MethodPut, "/api/comments/x", testutil.IdentityOf(owner), params, map[string]any{"content": "Edited"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Comment updated successfully", decodeEnvelope(t, w, nil).Message)

	var moderated models.Comment
	w = call(t, env.api.UpdateComment, http.MethodPut, "/api/comments/x", env.seed.Identity(models.RoleEditor), params, map[string]any{"status": "spam"})
	require.Equal(t, http.StatusOK, w.Code)
	decodeEnvelope(t, w, &moderated)
	assert.Equal(t, models.CommentStatusSpam, moderated.Status)
	assert.Equal(t, "Edited", moderated.Content)

	w = call(t, env.api.DeleteComment, http.MethodDelete, "/api/comments/x", env.seed.Identity(models.RoleSubscriber), params, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, env.api.DeleteComment, http.MethodDelete, "/api/comments/x", testutil.IdentityOf(owner), params, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Comment deleted successfully", decodeEnvelope(t, w, nil).Message)
}

func TestAPIReactions(t *testing.T) {
	env := newTestEnv(t)
	author := env.seed.User(models.RoleAuthor)
	post := env.seed.Post(author.ID, env.seed.Category().ID, models.PostStatusPublished)
	user := env.seed.Identity(models.RoleSubscriber)

	w := call(t, env.api.SetReaction, http.MethodPost, "/api/reactions", anon, nil, map[string]any{"post_id": post.ID, "reaction_type": "like"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var st models.ReactionState
	w = call(t, env.api.SetReaction, http.MethodPost, "/api/reactions", user, nil, map[string]any{"post_id": post.ID, "reaction_type": "like"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Reaction updated successfully", decodeEnvelope(t, w, &st).Message)
	assert.Equal(t, 1, st.Counts.Likes)

	w = call(t, env.api.SetReaction, http.MethodPost, "/api/reactions", user, nil, map[string]any{"post_id": post.ID, "reaction_type": "dislike", "action": "add"})
	decodeEnvelope(t, w, &st)
	assert.Equal(t, models.ReactionCounts{Likes: 0, Dislikes: 1}, st.Counts)
	assert.Equal(t, 1, env.mem.Reactions().Rows(post.ID))

	w = call(t, env.api.SetReaction, http.MethodPost, "/api/reactions", user, nil, map[string]any{"post_id": post.ID, "reaction_type": "dislike", "action": "remove"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.mem.Reactions().Rows(post.ID))

	w = call(t, env.api.SetReaction, http.MethodPost, "/api/reactions", user, nil, map[string]any{"post_id": post.ID})
	assert.Equal(t, "Post ID and reaction type are required", decodeEnvelope(t, w, nil).Message)

	w = call(t, env.api.GetReactions, http.MethodGet, "/api/reactions?post_id="+idStr(post.ID), anon, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeEnvelope(t, w, &st)
	assert.Nil(t, st.UserReaction)

	w = call(t, env.api.GetReactions, http.MethodGet, "/api/reactions", anon, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPICategories(t *testing.T) {
	env := newTestEnv(t)
	editor := env.seed.Identity(models.RoleEditor)

	var cat models.Category
	w := call(t, env.api.CreateCategory, http.MethodPost, "/api/categories", editor, nil, map[string]any{"name": "Travel", "description": "Trips"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decodeEnvelope(t, w, &cat)

	w = call(t, env.api.CreateCategory, http.MethodPost, "/api/categories", editor, nil, map[string]any{"name": "Travel"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, env.api.CreateCategory, http.MethodPost, "/api/categories", env.seed.Identity(models.RoleAuthor), nil, map[string]any{"name": "Food"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	author := env.seed.User(models.RoleAuthor)
	env.seed.Post(author.ID, cat.ID, models.PostStatusPublished)
	env.seed.Post(author.ID, cat.ID, models.PostStatusDraft)

	params := map[string]string{"id": idStr(cat.ID)}
	w = call(t, env.api.DeleteCategory, http.MethodDelete, "/api/categories/x", editor, params, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Cannot delete category: it has 2 posts associated with it.", decodeEnvelope(t, w, nil).Message)

	var cats []models.Category
	w = call(t, env.api.ListCategories, http.MethodGet, "/api/categories", anon, nil, nil)
	decodeEnvelope(t, w, &cats)
	require.Len(t, cats, 1)
	assert.Equal(t, 2, cats[0].PostCount)

	w = call(t, env.api.GetCategory, http.MethodGet, "/api/categories/x", anon, map[string]string{"id": "999"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIStoreErrorKeepsDriverDetail(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Fail = errors.New("connection refused")

	w := call(t, env.api.ListPosts, http.MethodGet, "/api/posts", anon, nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeEnvelope(t, w, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "Error loading posts: connection refused", resp.Message)
}

func TestAPIAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	reg := map[string]any{"username": "newbie", "email": "newbie@example.com", "password": "hunter22", "confirm_password": "hunter22"}
	var u models.User
	w := call(t, env.api.Register, http.MethodPost, "/api/auth/register", anon, nil, reg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decodeEnvelope(t, w, &u)
	assert.Equal(t, models.RoleSubscriber, u.Role)
	assert.NotContains(t, w.Body.String(), "password")

	w = call(t, env.api.Register, http.MethodPost, "/api/auth/register", anon, nil, reg)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, env.api.Login, http.MethodPost, "/api/auth/login", anon, nil, map[string]any{"username": "newbie", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid username or password", decodeEnvelope(t, w, nil).Message)

	w = call(t, env.api.Login, http.MethodPost, "/api/auth/login", anon, nil, map[string]any{"username": "newbie", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "login sets the session cookie")
	assert.True(t, env.redis.Exists("session:"+cookie.Value))

	w = call(t, env.api.Me, http.MethodGet, "/api/auth/me", anon, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var me identityView
	w = call(t, env.api.Me, http.MethodGet, "/api/auth/me", testutil.IdentityOf(&u), nil, nil)
	decodeEnvelope(t, w, &me)
	assert.Equal(t, "newbie", me.Username)
}

func TestAPIUserManagement(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seed.Identity(models.RoleAdmin)
	target := env.seed.User(models.RoleSubscriber)
	params := map[string]string{"id": idStr(target.ID)}

	w := call(t, env.api.ListUsers, http.MethodGet, "/api/users", env.seed.Identity(models.RoleEditor), nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var users []models.User
	w = call(t, env.api.ListUsers, http.MethodGet, "/api/users?role=subscriber", admin, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeEnvelope(t, w, &users)
	assert.Len(t, users, 1)

	sid, err := env.sessions.Create(t.Context(), httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil), session.NewData(target))
	require.NoError(t, err)

	var updated models.User
	w = call(t, env.api.UpdateUser, http.MethodPut, "/api/users/x", admin, params, map[string]any{"role": "author"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeEnvelope(t, w, &updated)
	assert.Equal(t, models.RoleAuthor, updated.Role)
	assert.Equal(t, target.Email, updated.Email, "omitted fields keep their values")
	assert.True(t, updated.Active)
	assert.False(t, env.redis.Exists("session:"+sid), "role change signs the user out")

	self := map[string]string{"id": idStr(admin.UserID)}
	w = call(t, env.api.DeleteUser, http.MethodDelete, "/api/users/x", admin, self, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, env.api.DeleteUser, http.MethodDelete, "/api/users/x", admin, params, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = call(t, env.api.GetUser, http.MethodGet, "/api/users/x", admin, params, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIChangePassword(t *testing.T) {
	env := newTestEnv(t)
	u := env.seed.User(models.RoleSubscriber)
	id := testutil.IdentityOf(u)

	w := call(t, env.api.ChangePassword, http.MethodPut, "/api/users/me/password", id, nil,
		map[string]any{"current_password": "nope", "new_password": "newpass1", "confirm_password": "newpass1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, env.api.ChangePassword, http.MethodPut, "/api/users/me/password", id, nil,
		map[string]any{"current_password": testutil.Password, "new_password": "newpass1", "confirm_password": "newpass1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, err := env.svc.Users.Authenticate(t.Context(), u.Username, "newpass1")
	assert.NoError(t, err)
}

func TestAPINotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	w := call(t, env.api.NotFound, http.MethodGet, "/api/nope", anon, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Endpoint not found", decodeEnvelope(t, w, nil).Message)

	w = call(t, env.api.MethodNotAllowed, http.MethodPatch, "/api/posts", anon, nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method not allowed", decodeEnvelope(t, w, nil).Message)
}

func TestTagListUnmarshal(t *testing.T) {
	tests := []struct {
		body string
		want []string
		set  bool
	}{
		{`{}`, nil, false},
		{`{"tags":null}`, nil, true},
		{`{"tags":"go, web"}`, []string{"go", "web"}, true},
		{`{"tags":["go","web"]}`, []string{"go", "web"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req postRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.set, req.Tags.set)
			assert.Equal(t, tt.want, req.Tags.names)
		})
	}

	var req postRequest
	assert.Error(t, json.Unmarshal([]byte(`{"tags":42}`), &req))
}
