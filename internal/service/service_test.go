package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/testutil"
)

// recordingPublisher captures snapshot calls.
type recordingPublisher struct {
	mu        sync.Mutex
	published []int64
	removed   []int64
	err       error
}

func (p *recordingPublisher) PublishPostSnapshot(_ context.Context, post *models.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, post.ID)
	return p.err
}

func (p *recordingPublisher) RemovePostSnapshot(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, id)
	return p.err
}

type env struct {
	ctx  context.Context
	mem  *testutil.Memory
	seed *testutil.Seeder
	pub  *recordingPublisher

	posts      *Posts
	comments   *Comments
	reactions  *Reactions
	categories *Categories
	users      *Users
	dashboard  *Dashboard
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mem := testutil.NewMemory()
	pub := &recordingPublisher{}
	return &env{
		ctx:        context.Background(),
		mem:        mem,
		seed:       mem.Seeder(t),
		pub:        pub,
		posts:      NewPosts(mem.Posts(), mem.Tags(), mem.Categories(), pub),
		comments:   NewComments(mem.Comments(), mem.Posts()),
		reactions:  NewReactions(mem.Reactions(), mem.Posts()),
		categories: NewCategories(mem.Categories()),
		users:      NewUsers(mem.Users(), mem.Posts(), pub),
		dashboard:  NewDashboard(mem.Posts(), mem.Comments(), mem.Categories(), mem.Users()),
	}
}

func assertKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T: %v", err, err)
	assert.Equal(t, kind, appErr.Kind, appErr.Message)
}

func ptr[T any](v T) *T { return &v }

var anonymous = access.Anonymous()

func identityOf(u *models.User) access.Identity { return testutil.IdentityOf(u) }
