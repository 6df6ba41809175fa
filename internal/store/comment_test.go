package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SherPsu/cms-blog/internal/models"
)

func TestCommentStoreUpdateStatusOnly(t *testing.T) {
	db, mock := newMock(t)
	s := NewCommentStore(db)

	status := models.CommentStatusSpam
	mock.ExpectExec(regexp.QuoteMeta("content = COALESCE($1, content)")).
		WithArgs(nil, "spam", int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Update(context.Background(), 12, models.CommentPatch{Status: &status}))
}

func TestCommentStoreListByPostApprovedOnly(t *testing.T) {
	db, mock := newMock(t)
	s := NewCommentStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE cm.post_id = $1 AND cm.status = $2")).
		WithArgs(int64(5), models.CommentStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "post_id", "user_id", "username", "content", "status",
			"parent_id", "created_at", "updated_at",
		}))

	comments, err := s.ListByPost(context.Background(), 5, true)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentStoreLifecycle(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := NewCommentStore(db)

	author := f.user(models.RoleAuthor)
	reader := f.user(models.RoleSubscriber)
	post := f.post(author, f.category(), models.PostStatusPublished)

	top := &models.Comment{PostID: post.ID, UserID: reader.ID, Content: "Nice!", Status: models.CommentStatusPending}
	require.NoError(t, s.Create(ctx, top))
	assert.NotZero(t, top.ID)
	assert.Equal(t, reader.Username, top.Username)

	reply := &models.Comment{PostID: post.ID, UserID: author.ID, ParentID: &top.ID, Content: "Thanks", Status: models.CommentStatusApproved}
	require.NoError(t, s.Create(ctx, reply))

	approved, err := s.ListByPost(ctx, post.ID, true)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, reply.ID, approved[0].ID)
	require.NotNil(t, approved[0].ParentID)
	assert.Equal(t, top.ID, *approved[0].ParentID)

	all, err := s.ListByPost(ctx, post.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	listed, total, err := s.List(ctx, models.CommentFilter{Status: models.CommentStatusPending, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listed, 1)
	assert.Equal(t, post.Title, listed[0].PostTitle)

	require.NoError(t, s.Delete(ctx, top.ID))
	gone, err := s.FindByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "replies cascade with their parent")
}
