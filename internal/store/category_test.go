package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SherPsu/cms-blog/internal/models"
)

func TestCategoryStoreCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	mock.ExpectQuery("INSERT INTO categories").
		WithArgs("Tech", "").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.Create(context.Background(), &models.Category{Name: "Tech"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCategoryStoreFindMissing(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	mock.ExpectQuery("FROM categories WHERE id = \\$1").
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	c, err := s.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCategoryStoreCountPosts(t *testing.T) {
	db, mock := newMock(t)
	s := NewCategoryStore(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM posts WHERE category_id = \\$1").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	n, err := s.CountPosts(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCategoryStoreListWithPostCounts(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := NewCategoryStore(db)

	empty := f.category()
	used := f.category()
	f.post(f.user(models.RoleAuthor), used, models.PostStatusDraft)

	cats, err := s.List(ctx)
	require.NoError(t, err)

	counts := map[int64]int{}
	for _, c := range cats {
		counts[c.ID] = c.PostCount
	}
	assert.Equal(t, 0, counts[empty.ID])
	assert.Equal(t, 1, counts[used.ID])

	taken, err := s.NameTaken(ctx, used.Name, 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.NameTaken(ctx, used.Name, used.ID)
	require.NoError(t, err)
	assert.False(t, taken, "a category does not conflict with itself")
}
