package testutil

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/models"
)

// Password is the password of every fixture user.
const Password = "secret123"

// Seeder creates fixture rows directly in a Memory.
type Seeder struct {
	t *testing.T
	m *Memory
}

func (m *Memory) Seeder(t *testing.T) *Seeder {
	t.Helper()
	return &Seeder{t: t, m: m}
}

// User creates an active user with a generated name.
func (s *Seeder) User(role models.Role) *models.User {
	s.t.Helper()
	u, err := s.m.Users().Create(context.Background(),
		gofakeit.Username()+gofakeit.DigitN(4), gofakeit.Email(), Password, role)
	if err != nil {
		s.t.Fatalf("seed user: %v", err)
	}
	return u
}

// Identity creates a user and returns the identity a session would carry.
func (s *Seeder) Identity(role models.Role) access.Identity {
	s.t.Helper()
	return IdentityOf(s.User(role))
}

// IdentityOf converts a user into a request identity.
func IdentityOf(u *models.User) access.Identity {
	return access.Identity{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func (s *Seeder) Category() *models.Category {
	s.t.Helper()
	c, err := s.m.Categories().Create(context.Background(), &models.Category{
		Name:        gofakeit.Word() + gofakeit.DigitN(4),
		Description: gofakeit.Sentence(6),
	})
	if err != nil {
		s.t.Fatalf("seed category: %v", err)
	}
	return c
}

func (s *Seeder) Post(authorID, categoryID int64, status models.PostStatus) *models.Post {
	s.t.Helper()
	p := &models.Post{
		Title:      gofakeit.Sentence(4),
		Content:    "<p>" + gofakeit.Paragraph(1, 3, 12, " ") + "</p>",
		AuthorID:   authorID,
		CategoryID: categoryID,
		Status:     status,
	}
	if err := s.m.Posts().Create(context.Background(), p); err != nil {
		s.t.Fatalf("seed post: %v", err)
	}
	return p
}

func (s *Seeder) Comment(postID, userID int64, status models.CommentStatus, parentID *int64) *models.Comment {
	s.t.Helper()
	c := &models.Comment{
		PostID:   postID,
		UserID:   userID,
		Content:  gofakeit.Sentence(8),
		Status:   status,
		ParentID: parentID,
	}
	if err := s.m.Comments().Create(context.Background(), c); err != nil {
		s.t.Fatalf("seed comment: %v", err)
	}
	return c
}
