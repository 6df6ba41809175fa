package service

import (
	"context"
	"errors"
	"strings"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/publish"
	"github.com/SherPsu/cms-blog/internal/store"
)

// Users implements registration, login, password changes, and account
// administration. Deleting an account cascades to its posts, so their
// snapshots go through the publisher as well.
type Users struct {
	users     UserRepository
	posts     PostRepository
	publisher publish.Publisher
}

// NewUsers creates the user service. A nil publisher disables snapshots.
func NewUsers(users UserRepository, posts PostRepository, publisher publish.Publisher) *Users {
	if publisher == nil {
		publisher = publish.Nop{}
	}
	return &Users{users: users, posts: posts, publisher: publisher}
}

// Registration is the sign-up form.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Register creates a subscriber account.
func (s *Users) Register(ctx context.Context, in Registration) (*models.User, error) {
	username, email := strings.TrimSpace(in.Username), strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return nil, models.NewValidationError("All fields are required")
	}
	if msg := validateAccount(username, email); msg != "" {
		return nil, models.NewValidationError(msg)
	}
	if msg := validatePassword(in.Password, in.ConfirmPassword); msg != "" {
		return nil, models.NewValidationError(msg)
	}

	taken, err := s.users.Taken(ctx, username, email, 0)
	if err != nil {
		return nil, models.NewStoreError("Error creating account", err)
	}
	if taken {
		return nil, models.NewConflictError("Username or email already exists.")
	}

	u, err := s.users.Create(ctx, username, email, in.Password, models.RoleSubscriber)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, models.NewConflictError("Username or email already exists.")
	}
	if err != nil {
		return nil, models.NewStoreError("Error creating account", err)
	}
	return u, nil
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords get the same message.
func (s *Users) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.NewValidationError("Please enter username and password")
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, models.NewStoreError("Error signing in", err)
	}
	if u == nil || !s.users.CheckPassword(u, password) {
		return nil, models.NewAuthenticationError("Invalid username or password")
	}
	if !u.Active {
		return nil, models.NewAuthenticationError("Your account has been deactivated")
	}
	return u, nil
}

// ChangePassword replaces the caller's password after checking the
// current one.
func (s *Users) ChangePassword(ctx context.Context, id access.Identity, current, password, confirm string) error {
	if !access.IsAuthenticated(id) {
		return models.NewAuthenticationError("Authentication required")
	}
	if current == "" || password == "" || confirm == "" {
		return models.NewValidationError("All password fields are required")
	}
	if msg := validatePassword(password, confirm); msg != "" {
		return models.NewValidationError(msg)
	}

	u, err := s.find(ctx, id.UserID)
	if err != nil {
		return err
	}
	if !s.users.CheckPassword(u, current) {
		return models.NewValidationError("Current password is incorrect")
	}
	if err := s.users.SetPassword(ctx, u.ID, password); err != nil {
		return models.NewStoreError("Error changing password", err)
	}
	return nil
}

// List returns a page of accounts for administrators.
func (s *Users) List(ctx context.Context, id access.Identity, f models.UserFilter) ([]models.User, models.Pagination, error) {
	if err := access.Require(id, access.User, access.Manage); err != nil {
		return nil, models.Pagination{}, err
	}
	if f.Role != "" && !f.Role.Valid() {
		f.Role = ""
	}
	list, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, models.NewStoreError("Error loading users", err)
	}
	return list, models.Paginate(f.Page, total), nil
}

// Get returns one account for an administrator.
func (s *Users) Get(ctx context.Context, id access.Identity, userID int64) (*models.User, error) {
	if err := access.Require(id, access.User, access.Manage); err != nil {
		return nil, err
	}
	return s.find(ctx, userID)
}

// Update applies an administrator's edit. Administrators cannot
// deactivate their own account.
func (s *Users) Update(ctx context.Context, id access.Identity, userID int64, upd models.UserUpdate) (*models.User, error) {
	if err := access.Require(id, access.User, access.Manage); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, userID); err != nil {
		return nil, err
	}

	upd.Username, upd.Email = strings.TrimSpace(upd.Username), strings.TrimSpace(upd.Email)
	if msg := validateAccount(upd.Username, upd.Email); msg != "" {
		return nil, models.NewValidationError(msg)
	}
	if !upd.Role.Valid() {
		return nil, models.NewValidationError("Invalid role")
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			upd.Password = nil
		} else if msg := validatePassword(*upd.Password, *upd.Password); msg != "" {
			return nil, models.NewValidationError(msg)
		}
	}
	if access.Owns(id, userID) && !upd.Active {
		return nil, models.NewValidationError("You cannot deactivate your own account")
	}

	taken, err := s.users.Taken(ctx, upd.Username, upd.Email, userID)
	if err != nil {
		return nil, models.NewStoreError("Error updating user", err)
	}
	if taken {
		return nil, models.NewConflictError("Username or email already exists.")
	}

	err = s.users.Update(ctx, userID, upd)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, models.NewConflictError("Username or email already exists.")
	}
	if err != nil {
		return nil, models.NewStoreError("Error updating user", err)
	}
	return s.find(ctx, userID)
}

// Delete removes an account together with its posts, comments and
// reactions. Administrators cannot delete themselves.
func (s *Users) Delete(ctx context.Context, id access.Identity, userID int64) error {
	if err := access.Require(id, access.User, access.Manage); err != nil {
		return err
	}
	if access.Owns(id, userID) {
		return models.NewValidationError("You cannot delete your own account")
	}
	if _, err := s.find(ctx, userID); err != nil {
		return err
	}
	postIDs, err := s.posts.IDsByAuthor(ctx, userID)
	if err != nil {
		return models.NewStoreError("Error deleting user", err)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return models.NewStoreError("Error deleting user", err)
	}
	removeSnapshots(ctx, s.publisher, postIDs...)
	return nil
}

func (s *Users) find(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, models.NewStoreError("Error loading user", err)
	}
	if u == nil {
		return nil, models.NewNotFoundError("User not found")
	}
	return u, nil
}
