// Package testutil provides an in-memory implementation of the store
// layer for service and handler tests. It mirrors the PostgreSQL stores'
// observable behavior: missing rows come back as nil, unique violations
// as store.ErrDuplicate, and listings are filtered, ordered, and paged the
// same way.
package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/store"
)

// Memory holds every table. Its typed views (Users, Posts, ...) share one
// lock so cross-table reads stay consistent.
type Memory struct {
	mu sync.Mutex

	users      map[int64]*models.User
	categories map[int64]*models.Category
	posts      map[int64]*models.Post
	tags       map[int64]*models.Tag
	postTags   map[int64][]int64
	comments   map[int64]*models.Comment
	reactions  map[[2]int64]*models.Reaction

	nextID int64
	clock  time.Time

	// Fail, when set, is returned by every repository call.
	Fail error
}

func NewMemory() *Memory {
	return &Memory{
		users:      map[int64]*models.User{},
		categories: map[int64]*models.Category{},
		posts:      map[int64]*models.Post{},
		tags:       map[int64]*models.Tag{},
		postTags:   map[int64][]int64{},
		comments:   map[int64]*models.Comment{},
		reactions:  map[[2]int64]*models.Reaction{},
		clock:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *Memory) Users() *Users           { return &Users{m} }
func (m *Memory) Categories() *Categories { return &Categories{m} }
func (m *Memory) Posts() *Posts           { return &Posts{m} }
func (m *Memory) Tags() *Tags             { return &Tags{m} }
func (m *Memory) Comments() *Comments     { return &Comments{m} }
func (m *Memory) Reactions() *Reactions   { return &Reactions{m} }

// id returns the next identifier; all tables share one sequence.
func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// now advances a fake clock by one second per call so rows get distinct,
// ordered timestamps.
func (m *Memory) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *Memory) lock() (func(), error) {
	m.mu.Lock()
	if m.Fail != nil {
		m.mu.Unlock()
		return nil, m.Fail
	}
	return m.mu.Unlock, nil
}

func page[T any](items []T, p models.Page) []T {
	off, lim := p.Offset(), p.Limit()
	if off >= len(items) {
		return nil
	}
	end := off + lim
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Users is the in-memory store.UserStore.
type Users struct{ m *Memory }

func (r *Users) FindByID(_ context.Context, id int64) (*models.User, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	if u, ok := r.m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *Users) FindByUsername(_ context.Context, username string) (*models.User, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, u := range r.m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Users) Taken(_ context.Context, username, email string, excludeID int64) (bool, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return false, err
	}
	defer unlock()
	return r.m.userTaken(username, email, excludeID), nil
}

func (m *Memory) userTaken(username, email string, excludeID int64) bool {
	for _, u := range m.users {
		if u.ID != excludeID && (u.Username == username || u.Email == email) {
			return true
		}
	}
	return false
}

func (r *Users) List(_ context.Context, f models.UserFilter) ([]models.User, int, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	var out []models.User
	for _, u := range r.m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Active != nil && u.Active != *f.Active {
			continue
		}
		if f.Search != "" && !containsFold(u.Username, f.Search) && !containsFold(u.Email, f.Search) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Page), len(out), nil
}

func (r *Users) Create(_ context.Context, username, email, password string, role models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	if r.m.userTaken(username, email, 0) {
		return nil, store.ErrDuplicate
	}
	now := r.m.now()
	u := &models.User{
		ID: r.m.id(), Username: username, Email: email, PasswordHash: string(hash),
		Role: role, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	r.m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *Users) Update(_ context.Context, id int64, upd models.UserUpdate) error {
	var hash []byte
	if upd.Password != nil {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.MinCost); err != nil {
			return err
		}
	}
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if r.m.userTaken(upd.Username, upd.Email, id) {
		return store.ErrDuplicate
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil
	}
	u.Username, u.Email, u.Role, u.Active = upd.Username, upd.Email, upd.Role, upd.Active
	if hash != nil {
		u.PasswordHash = string(hash)
	}
	u.UpdatedAt = r.m.now()
	return nil
}

func (r *Users) SetPassword(_ context.Context, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if u, ok := r.m.users[id]; ok {
		u.PasswordHash = string(hash)
		u.UpdatedAt = r.m.now()
	}
	return nil
}

// Delete removes the user and cascades to their posts, comments, and
// reactions.
func (r *Users) Delete(_ context.Context, id int64) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	delete(r.m.users, id)
	for pid, p := range r.m.posts {
		if p.AuthorID == id {
			r.m.deletePost(pid)
		}
	}
	for cid, c := range r.m.comments {
		if c.UserID == id {
			r.m.deleteComment(cid)
		}
	}
	for k := range r.m.reactions {
		if k[1] == id {
			delete(r.m.reactions, k)
		}
	}
	return nil
}

func (r *Users) Count(_ context.Context) (int, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()
	return len(r.m.users), nil
}

func (r *Users) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// Categories is the in-memory store.CategoryStore.
type Categories struct{ m *Memory }

func (m *Memory) postCount(categoryID int64) int {
	n := 0
	for _, p := range m.posts {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n
}

func (r *Categories) List(_ context.Context) ([]models.Category, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := make([]models.Category, 0, len(r.m.categories))
	for _, c := range r.m.categories {
		cp := *c
		cp.PostCount = r.m.postCount(c.ID)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Categories) FindByID(_ context.Context, id int64) (*models.Category, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	if c, ok := r.m.categories[id]; ok {
		cp := *c
		cp.PostCount = r.m.postCount(id)
		return &cp, nil
	}
	return nil, nil
}

func (r *Categories) NameTaken(_ context.Context, name string, excludeID int64) (bool, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return false, err
	}
	defer unlock()
	return r.m.categoryTaken(name, excludeID), nil
}

func (m *Memory) categoryTaken(name string, excludeID int64) bool {
	for _, c := range m.categories {
		if c.ID != excludeID && c.Name == name {
			return true
		}
	}
	return false
}

func (r *Categories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	if r.m.categoryTaken(c.Name, 0) {
		return nil, store.ErrDuplicate
	}
	now := r.m.now()
	row := &models.Category{ID: r.m.id(), Name: c.Name, Description: c.Description, CreatedAt: now, UpdatedAt: now}
	r.m.categories[row.ID] = row
	cp := *row
	return &cp, nil
}

func (r *Categories) Update(_ context.Context, c *models.Category) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if r.m.categoryTaken(c.Name, c.ID) {
		return store.ErrDuplicate
	}
	if row, ok := r.m.categories[c.ID]; ok {
		row.Name, row.Description, row.UpdatedAt = c.Name, c.Description, r.m.now()
	}
	return nil
}

func (r *Categories) CountPosts(_ context.Context, id int64) (int, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()
	return r.m.postCount(id), nil
}

// Delete enforces the same restriction as the foreign key.
func (r *Categories) Delete(_ context.Context, id int64) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if r.m.postCount(id) > 0 {
		return errors.New("categories: violates foreign key constraint")
	}
	delete(r.m.categories, id)
	return nil
}

func (r *Categories) Count(_ context.Context) (int, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()
	return len(r.m.categories), nil
}
