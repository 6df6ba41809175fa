package testutil

import (
	"context"
	"sort"

	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/store"
)

// Posts is the in-memory store.PostStore.
type Posts struct{ m *Memory }

// hydrate copies a post row and fills in the joined columns.
func (m *Memory) hydrate(p *models.Post) models.Post {
	cp := *p
	if u, ok := m.users[p.AuthorID]; ok {
		cp.AuthorName = u.Username
	}
	if c, ok := m.categories[p.CategoryID]; ok {
		cp.CategoryName = c.Name
	}
	cp.Tags = nil
	for _, tid := range m.postTags[p.ID] {
		if t, ok := m.tags[tid]; ok {
			cp.Tags = append(cp.Tags, *t)
		}
	}
	sort.Slice(cp.Tags, func(i, j int) bool { return cp.Tags[i].Name < cp.Tags[j].Name })
	return cp
}

func (r *Posts) FindByID(_ context.Context, id int64) (*models.Post, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	p, ok := r.m.posts[id]
	if !ok {
		return nil, nil
	}
	out := r.m.hydrate(p)
	return &out, nil
}

func (r *Posts) Exists(_ context.Context, id int64) (bool, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return false, err
	}
	defer unlock()
	_, ok := r.m.posts[id]
	return ok, nil
}

func matchPost(p *models.Post, f models.PostFilter) bool {
	switch {
	case f.Status != "" && p.Status != f.Status:
		return false
	case f.CategoryID > 0 && p.CategoryID != f.CategoryID:
		return false
	case f.AuthorID > 0 && p.AuthorID != f.AuthorID:
		return false
	case f.Search != "" && !containsFold(p.Title, f.Search):
		return false
	case f.PublishedOnly && !p.IsPublished():
		return false
	case !f.PublishedOnly && f.PublishedOrOwner > 0 && !p.IsPublished() && p.AuthorID != f.PublishedOrOwner:
		return false
	}
	return true
}

// sorted returns hydrated posts newest first.
func (m *Memory) sortedPosts(keep func(*models.Post) bool) []models.Post {
	var out []models.Post
	for _, p := range m.posts {
		if keep(p) {
			out = append(out, m.hydrate(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *Posts) List(_ context.Context, f models.PostFilter) ([]models.Post, int, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, 0, err
	}
	defer unlock()
	out := r.m.sortedPosts(func(p *models.Post) bool { return matchPost(p, f) })
	return page(out, f.Page), len(out), nil
}

func (r *Posts) Recent(_ context.Context, limit int, authorID int64) ([]models.Post, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := r.m.sortedPosts(func(p *models.Post) bool { return authorID == 0 || p.AuthorID == authorID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Posts) Create(_ context.Context, p *models.Post) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	p.ID = r.m.id()
	p.CreatedAt = r.m.now()
	p.UpdatedAt = p.CreatedAt
	row := *p
	row.Tags = nil
	r.m.posts[p.ID] = &row
	return nil
}

func (r *Posts) Update(_ context.Context, p *models.Post) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	row, ok := r.m.posts[p.ID]
	if !ok {
		return nil
	}
	row.Title, row.Content, row.Excerpt = p.Title, p.Content, p.Excerpt
	row.CategoryID, row.Status, row.FeaturedImage = p.CategoryID, p.Status, p.FeaturedImage
	row.UpdatedAt = r.m.now()
	p.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Posts) Delete(_ context.Context, id int64) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	r.m.deletePost(id)
	return nil
}

// deletePost cascades to comments, reactions, and tag links.
func (m *Memory) deletePost(id int64) {
	delete(m.posts, id)
	delete(m.postTags, id)
	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
		}
	}
	for k := range m.reactions {
		if k[0] == id {
			delete(m.reactions, k)
		}
	}
}

func (r *Posts) IDsByAuthor(_ context.Context, authorID int64) ([]int64, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	var ids []int64
	for id, p := range r.m.posts {
		if p.AuthorID == authorID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *Posts) Count(_ context.Context, authorID int64) (int, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := 0
	for _, p := range r.m.posts {
		if authorID == 0 || p.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

// Tags is the in-memory store.TagStore.
type Tags struct{ m *Memory }

func (r *Tags) FindOrCreate(_ context.Context, name string) (*models.Tag, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, t := range r.m.tags {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	t := &models.Tag{ID: r.m.id(), Name: name, CreatedAt: r.m.now()}
	r.m.tags[t.ID] = t
	cp := *t
	return &cp, nil
}

func (r *Tags) Attach(_ context.Context, postID, tagID int64) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	for _, id := range r.m.postTags[postID] {
		if id == tagID {
			return nil
		}
	}
	r.m.postTags[postID] = append(r.m.postTags[postID], tagID)
	return nil
}

func (r *Tags) DetachAll(_ context.Context, postID int64) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	delete(r.m.postTags, postID)
	return nil
}

func (r *Tags) List(_ context.Context) ([]models.Tag, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	counts := map[int64]int{}
	for _, ids := range r.m.postTags {
		for _, id := range ids {
			counts[id]++
		}
	}
	out := make([]models.Tag, 0, len(r.m.tags))
	for _, t := range r.m.tags {
		cp := *t
		cp.PostCount = counts[t.ID]
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Comments is the in-memory store.CommentStore.
type Comments struct{ m *Memory }

func (m *Memory) hydrateComment(c *models.Comment) models.Comment {
	cp := *c
	if u, ok := m.users[c.UserID]; ok {
		cp.Username = u.Username
	}
	if p, ok := m.posts[c.PostID]; ok {
		cp.PostTitle = p.Title
	}
	return cp
}

func (r *Comments) FindByID(_ context.Context, id int64) (*models.Comment, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	c, ok := r.m.comments[id]
	if !ok {
		return nil, nil
	}
	out := r.m.hydrateComment(c)
	out.PostTitle = ""
	return &out, nil
}

func (r *Comments) Create(_ context.Context, c *models.Comment) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	c.ID = r.m.id()
	c.CreatedAt = r.m.now()
	c.UpdatedAt = c.CreatedAt
	if u, ok := r.m.users[c.UserID]; ok {
		c.Username = u.Username
	}
	row := *c
	r.m.comments[c.ID] = &row
	return nil
}

func (r *Comments) ListByPost(_ context.Context, postID int64, approvedOnly bool) ([]models.Comment, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []models.Comment
	for _, c := range r.m.comments {
		if c.PostID != postID || (approvedOnly && c.Status != models.CommentStatusApproved) {
			continue
		}
		cp := r.m.hydrateComment(c)
		cp.PostTitle = ""
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Comments) Update(_ context.Context, id int64, patch models.CommentPatch) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	c, ok := r.m.comments[id]
	if !ok {
		return nil
	}
	if patch.Content != nil {
		c.Content = *patch.Content
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	c.UpdatedAt = r.m.now()
	return nil
}

func (r *Comments) Delete(_ context.Context, id int64) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	r.m.deleteComment(id)
	return nil
}

// deleteComment cascades to replies.
func (m *Memory) deleteComment(id int64) {
	delete(m.comments, id)
	for cid, c := range m.comments {
		if c.ParentID != nil && *c.ParentID == id {
			delete(m.comments, cid)
		}
	}
}

func (r *Comments) List(_ context.Context, f models.CommentFilter) ([]models.Comment, int, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, 0, err
	}
	defer unlock()
	var out []models.Comment
	for _, c := range r.m.comments {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.PostID > 0 && c.PostID != f.PostID {
			continue
		}
		if f.AuthorID > 0 {
			if p, ok := r.m.posts[c.PostID]; !ok || p.AuthorID != f.AuthorID {
				continue
			}
		}
		cp := r.m.hydrateComment(c)
		if f.Search != "" && !containsFold(cp.Content, f.Search) &&
			!containsFold(cp.Username, f.Search) && !containsFold(cp.PostTitle, f.Search) {
			continue
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, f.Page), len(out), nil
}

func (r *Comments) Count(_ context.Context, authorID int64) (int, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := 0
	for _, c := range r.m.comments {
		if authorID > 0 {
			if p, ok := r.m.posts[c.PostID]; !ok || p.AuthorID != authorID {
				continue
			}
		}
		n++
	}
	return n, nil
}

// Reactions is the in-memory store.ReactionStore.
type Reactions struct{ m *Memory }

func (r *Reactions) Find(_ context.Context, postID, userID int64) (*models.Reaction, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	if rx, ok := r.m.reactions[[2]int64{postID, userID}]; ok {
		cp := *rx
		return &cp, nil
	}
	return nil, nil
}

func (r *Reactions) Insert(_ context.Context, postID, userID int64, t models.ReactionType) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	key := [2]int64{postID, userID}
	if _, ok := r.m.reactions[key]; ok {
		return store.ErrDuplicate
	}
	r.m.reactions[key] = &models.Reaction{PostID: postID, UserID: userID, Type: t, CreatedAt: r.m.now()}
	return nil
}

func (r *Reactions) ChangeType(_ context.Context, postID, userID int64, t models.ReactionType) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if rx, ok := r.m.reactions[[2]int64{postID, userID}]; ok {
		rx.Type = t
		rx.CreatedAt = r.m.now()
	}
	return nil
}

func (r *Reactions) Delete(_ context.Context, postID, userID int64) error {
	unlock, err := r.m.lock()
	if err != nil {
		return err
	}
	defer unlock()
	delete(r.m.reactions, [2]int64{postID, userID})
	return nil
}

func (r *Reactions) Counts(_ context.Context, postID int64) (models.ReactionCounts, error) {
	unlock, err := r.m.lock()
	if err != nil {
		return models.ReactionCounts{}, err
	}
	defer unlock()
	var c models.ReactionCounts
	for k, rx := range r.m.reactions {
		if k[0] != postID {
			continue
		}
		if rx.Type == models.ReactionLike {
			c.Likes++
		} else {
			c.Dislikes++
		}
	}
	return c, nil
}

// Rows returns the number of stored reactions for a post.
func (r *Reactions) Rows(postID int64) int {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for k := range r.m.reactions {
		if k[0] == postID {
			n++
		}
	}
	return n
}
