package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/store"
)

// Categories manages blog categories. Only administrators may change them.
type Categories struct {
	categories CategoryRepository
}

// NewCategories creates the category service.
func NewCategories(categories CategoryRepository) *Categories {
	return &Categories{categories: categories}
}

// List returns every category with its post count, ordered by name.
func (s *Categories) List(ctx context.Context) ([]models.Category, error) {
	list, err := s.categories.List(ctx)
	if err != nil {
		return nil, models.NewStoreError("Error loading categories", err)
	}
	return list, nil
}

// Get returns one category or a NotFound error.
func (s *Categories) Get(ctx context.Context, categoryID int64) (*models.Category, error) {
	c, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return nil, models.NewStoreError("Error loading category", err)
	}
	if c == nil {
		return nil, models.NewNotFoundError("Category not found")
	}
	return c, nil
}

// Create adds a category with a unique name.
func (s *Categories) Create(ctx context.Context, id access.Identity, name, description string) (*models.Category, error) {
	if err := access.Require(id, access.Category, access.Manage); err != nil {
		return nil, err
	}
	name, description = strings.TrimSpace(name), strings.TrimSpace(description)
	if err := s.checkName(ctx, name, description, 0); err != nil {
		return nil, err
	}

	c, err := s.categories.Create(ctx, &models.Category{Name: name, Description: description})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, models.NewConflictError("Category name already exists")
	}
	if err != nil {
		return nil, models.NewStoreError("Error creating category", err)
	}
	return c, nil
}

// Update renames or re-describes a category.
func (s *Categories) Update(ctx context.Context, id access.Identity, categoryID int64, name, description string) (*models.Category, error) {
	if err := access.Require(id, access.Category, access.Manage); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	name, description = strings.TrimSpace(name), strings.TrimSpace(description)
	if err := s.checkName(ctx, name, description, categoryID); err != nil {
		return nil, err
	}

	c.Name, c.Description = name, description
	err = s.categories.Update(ctx, c)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, models.NewConflictError("Category name already exists")
	}
	if err != nil {
		return nil, models.NewStoreError("Error updating category", err)
	}
	return s.Get(ctx, categoryID)
}

func (s *Categories) checkName(ctx context.Context, name, description string, excludeID int64) error {
	if msg := validateCategory(name, description); msg != "" {
		return models.NewValidationError(msg)
	}
	taken, err := s.categories.NameTaken(ctx, name, excludeID)
	if err != nil {
		return models.NewStoreError("Error checking category name", err)
	}
	if taken {
		return models.NewConflictError("Category name already exists")
	}
	return nil
}

// Delete removes a category that no post references.
func (s *Categories) Delete(ctx context.Context, id access.Identity, categoryID int64) error {
	if err := access.Require(id, access.Category, access.Manage); err != nil {
		return err
	}
	if _, err := s.Get(ctx, categoryID); err != nil {
		return err
	}

	n, err := s.categories.CountPosts(ctx, categoryID)
	if err != nil {
		return models.NewStoreError("Error deleting category", err)
	}
	if n > 0 {
		return models.NewConflictError(fmt.Sprintf("Cannot delete category: it has %d posts associated with it.", n))
	}

	if err := s.categories.Delete(ctx, categoryID); err != nil {
		return models.NewStoreError("Error deleting category", err)
	}
	return nil
}
