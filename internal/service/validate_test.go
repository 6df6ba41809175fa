package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SherPsu/cms-blog/internal/models"
)

func TestValidatePostColumnWidths(t *testing.T) {
	tests := []struct {
		name         string
		title, image string
		want         string
	}{
		{"title at limit", strings.Repeat("t", 255), "", ""},
		{"title over limit", strings.Repeat("t", 256), "", "Title is too long (max 255 characters)"},
		{"multibyte title at limit", strings.Repeat("é", 255), "", ""},
		{"image at limit", "t", strings.Repeat("i", 255), ""},
		{"image over limit", "t", strings.Repeat("i", 256), "Featured image URL is too long (max 255 characters)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validatePost(tt.title, "body", "", tt.image))
		})
	}
}

func TestValidateCategoryColumnWidths(t *testing.T) {
	assert.Empty(t, validateCategory(strings.Repeat("c", 50), ""))
	assert.Equal(t, "Category name is too long (max 50 characters)", validateCategory(strings.Repeat("c", 51), ""))
	assert.Equal(t, "Category name is required", validateCategory("", ""))
}

func TestCategoryCreateNameTooLong(t *testing.T) {
	e := newEnv(t)
	admin := e.seed.Identity(models.RoleAdmin)

	_, err := e.categories.Create(e.ctx, admin, strings.Repeat("n", 60), "")
	assertKind(t, err, models.KindValidation)

	c, err := e.categories.Create(e.ctx, admin, strings.Repeat("n", 50), "")
	assert.NoError(t, err)
	assert.NotNil(t, c)
}
