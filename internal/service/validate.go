package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Validation limits for user-supplied fields. Limits on VARCHAR columns
// match the column width in the migrations.
const (
	maxTitleLen        = 255
	maxPostContentLen  = 100_000
	maxExcerptLen      = 1_000
	maxImageURLLen     = 255
	maxTagLen          = 50
	maxCommentLen      = 10_000
	maxCategoryNameLen = 50
	maxCategoryDescLen = 1_000
	maxUsernameLen     = 50
	maxEmailLen        = 100
	minPasswordLen     = 6
)

// validatePost checks post fields and returns the first error found.
func validatePost(title, content, excerpt, image string) string {
	if strings.TrimSpace(title) == "" {
		return "Title is required"
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 255 characters)"
	}
	if strings.TrimSpace(content) == "" {
		return "Content is required"
	}
	if utf8.RuneCountInString(content) > maxPostContentLen {
		return "Content is too long (max 100,000 characters)"
	}
	if utf8.RuneCountInString(excerpt) > maxExcerptLen {
		return "Excerpt is too long (max 1,000 characters)"
	}
	if utf8.RuneCountInString(image) > maxImageURLLen {
		return "Featured image URL is too long (max 255 characters)"
	}
	return ""
}

// validateComment checks trimmed comment content.
func validateComment(content string) string {
	if content == "" {
		return "Comment content is required"
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return "Comment is too long (max 10,000 characters)"
	}
	return ""
}

func validateCategory(name, description string) string {
	if name == "" {
		return "Category name is required"
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLen {
		return "Category name is too long (max 50 characters)"
	}
	if utf8.RuneCountInString(description) > maxCategoryDescLen {
		return "Description is too long (max 1,000 characters)"
	}
	return ""
}

// validateAccount checks the username and email shared by registration and
// admin edits.
func validateAccount(username, email string) string {
	if username == "" || email == "" {
		return "Username and email are required"
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return "Username is too long (max 50 characters)"
	}
	if len(email) > maxEmailLen || !validEmail(email) {
		return "Invalid email format"
	}
	return ""
}

func validatePassword(password, confirm string) string {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return "Password must be at least 6 characters long"
	}
	if password != confirm {
		return "Passwords do not match"
	}
	return ""
}

// validEmail accepts a bare address only, not "Name <addr>" forms.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// normalizeTags trims names, drops empties and over-long names, and
// removes duplicates while keeping order.
func normalizeTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || utf8.RuneCountInString(n) > maxTagLen {
			continue
		}
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// SplitTags parses a comma-separated tag field.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return normalizeTags(strings.Split(s, ","))
}
