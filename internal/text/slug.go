// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package text holds the small string transforms applied to post content:
// URL slugs, HTML tag stripping, and excerpt generation.
package text

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// nonSlugChars matches anything that isn't a letter, digit, space, or hyphen.
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	// separatorRun collapses whitespace and hyphen runs into one hyphen.
	separatorRun = regexp.MustCompile(`[\s-]+`)
)

// Slug creates a URL-friendly slug from a post title.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Slug(s string) string {
	result := strings.ToLower(s)
	result = nonSlugChars.ReplaceAllString(result, "")
	result = separatorRun.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// PostPath returns the public address of a post, with the title slug
// appended when the title has one.
func PostPath(id int64, title string) string {
	path := "/posts/" + strconv.FormatInt(id, 10)
	if slug := Slug(title); slug != "" {
		path += "/" + slug
	}
	return path
}
