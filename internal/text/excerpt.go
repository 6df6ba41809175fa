package text

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ExcerptLength is the byte budget for generated excerpts.
const ExcerptLength = 250

// excerptSuffix marks a truncated excerpt.
const excerptSuffix = "..."

// StripTags removes HTML markup and returns the text content with entities
// decoded. Script and style bodies are dropped.
func StripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way keep what we have.
			return b.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	n := string(name)
	return n == "script" || n == "style"
}

// Excerpt builds a plain-text summary of HTML content. Text that fits in
// length bytes is returned whole. Longer text is cut at the last space
// inside the budget, or at the budget itself when there is no space, and
// gets a trailing "...".
func Excerpt(content string, length int) string {
	plain := strings.TrimSpace(StripTags(content))
	if len(plain) <= length {
		return plain
	}

	cut := plain[:length]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	} else {
		// Never split a multi-byte rune.
		for len(cut) > 0 && !utf8.RuneStart(plain[len(cut)]) {
			cut = cut[:len(cut)-1]
		}
	}
	return cut + excerptSuffix
}
