package text

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "just words", "just words"},
		{"paragraphs", "<p>Hello</p><p>World</p>", "HelloWorld"},
		{"inline markup", `<p>Go <a href="/x">here</a> <strong>now</strong></p>`, "Go here now"},
		{"entities decoded", "<p>Fish &amp; Chips</p>", "Fish & Chips"},
		{"script dropped", "<p>a</p><script>alert(1)</script><p>b</p>", "ab"},
		{"style dropped", "<style>p{color:red}</style>text", "text"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripTags(tt.input))
		})
	}
}

func TestExcerptShortContentUnchanged(t *testing.T) {
	assert.Equal(t, "Short post body.", Excerpt("  <p>Short post body.</p>\n", ExcerptLength))
}

func TestExcerptExactBudgetUnchanged(t *testing.T) {
	body := strings.Repeat("a", ExcerptLength)
	assert.Equal(t, body, Excerpt(body, ExcerptLength))
}

func TestExcerptCutsAtLastSpace(t *testing.T) {
	words := strings.Repeat("word ", 60) // 300 bytes
	got := Excerpt(words, ExcerptLength)

	assert.True(t, strings.HasSuffix(got, "..."))
	trimmed := strings.TrimSuffix(got, "...")
	assert.LessOrEqual(t, len(trimmed), ExcerptLength)
	assert.False(t, strings.HasSuffix(trimmed, " "), "cut lands before the space")
	assert.Equal(t, "word", trimmed[len(trimmed)-4:])
}

func TestExcerptNoSpaceCutsAtBudget(t *testing.T) {
	got := Excerpt(strings.Repeat("x", 400), ExcerptLength)
	assert.Equal(t, strings.Repeat("x", ExcerptLength)+"...", got)
}

func TestExcerptKeepsRunesWhole(t *testing.T) {
	// 'é' is two bytes, so byte 250 falls inside a rune.
	got := Excerpt("a"+strings.Repeat("é", 200), ExcerptLength)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestExcerptIgnoresMarkupLength(t *testing.T) {
	markup := `<p class="` + strings.Repeat("long-class ", 40) + `">Tiny.</p>`
	assert.Equal(t, "Tiny.", Excerpt(markup, ExcerptLength))
}
