package slug

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Home & Away!!", "home-and-away"},
		{"Contact", "contact"},
		{"Fish &amp; Chips", "fish-and-chips"},
		{"  About   us  ", "about-us"},
		{"Top 10 -- Tips", "top-10-tips"},
		{"Café Crème", "cafe-creme"},
		{"___", ""},
		{"", ""},
		{"日本語", ""},
		{"a&b", "a-and-b"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.title))
		})
	}
}

func TestNormalize_Alphabet(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	titles := []string{
		"Home & Away!!", "--x--", "Ω mega", "Über Größe", "100%", "a/b\\c",
		"tab\tand\nnewline", "&&&", "Q&A", "Hello, World", "ÀÉÎÕÜ", "x-1-",
	}
	for _, title := range titles {
		got := Normalize(title)
		if got == "" {
			got = Fallback("3f1c2b9e-0000-4000-8000-000000000001")
		}
		assert.Regexp(t, valid, got, "title %q", title)
	}
}

func TestFallback(t *testing.T) {
	assert.Equal(t, "page-42", Fallback("42"))
	assert.Equal(t, "page-ab-cd", Fallback("AB_CD"))
}

func TestStripSuffix(t *testing.T) {
	assert.Equal(t, "contact", StripSuffix("contact-2"))
	assert.Equal(t, "contact", StripSuffix("contact-15"))
	assert.Equal(t, "contact", StripSuffix("contact"))
	assert.Equal(t, "top", StripSuffix("top-10"))
	assert.Equal(t, "2024", StripSuffix("2024"))
	assert.Equal(t, "a-b", StripSuffix("a-b"))
}
