package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain words", "Housewarming Party", "housewarming-party"},
		{"already lower", "baby shower", "baby-shower"},
		{"upper case", "EOFY DRINKS", "eofy-drinks"},
		{"accents folded", "Café Crawl", "cafe-crawl"},
		{"more accents", "Fiancée Farewell", "fiancee-farewell"},
		{"punctuation collapses", "30th!!! Birthday???", "30th-birthday"},
		{"apostrophes and symbols", "Dinner @ Nonna's", "dinner-nonna-s"},
		{"leading trailing junk", "  --Engagement--  ", "engagement"},
		{"tabs and runs of spaces", "hens\t\t  night", "hens-night"},
		{"digits kept", "Christmas 2026", "christmas-2026"},
		{"empty", "", ""},
		{"only punctuation", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.input))
		})
	}
}

func TestGenerate_NeverDoublesHyphens(t *testing.T) {
	assert.Equal(t, "a-b", Generate("a---b"))
	assert.Equal(t, "a-b", Generate("a - - b"))
}
