package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func paramsFor(query string) Params {
	return FromRequest(httptest.NewRequest(http.MethodGet, "/events"+query, nil))
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantPage    int
		wantPerPage int
		wantOffset  int
	}{
		{"defaults", "", 1, 20, 0},
		{"explicit values", "?page=3&per_page=50", 3, 50, 100},
		{"negative page ignored", "?page=-1", 1, 20, 0},
		{"zero page ignored", "?page=0", 1, 20, 0},
		{"non-numeric page ignored", "?page=abc", 1, 20, 0},
		{"per_page above cap ignored", "?per_page=200", 1, 20, 0},
		{"per_page at cap accepted", "?per_page=100", 1, 100, 0},
		{"zero per_page ignored", "?per_page=0", 1, 20, 0},
		{"offset scales with page size", "?page=5&per_page=25", 5, 25, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(tt.query)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestNewResult_SinglePage(t *testing.T) {
	res := NewResult([]string{"a", "b", "c"}, 3, Params{Page: 1, PerPage: 10})

	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 1, res.TotalPages)
	assert.False(t, res.HasNext)
	assert.False(t, res.HasPrev)
}

func TestNewResult_MiddlePage(t *testing.T) {
	res := NewResult([]string{"a", "b"}, 10, Params{Page: 2, PerPage: 2})

	assert.Equal(t, 5, res.TotalPages)
	assert.True(t, res.HasNext)
	assert.True(t, res.HasPrev)
}

func TestNewResult_TotalPagesRoundsUp(t *testing.T) {
	res := NewResult([]string{"a"}, 11, Params{Page: 3, PerPage: 5})

	assert.Equal(t, 3, res.TotalPages)
	assert.False(t, res.HasNext)
	assert.True(t, res.HasPrev)
}

func TestNewResult_Empty(t *testing.T) {
	res := NewResult([]string{}, 0, Params{Page: 1, PerPage: 20})

	assert.Zero(t, res.TotalCount)
	assert.Zero(t, res.TotalPages)
	assert.False(t, res.HasNext)
	assert.False(t, res.HasPrev)
}
