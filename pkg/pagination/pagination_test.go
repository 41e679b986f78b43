package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Page: 1, PerPage: DefaultPerPage}},
		{"?page=3&per_page=10", Params{Page: 3, PerPage: 10}},
		{"?page=0&per_page=-4", Params{Page: 1, PerPage: DefaultPerPage}},
		{"?page=abc", Params{Page: 1, PerPage: DefaultPerPage}},
		{"?per_page=5000", Params{Page: 1, PerPage: MaxPerPage}},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/wishlist"+tc.query, nil)
			assert.Equal(t, tc.want, FromRequest(r))
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	first := Paginate(items, Params{Page: 1, PerPage: 2})
	assert.Equal(t, []string{"a", "b"}, first.Items)
	assert.Equal(t, 5, first.TotalCount)
	assert.Equal(t, 3, first.TotalPages)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)

	last := Paginate(items, Params{Page: 3, PerPage: 2})
	assert.Equal(t, []string{"e"}, last.Items)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
}

func TestPaginate_PastEnd(t *testing.T) {
	res := Paginate([]int{1, 2}, Params{Page: 9, PerPage: 10})
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, res.TotalPages)
}

func TestPaginate_Empty(t *testing.T) {
	res := Paginate([]int(nil), Params{Page: 1, PerPage: 10})
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.TotalPages)
	assert.False(t, res.HasNext)
}

func TestPaginate_DoesNotAliasInput(t *testing.T) {
	items := []int{1, 2, 3}
	res := Paginate(items, Params{Page: 1, PerPage: 3})
	res.Items[0] = 99
	assert.Equal(t, 1, items[0])
}
