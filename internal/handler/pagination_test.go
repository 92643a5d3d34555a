package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	t.Run("defaults when absent", func(t *testing.T) {
		p := ParsePagination(httptest.NewRequest("GET", "/logs", nil))
		assert.Equal(t, DefaultLimit, p.Limit)
		assert.Zero(t, p.Offset)
	})

	t.Run("honors explicit values", func(t *testing.T) {
		p := ParsePagination(httptest.NewRequest("GET", "/logs?limit=20&offset=40", nil))
		assert.Equal(t, 20, p.Limit)
		assert.Equal(t, 40, p.Offset)
	})

	t.Run("caps oversized limits", func(t *testing.T) {
		p := ParsePagination(httptest.NewRequest("GET", "/logs?limit=500", nil))
		assert.Equal(t, MaxLimit, p.Limit)
	})

	t.Run("rejects negative values", func(t *testing.T) {
		p := ParsePagination(httptest.NewRequest("GET", "/logs?limit=-1&offset=-5", nil))
		assert.Equal(t, DefaultLimit, p.Limit)
		assert.Zero(t, p.Offset)
	})
}
