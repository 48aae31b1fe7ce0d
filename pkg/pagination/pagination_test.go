package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, DefaultOffset},
		{"limit=10&offset=20", 10, 20},
		{"limit=0", DefaultLimit, DefaultOffset},
		{"limit=-5", DefaultLimit, DefaultOffset},
		{"limit=500", MaxLimit, DefaultOffset},
		{"limit=abc&offset=xyz", DefaultLimit, DefaultOffset},
		{"offset=-1", DefaultLimit, DefaultOffset},
		{"limit=10.5", DefaultLimit, DefaultOffset},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest(http.MethodGet, "/?"+tt.query, nil)

			p := ParseParams(c)
			assert.Equal(t, tt.limit, p.Limit)
			assert.Equal(t, tt.offset, p.Offset)
		})
	}
}

func TestBuildMeta(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		total      int64
		totalPages int
		hasMore    bool
	}{
		{"first of many", 10, 0, 25, 3, true},
		{"last page", 10, 20, 25, 3, false},
		{"exact fit", 20, 0, 20, 1, false},
		{"empty", 10, 0, 0, 0, false},
		{"zero limit", 0, 0, 100, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := BuildMeta(tt.limit, tt.offset, tt.total)
			assert.Equal(t, tt.limit, meta.Limit)
			assert.Equal(t, tt.offset, meta.Offset)
			assert.Equal(t, tt.total, meta.Total)
			assert.Equal(t, tt.totalPages, meta.TotalPages)
			assert.Equal(t, tt.hasMore, meta.HasMore)
		})
	}
}
