package httputil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/workforce-sync/internal/httputil"
)

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query      string
		wantOffset int
		wantLimit  int
		wantErr    string
	}{
		{query: "", wantOffset: 0, wantLimit: httputil.DefaultPageSize},
		{query: "severity=ERROR&offset=40&limit=20", wantOffset: 40, wantLimit: 20},
		{query: "limit=100", wantLimit: httputil.MaxPageSize},
		{query: "limit=1", wantLimit: 1},
		{query: "offset=-1", wantErr: "invalid offset parameter: must be a non-negative integer"},
		{query: "offset=next", wantErr: "invalid offset parameter: must be a non-negative integer"},
		{query: "limit=0", wantErr: "invalid limit parameter: must be between 1 and 100"},
		{query: "limit=101", wantErr: "invalid limit parameter: must be between 1 and 100"},
		{query: "limit=all", wantErr: "invalid limit parameter: must be between 1 and 100"},
	}

	for _, tt := range tests {
		t.Run("query="+tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/v1/dead-letters?"+tt.query, nil)

			offset, limit, err := httputil.ParsePagination(c)

			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				assert.Zero(t, offset)
				assert.Zero(t, limit)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}
