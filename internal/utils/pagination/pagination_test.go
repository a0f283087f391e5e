package pagination

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFromRequest(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{query: "", want: Pagination{Page: 1, Limit: DefaultLimit, Offset: 0}},
		{query: "?page=3&limit=5", want: Pagination{Page: 3, Limit: 5, Offset: 10}},
		{query: "?page=0&limit=-1", want: Pagination{Page: 1, Limit: DefaultLimit, Offset: 0}},
		{query: "?page=x&limit=500", want: Pagination{Page: 1, Limit: MaxLimit, Offset: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			app := fiber.New()
			var got Pagination
			app.Get("/", func(c *fiber.Ctx) error {
				got = ParseFromRequest(c)
				return c.JSON(Response(Pagination{Page: got.Page, Limit: got.Limit, Total: 41}, []int{}))
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			body, _ := io.ReadAll(resp.Body)
			var out struct {
				Meta struct {
					TotalPages int64 `json:"total_pages"`
				} `json:"meta"`
			}
			require.NoError(t, json.Unmarshal(body, &out))
			want := (41 + int64(got.Limit) - 1) / int64(got.Limit)
			assert.Equal(t, want, out.Meta.TotalPages)
		})
	}
}
