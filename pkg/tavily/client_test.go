package tavily

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{"results": [
				{"title": "Story", "url": "https://x.example/1", "content": "body", "published_date": ""}
			]}`,
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "internal"}`,
			wantErr: "unexpected status 500",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/search", r.URL.Path)

				reqBody, _ := io.ReadAll(r.Body)
				var req map[string]any
				require.NoError(t, json.Unmarshal(reqBody, &req))
				assert.Equal(t, "test-key", req["api_key"], "the key travels in the body")
				assert.Equal(t, "advanced", req["search_depth"])
				assert.Equal(t, float64(7), req["days"])

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))
			resp, err := client.Search(context.Background(), SearchRequest{
				Query:      "prostate cancer",
				MaxResults: 20,
				Days:       7,
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Len(t, resp.Results, 1)
			assert.Equal(t, "Story", resp.Results[0].Title)
			assert.Empty(t, resp.Results[0].PublishedDate)
		})
	}
}

func TestSearchDefaultsDepth(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqBody, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(reqBody, &req)
		got, _ = req["search_depth"].(string)
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), SearchRequest{Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, "advanced", got)
}
