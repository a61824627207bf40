package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEverything(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{"status": "ok", "totalResults": 1, "articles": [
				{"source": {"id": "reuters", "name": "Reuters"}, "author": "A",
				 "title": "Story", "description": "desc", "url": "https://x.example/1",
				 "publishedAt": "2024-10-10T08:00:00Z", "content": "body"}
			]}`,
		},
		{
			name:    "rate_limit",
			status:  http.StatusTooManyRequests,
			body:    `{"status": "error", "code": "rateLimited"}`,
			wantErr: "unexpected status 429",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/everything", r.URL.Path)

				q := r.URL.Query()
				assert.Equal(t, `"prostate cancer"`, q.Get("q"))
				assert.Equal(t, "test-key", q.Get("apiKey"))
				assert.Equal(t, "en", q.Get("language"))
				assert.Equal(t, "publishedAt", q.Get("sortBy"))
				assert.Equal(t, "100", q.Get("pageSize"))
				assert.Equal(t, "2024-10-01", q.Get("from"))
				assert.Equal(t, "2024-10-17", q.Get("to"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))
			resp, err := client.Everything(context.Background(), EverythingRequest{
				Query: `"prostate cancer"`,
				From:  time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
				To:    time.Date(2024, 10, 17, 0, 0, 0, 0, time.UTC),
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, 1, resp.TotalResults)
			require.Len(t, resp.Articles, 1)
			assert.Equal(t, "Reuters", resp.Articles[0].Source.Name)
			assert.Equal(t, "2024-10-10T08:00:00Z", resp.Articles[0].PublishedAt)
		})
	}
}

func TestEverythingClampsPageSize(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("pageSize")
		_, _ = w.Write([]byte(`{"status": "ok", "totalResults": 0, "articles": []}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Everything(context.Background(), EverythingRequest{Query: "x", PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, "100", got, "page size never exceeds the provider maximum")
}
