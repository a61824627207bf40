package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/pkg/llm"
)

// fakeLLM scripts responses per call and records the requests it saw.
type fakeLLM struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     int
	requests  []llm.ChatRequest
}

type fakeResponse struct {
	text string
	err  error
}

func (f *fakeLLM) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	var r fakeResponse
	if f.calls < len(f.responses) {
		r = f.responses[f.calls]
	} else if len(f.responses) > 0 {
		r = f.responses[len(f.responses)-1]
	}
	f.calls++

	if r.err != nil {
		return nil, r.err
	}
	return &llm.ChatResponse{
		Text:  r.text,
		Usage: llm.Usage{InputTokens: 100, OutputTokens: 10},
	}, nil
}

func TestParseDateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "2024-10-15", want: "2024-10-15", ok: true},
		{in: "2024-10-15T08:30:00Z", want: "2024-10-15", ok: true},
		{in: "October 15, 2024", want: "2024-10-15", ok: true},
		{in: "Oct 15, 2024", want: "2024-10-15", ok: true},
		{in: "15 October 2024", want: "2024-10-15", ok: true},
		{in: "20241015", want: "2024-10-15", ok: true},
		{in: "2024/10/15", want: "2024-10-15", ok: true},
		{in: "  2024-10-15  ", want: "2024-10-15", ok: true},
		{in: "not a date", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDateString(tt.in)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.Format("2006-01-02"))
			}
		})
	}
}

func TestRegexExtractDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		title   string
		content string
		want    string
		ok      bool
	}{
		{name: "url slash form", url: "https://ex.com/2024/10/15/story", want: "2024-10-15", ok: true},
		{name: "url compact form", url: "https://ex.com/20241015/story", want: "2024-10-15", ok: true},
		{name: "iso in content", content: "Published 2024-10-15 by staff", want: "2024-10-15", ok: true},
		{name: "month day year", content: "Posted on October 15, 2024 in News", want: "2024-10-15", ok: true},
		{name: "day month year", content: "15 October 2024 - breaking", want: "2024-10-15", ok: true},
		{name: "most recent wins", content: "Updated 2024-10-17, originally 2024-10-01", want: "2024-10-17", ok: true},
		{name: "implausible year rejected", content: "error code 1234-56-78", ok: false},
		{name: "nothing", content: "no dates here at all", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := regexExtractDate(tt.url, tt.title, tt.content)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.Format("2006-01-02"))
			}
		})
	}
}

func TestResolveDatesMetadataTier(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{}
	resolver := NewDateResolver(client, "cheap-model", time.Second, 2)

	articles := []model.Article{
		{Title: "has metadata", RawDate: "2024-10-12"},
	}
	out, stats := resolver.ResolveDates(context.Background(), articles)

	require.Len(t, out, 1)
	assert.Equal(t, model.DateOriginMetadata, out[0].DateOrigin)
	assert.Equal(t, "2024-10-12", out[0].ResolvedDate.Format("2006-01-02"))
	assert.Equal(t, 1, stats.WithDates)
	assert.Zero(t, stats.ModelExtracted)
	assert.Zero(t, client.calls, "metadata success must not invoke the model")
}

func TestResolveDatesModelTier(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{responses: []fakeResponse{{text: "2024-10-15"}}}
	resolver := NewDateResolver(client, "cheap-model", time.Second, 2)

	articles := []model.Article{
		{Title: "no stored date", URL: "https://ex.com/story", Content: "body text"},
	}
	out, stats := resolver.ResolveDates(context.Background(), articles)

	require.Len(t, out, 1)
	assert.Equal(t, model.DateOriginModel, out[0].DateOrigin)
	assert.Equal(t, "2024-10-15", out[0].ResolvedDate.Format("2006-01-02"))
	assert.Equal(t, 1, stats.ModelExtracted)
	assert.Equal(t, 100, stats.Usage.InputTokens)
}

func TestResolveDatesModelNoneFallsToRegex(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{responses: []fakeResponse{{text: "none"}}}
	resolver := NewDateResolver(client, "cheap-model", time.Second, 2)

	articles := []model.Article{
		{Title: "url carries the date", URL: "https://ex.com/2024/10/15/story"},
	}
	out, _ := resolver.ResolveDates(context.Background(), articles)

	require.Len(t, out, 1)
	assert.Equal(t, model.DateOriginRegex, out[0].DateOrigin)
	assert.Equal(t, "2024-10-15", out[0].ResolvedDate.Format("2006-01-02"))
}

func TestResolveDatesModelErrorFallsToRegex(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{responses: []fakeResponse{{err: errors.New("boom")}}}
	resolver := NewDateResolver(client, "cheap-model", time.Second, 2)

	articles := []model.Article{
		{Title: "still resolvable", URL: "https://ex.com/2024/10/15/story"},
		{Title: "unresolvable", URL: "https://ex.com/story", Content: "no dates"},
	}
	out, stats := resolver.ResolveDates(context.Background(), articles)

	require.Len(t, out, 2)
	assert.Equal(t, model.DateOriginRegex, out[0].DateOrigin)
	assert.Equal(t, model.DateOriginNone, out[1].DateOrigin)
	assert.False(t, out[1].HasResolvedDate())
	assert.Equal(t, 1, stats.WithDates)
	assert.Equal(t, 1, stats.WithoutDates)
}

func TestResolveDatesRejectsImplausibleModelDates(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{responses: []fakeResponse{{text: "1889-01-01"}}}
	resolver := NewDateResolver(client, "cheap-model", time.Second, 2)

	articles := []model.Article{{Title: "old date", Content: "nothing else"}}
	out, stats := resolver.ResolveDates(context.Background(), articles)

	assert.Equal(t, model.DateOriginNone, out[0].DateOrigin)
	assert.Zero(t, stats.ModelExtracted)
}

func TestResolveDatesNilClientSkipsModelTier(t *testing.T) {
	t.Parallel()

	resolver := NewDateResolver(nil, "", time.Second, 2)
	articles := []model.Article{{Title: "regex only", URL: "https://ex.com/2024/10/15/x"}}
	out, _ := resolver.ResolveDates(context.Background(), articles)

	assert.Equal(t, model.DateOriginRegex, out[0].DateOrigin)
}

func TestModelExtractPromptTruncation(t *testing.T) {
	t.Parallel()

	client := &fakeLLM{responses: []fakeResponse{{text: "none"}}}
	resolver := NewDateResolver(client, "cheap-model", time.Second, 1)

	long := make([]byte, 10000)
	for i := range long {
		long[i] = 'x'
	}
	articles := []model.Article{{Title: "t", URL: "https://ex.com/x", Content: string(long)}}
	resolver.ResolveDates(context.Background(), articles)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Less(t, len(req.User), 5000, "content must be truncated at the prompt boundary")
	assert.Equal(t, "cheap-model", req.Model)
	assert.LessOrEqual(t, req.MaxTokens, 50)
	assert.Zero(t, req.Temperature)
}
