package provider

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ace26597/News-Agent/internal/config"
	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/pkg/exa"
	"github.com/ace26597/News-Agent/pkg/newsapi"
	"github.com/ace26597/News-Agent/pkg/tavily"
)

type fakeExa struct {
	req  exa.SearchRequest
	resp *exa.SearchResponse
	err  error
}

func (f *fakeExa) Search(_ context.Context, req exa.SearchRequest) (*exa.SearchResponse, error) {
	f.req = req
	return f.resp, f.err
}

type fakeTavily struct {
	req  tavily.SearchRequest
	resp *tavily.SearchResponse
	err  error
}

func (f *fakeTavily) Search(_ context.Context, req tavily.SearchRequest) (*tavily.SearchResponse, error) {
	f.req = req
	return f.resp, f.err
}

type fakeNewsAPI struct {
	req  newsapi.EverythingRequest
	resp *newsapi.EverythingResponse
	err  error
}

func (f *fakeNewsAPI) Everything(_ context.Context, req newsapi.EverythingRequest) (*newsapi.EverythingResponse, error) {
	f.req = req
	return f.resp, f.err
}

func window() (time.Time, time.Time) {
	return time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 17, 0, 0, 0, 0, time.UTC)
}

func TestExaSearchKeywordAndNeuralModes(t *testing.T) {
	t.Parallel()

	start, end := window()
	client := &fakeExa{resp: &exa.SearchResponse{Results: []exa.Result{
		{Title: "Story", URL: "https://x.example/1", Text: "body", PublishedDate: "2024-10-10", Author: "A"},
	}}}
	s := NewExaSearcher(client, 1)

	req := model.SearchRequest{
		Keywords:   []string{"a", "b"},
		StartDate:  start, EndDate: end,
		MaxResults: 25,
		Strategy:   model.Strategy{Name: "keyword_curated", Provider: model.SourceExa, Domains: []string{"fda.gov"}},
	}
	articles, err := s.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "keyword", client.req.Type)
	assert.Equal(t, "a OR b", client.req.Query)
	assert.Equal(t, []string{"fda.gov"}, client.req.IncludeDomains)
	assert.Equal(t, 25, client.req.NumResults)
	assert.Equal(t, "2024-10-01", client.req.StartPublished)

	require.Len(t, articles, 1)
	assert.Equal(t, model.SourceExa, articles[0].Source)
	assert.Equal(t, "2024-10-10", articles[0].RawDate)
	assert.Equal(t, "A", articles[0].Authors)

	req.Strategy.Neural = true
	_, err = s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "neural", client.req.Type)
}

func TestTavilySearchRequestShape(t *testing.T) {
	t.Parallel()

	start, end := window()
	client := &fakeTavily{resp: &tavily.SearchResponse{Results: []tavily.Result{
		{Title: "Story", URL: "https://x.example/1", Content: "body"},
	}}}
	s := NewTavilySearcher(client, 1)

	req := model.SearchRequest{
		Keywords:   []string{"a", "b"},
		StartDate:  start, EndDate: end,
		MaxResults: 20,
		Strategy:   model.Strategy{Name: "news_heavy", Provider: model.SourceTavily, Domains: []string{"reuters.com"}},
	}
	articles, err := s.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "advanced", client.req.SearchDepth)
	assert.Equal(t, []string{"reuters.com"}, client.req.IncludeDomains)
	assert.Equal(t, 17, client.req.Days, "days derive from the inclusive window")
	assert.NotEmpty(t, client.req.ExcludeDomains)

	require.Len(t, articles, 1)
	assert.Equal(t, model.SourceTavily, articles[0].Source)
	assert.Empty(t, articles[0].RawDate, "missing provider dates stay absent")
}

func TestNewsAPISearchQuotesPrimaryKeywords(t *testing.T) {
	t.Parallel()

	start, end := window()
	client := &fakeNewsAPI{resp: &newsapi.EverythingResponse{
		TotalResults: 2,
		Articles: []newsapi.Article{
			{Title: "Story", URL: "https://x.example/1", Description: "desc", Content: "body", PublishedAt: "2024-10-10T08:00:00Z", Author: "A"},
			{Title: "", URL: "https://x.example/2"}, // dropped: no title
		},
	}}
	s := NewNewsAPISearcher(client, 1, 3650)

	req := model.SearchRequest{
		Keywords:   []string{"prostate cancer", "immunotherapy"},
		StartDate:  start, EndDate: end,
		MaxResults: 100,
		Strategy:   model.Strategy{Name: "primary", Provider: model.SourceNewsAPI},
	}
	articles, err := s.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, `"prostate cancer" OR "immunotherapy"`, client.req.Query)
	require.Len(t, articles, 1)
	assert.Equal(t, "desc\n\nbody", articles[0].Content)
	assert.Equal(t, "2024-10-10T08:00:00Z", articles[0].RawDate)
}

func TestNewsAPIExpandedVariantDropsQuoting(t *testing.T) {
	t.Parallel()

	start, end := window()
	client := &fakeNewsAPI{resp: &newsapi.EverythingResponse{}}
	s := NewNewsAPISearcher(client, 1, 3650)

	req := model.SearchRequest{
		Keywords:  []string{"prostate cancer"},
		StartDate: start, EndDate: end,
		Strategy: model.Strategy{Name: "expanded", Provider: model.SourceNewsAPI, Expanded: true},
	}
	_, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "prostate cancer", client.req.Query)
}

func TestNewsAPIClampsWindowToHistoricalReach(t *testing.T) {
	t.Parallel()

	client := &fakeNewsAPI{resp: &newsapi.EverythingResponse{}}
	s := NewNewsAPISearcher(client, 1, 30)

	req := model.SearchRequest{
		Keywords:  []string{"kw"},
		StartDate: time.Now().UTC().AddDate(0, -6, 0),
		EndDate:   time.Now().UTC(),
		Strategy:  model.Strategy{Name: "primary", Provider: model.SourceNewsAPI},
	}
	_, err := s.Search(context.Background(), req)
	require.NoError(t, err)

	earliest := time.Now().UTC().AddDate(0, 0, -31)
	assert.True(t, client.req.From.After(earliest), "from must be clamped to the plan's reach")
}

func TestGenerateStrategiesPerProvider(t *testing.T) {
	t.Parallel()

	q := collectQuery(model.SourceExa, model.SourceNewsAPI)
	sets := config.DefaultDomainSets()
	strategies := GenerateStrategies(q, sets)

	require.Len(t, strategies, 2)
	require.Len(t, strategies[model.SourceExa], 3)
	assert.True(t, strategies[model.SourceExa][1].Neural)
	assert.Equal(t, sets.ExaCurated, strategies[model.SourceExa][0].Domains)

	require.Len(t, strategies[model.SourceNewsAPI], 2)
	assert.False(t, strategies[model.SourceNewsAPI][0].Expanded)
	assert.True(t, strategies[model.SourceNewsAPI][1].Expanded, "the expanded variant always runs")

	_, hasPubMed := strategies[model.SourcePubMed]
	assert.False(t, hasPubMed, "disabled providers get no strategies")
}

func TestClampContent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", clampContent("short"))
	long := strings.Repeat("x", maxContentLen+100)
	assert.Len(t, clampContent(long), maxContentLen)
}
