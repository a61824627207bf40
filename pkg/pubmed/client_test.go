package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const efetchXML = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>12345</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate><Year>2024</Year><Month>Oct</Month><Day>10</Day></PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>Checkpoint inhibition in prostate cancer</ArticleTitle>
        <Abstract>
          <AbstractText>Background text.</AbstractText>
          <AbstractText>Results text.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Doe</LastName><ForeName>Jane</ForeName></Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/esearch.fcgi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "pubmed", q.Get("db"))
		assert.Equal(t, "json", q.Get("retmode"))
		assert.Equal(t, "50", q.Get("retmax"))
		assert.Equal(t, "test@example.com", q.Get("email"))
		assert.NotEmpty(t, q.Get("term"))

		_, _ = w.Write([]byte(`{"esearchresult": {"idlist": ["12345", "67890"]}}`))
	}))
	defer srv.Close()

	client := NewClient("test@example.com",
		WithBaseURL(srv.URL),
		WithMinInterval(time.Microsecond),
	)

	pmids, err := client.Search(context.Background(), `"prostate cancer"[Title/Abstract]`, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"12345", "67890"}, pmids)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/efetch.fcgi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "12345", q.Get("id"))
		assert.Equal(t, "xml", q.Get("retmode"))

		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(efetchXML))
	}))
	defer srv.Close()

	client := NewClient("test@example.com",
		WithBaseURL(srv.URL),
		WithMinInterval(time.Microsecond),
	)

	records, err := client.Fetch(context.Background(), []string{"12345"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "12345", rec.PMID)
	assert.Equal(t, "Checkpoint inhibition in prostate cancer", rec.Title)
	assert.Equal(t, "Background text. Results text.", rec.Abstract)
	assert.Equal(t, "2024", rec.PubYear)
	assert.Equal(t, "Oct", rec.PubMonth)
	assert.Equal(t, "10", rec.PubDay)
	require.Len(t, rec.Authors, 1)
	assert.Equal(t, "Doe", rec.Authors[0].LastName)
}

func TestFetchEmptyIDs(t *testing.T) {
	client := NewClient("test@example.com", WithMinInterval(time.Microsecond))
	records, err := client.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	client := NewClient("test@example.com",
		WithBaseURL(srv.URL),
		WithMinInterval(time.Microsecond),
	)

	_, err := client.Search(context.Background(), "term", 10)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestRateLimiterSpacing(t *testing.T) {
	var times []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		times = append(times, time.Now())
		_, _ = w.Write([]byte(`{"esearchresult": {"idlist": []}}`))
	}))
	defer srv.Close()

	interval := 30 * time.Millisecond
	client := NewClient("test@example.com",
		WithBaseURL(srv.URL),
		WithMinInterval(interval),
	)

	for i := 0; i < 3; i++ {
		_, err := client.Search(context.Background(), "term", 10)
		require.NoError(t, err)
	}

	require.Len(t, times, 3)
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), interval/2,
			"calls must honor the minimum inter-call interval")
	}
}
