// Package pubmed provides a client for the NCBI Entrez E-utilities API.
package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Entrez allows roughly three requests per second without an API key; the
// limiter enforces the minimum inter-call interval.
const defaultMinInterval = 340 * time.Millisecond

// Client performs the two-step Entrez retrieval: esearch for PMIDs, then
// efetch for article details.
type Client interface {
	Search(ctx context.Context, term string, retmax int) ([]string, error)
	Fetch(ctx context.Context, pmids []string) ([]Record, error)
}

// Record is a parsed PubMed article.
type Record struct {
	PMID     string
	Title    string
	Abstract string
	Authors  []Author
	// Publication date components as they appear in the XML; Month may be
	// a name ("Oct") or a number.
	PubYear  string
	PubMonth string
	PubDay   string
}

// Author is a single article author.
type Author struct {
	LastName string
	ForeName string
}

// APIError is a non-success Entrez response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pubmed: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMinInterval overrides the minimum inter-call interval.
func WithMinInterval(d time.Duration) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

type httpClient struct {
	email   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Entrez client. The email identifies the caller to
// NCBI, per their usage policy.
func NewClient(email string, opts ...Option) Client {
	c := &httpClient{
		email:   email,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(defaultMinInterval), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// esearchResult is the JSON envelope from esearch.fcgi.
type esearchResult struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

func (c *httpClient) Search(ctx context.Context, term string, retmax int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmax":  {fmt.Sprint(retmax)},
		"retmode": {"json"},
		"sort":    {"relevance"},
		"email":   {c.email},
	}

	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var result esearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "pubmed: unmarshal esearch response")
	}
	return result.ESearchResult.IDList, nil
}

// Entrez XML shapes for efetch.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation medlineCitation `xml:"MedlineCitation"`
}

type medlineCitation struct {
	PMID    string        `xml:"PMID"`
	Article entrezArticle `xml:"Article"`
}

type entrezArticle struct {
	Title    string       `xml:"ArticleTitle"`
	Abstract abstractText `xml:"Abstract"`
	Authors  []xmlAuthor  `xml:"AuthorList>Author"`
	Journal  journalInfo  `xml:"Journal"`
}

type abstractText struct {
	Sections []string `xml:"AbstractText"`
}

type xmlAuthor struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type journalInfo struct {
	PubDate pubDate `xml:"JournalIssue>PubDate"`
}

type pubDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

func (c *httpClient) Fetch(ctx context.Context, pmids []string) ([]Record, error) {
	if len(pmids) == 0 {
		return nil, nil
	}

	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"xml"},
		"email":   {c.email},
	}

	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, eris.Wrap(err, "pubmed: unmarshal efetch response")
	}

	records := make([]Record, 0, len(set.Articles))
	for _, a := range set.Articles {
		rec := Record{
			PMID:     a.Citation.PMID,
			Title:    a.Citation.Article.Title,
			Abstract: strings.Join(a.Citation.Article.Abstract.Sections, " "),
			PubYear:  a.Citation.Article.Journal.PubDate.Year,
			PubMonth: a.Citation.Article.Journal.PubDate.Month,
			PubDay:   a.Citation.Article.Journal.PubDate.Day,
		}
		for _, au := range a.Citation.Article.Authors {
			rec.Authors = append(rec.Authors, Author{LastName: au.LastName, ForeName: au.ForeName})
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "pubmed: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "pubmed: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pubmed: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pubmed: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
