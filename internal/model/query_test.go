package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllKeywords(t *testing.T) {
	t.Parallel()

	q := &Query{
		PrimaryKeywords: []string{"Prostate Cancer", "immunotherapy"},
		AliasKeywords:   []string{"prostate cancer", " PSA ", "", "Immunotherapy"},
	}
	assert.Equal(t, []string{"Prostate Cancer", "immunotherapy", "PSA"}, q.AllKeywords(),
		"order preserved, duplicates collapsed case-insensitively")
}

func TestQueryValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Query {
		return &Query{
			PrimaryKeywords: []string{"kw"},
			StartDate:       time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
			EndDate:         time.Date(2024, 10, 17, 0, 0, 0, 0, time.UTC),
		}
	}

	q := valid()
	require.NoError(t, q.Validate())
	assert.Equal(t, ModeStandard, q.Mode, "mode defaults to standard")
	assert.Equal(t, AllSources(), q.Providers, "providers default to all")

	q = valid()
	q.PrimaryKeywords = nil
	assert.Error(t, q.Validate())

	q = valid()
	q.EndDate = time.Time{}
	assert.Error(t, q.Validate())

	q = valid()
	q.StartDate, q.EndDate = q.EndDate, q.StartDate
	assert.Error(t, q.Validate())

	q = valid()
	q.StartDate = q.EndDate
	assert.NoError(t, q.Validate(), "single-day windows are allowed")

	q = valid()
	q.Mode = "fuzzy"
	assert.Error(t, q.Validate())

	q = valid()
	q.Providers = []Source{"bing"}
	assert.Error(t, q.Validate())
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	byURL := Fingerprint("https://x.example/1", "title", SourceExa)
	assert.Len(t, byURL, 16)
	assert.Equal(t, byURL, Fingerprint("https://x.example/1", "other title", SourceTavily),
		"url-derived ids ignore title and source")

	noURL := Fingerprint("", "title", SourceExa)
	assert.NotEqual(t, noURL, Fingerprint("", "title", SourceTavily),
		"fallback ids incorporate the source")
	assert.NotEqual(t, noURL, Fingerprint("", "other", SourceExa))
}

func TestValidSourceAndMode(t *testing.T) {
	t.Parallel()

	for _, s := range AllSources() {
		assert.True(t, ValidSource(s))
	}
	assert.False(t, ValidSource("bing"))

	assert.True(t, ValidMode(ModeCooccurrence))
	assert.False(t, ValidMode("fuzzy"))
}
