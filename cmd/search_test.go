package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ace26597/News-Agent/internal/model"
)

// setSearchFlags resets the search command's flag variables to a valid
// baseline; individual tests override single fields. The variables are
// package globals, so these tests stay serial.
func setSearchFlags() {
	searchKeywords = []string{"prostate cancer", "immunotherapy"}
	searchAliases = []string{"PSA"}
	searchStart = "2024-10-01"
	searchEnd = "2024-10-17"
	searchMode = "standard"
	searchProviders = []string{"PubMed", " exa "}
	searchMinScore = 55
	searchAlertName = "weekly-oncology"
	searchUser = "analyst"
}

func TestBuildQuery(t *testing.T) {
	setSearchFlags()

	q, err := buildQuery()
	require.NoError(t, err)

	assert.Equal(t, []string{"prostate cancer", "immunotherapy"}, q.PrimaryKeywords)
	assert.Equal(t, []string{"PSA"}, q.AliasKeywords)
	assert.Equal(t, "2024-10-01", q.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2024-10-17", q.EndDate.Format("2006-01-02"))
	assert.Equal(t, model.ModeStandard, q.Mode)
	assert.Equal(t, []model.Source{model.SourcePubMed, model.SourceExa}, q.Providers,
		"provider names are lowercased and trimmed")
	assert.Equal(t, 55, q.MinScore)
	assert.Equal(t, "weekly-oncology", q.AlertName)
	assert.Equal(t, "cli", q.AlertType)
	assert.Equal(t, "analyst", q.User)
}

func TestBuildQueryDefaultsProviders(t *testing.T) {
	setSearchFlags()
	searchProviders = nil

	q, err := buildQuery()
	require.NoError(t, err)
	assert.Equal(t, model.AllSources(), q.Providers)
}

func TestBuildQueryRejectsBadDates(t *testing.T) {
	setSearchFlags()
	searchStart = "Oct 1 2024"
	_, err := buildQuery()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")

	setSearchFlags()
	searchEnd = "2024-13-01"
	_, err = buildQuery()
	assert.Error(t, err)

	setSearchFlags()
	searchStart, searchEnd = searchEnd, searchStart
	_, err = buildQuery()
	assert.Error(t, err, "inverted windows fail validation")
}

func TestBuildQueryRejectsUnknownProviderAndMode(t *testing.T) {
	setSearchFlags()
	searchProviders = []string{"bing"}
	_, err := buildQuery()
	assert.Error(t, err)

	setSearchFlags()
	searchMode = "fuzzy"
	_, err = buildQuery()
	assert.Error(t, err)
}
