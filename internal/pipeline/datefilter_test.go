package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ace26597/News-Agent/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dated(id, date string, origin model.DateOrigin) model.Article {
	a := model.Article{ID: id, Title: id, DateOrigin: origin}
	if date != "" {
		a.ResolvedDate = day(date)
	}
	return a
}

func TestFilterByDateStrictWindow(t *testing.T) {
	t.Parallel()

	start, end := day("2024-10-01"), day("2024-10-17")
	articles := []model.Article{
		dated("on-start", "2024-10-01", model.DateOriginMetadata),
		dated("inside", "2024-10-10", model.DateOriginMetadata),
		dated("on-end", "2024-10-17", model.DateOriginRegex),
		dated("before", "2024-09-30", model.DateOriginMetadata),
		dated("after", "2024-10-18", model.DateOriginMetadata),
		dated("no-date", "", model.DateOriginNone),
	}

	kept, stats := FilterByDate(articles, start, end)

	require.Len(t, kept, 3)
	assert.Equal(t, "on-start", kept[0].ID)
	assert.Equal(t, "inside", kept[1].ID)
	assert.Equal(t, "on-end", kept[2].ID)

	assert.Equal(t, 3, stats.InRange)
	assert.Equal(t, 2, stats.OutOfRange)
	assert.Equal(t, 1, stats.NoDate)
	assert.Zero(t, stats.ModelRescued)

	for _, a := range kept {
		assert.False(t, a.ResolvedDate.Before(start))
		assert.False(t, a.ResolvedDate.After(end))
	}
}

func TestFilterByDateCountsModelRescued(t *testing.T) {
	t.Parallel()

	start, end := day("2024-10-01"), day("2024-10-17")
	articles := []model.Article{
		dated("rescued", "2024-10-15", model.DateOriginModel),
		dated("metadata", "2024-10-15", model.DateOriginMetadata),
		dated("model-out-of-range", "2024-11-01", model.DateOriginModel),
	}

	kept, stats := FilterByDate(articles, start, end)

	assert.Len(t, kept, 2)
	assert.Equal(t, 1, stats.ModelRescued, "only in-window model-dated articles count as rescued")
}

func TestFilterByDateEmptyInput(t *testing.T) {
	t.Parallel()

	kept, stats := FilterByDate(nil, day("2024-10-01"), day("2024-10-17"))
	assert.Empty(t, kept)
	assert.Zero(t, stats.InRange)
}
