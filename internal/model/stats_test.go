package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConsistency(t *testing.T) {
	t.Parallel()

	s := &RunStats{
		Collected: 125, Unique: 102, DuplicatesRemoved: 23,
		Analyzed: 78, Kept: 47, Filtered: 31,
	}
	assert.NoError(t, s.CheckConsistency())

	s = &RunStats{Collected: 10, Unique: 8, DuplicatesRemoved: 1}
	err := s.CheckConsistency()
	require.Error(t, err)
	var violation *InvariantViolation
	assert.True(t, errors.As(err, &violation))
	assert.Contains(t, err.Error(), "invariant violation")

	s = &RunStats{Analyzed: 5, Kept: 3, Filtered: 1}
	assert.Error(t, s.CheckConsistency())
}

func TestTokenUsageAdd(t *testing.T) {
	t.Parallel()

	u := TokenUsage{InputTokens: 100, OutputTokens: 10}
	u.Add(TokenUsage{InputTokens: 50, OutputTokens: 5})
	assert.Equal(t, 150, u.InputTokens)
	assert.Equal(t, 15, u.OutputTokens)
}
