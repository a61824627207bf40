package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChat(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(Rates{
		"cheap": {Input: 0.15, Output: 0.60},
		"main":  {Input: 3.00, Output: 15.00},
	})

	tests := []struct {
		name   string
		model  string
		input  int
		output int
		want   float64
	}{
		{name: "cheap model", model: "cheap", input: 1_000_000, output: 100_000, want: 0.15 + 0.06},
		{name: "main model", model: "main", input: 1_000_000, output: 100_000, want: 3.00 + 1.50},
		{name: "unknown model is free", model: "mystery", input: 1_000_000, output: 1_000_000, want: 0},
		{name: "zero usage", model: "main", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calc.Chat(tt.model, tt.input, tt.output), 1e-9)
		})
	}
}

func TestDefaultRatesCoverConfiguredModels(t *testing.T) {
	t.Parallel()

	rates := DefaultRates()
	for _, m := range []string{"gpt-4o-mini", "gpt-3.5-turbo"} {
		_, ok := rates[m]
		assert.True(t, ok, "missing rate for %s", m)
	}
}
