package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/finvoice-processor/internal/format"
	"github.com/rezonia/finvoice-processor/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"comma decimal", "100,40", "100.4"},
		{"period decimal", "100.40", "100.4"},
		{"integer", "210", "210"},
		{"negative", "-15,50", "-15.5"},
		{"embedded spaces", "1 234,56", "1234.56"},
		{"currency suffix", "35,00 EUR", "35"},
		{"empty", "", "0"},
		{"whitespace only", "   ", "0"},
		{"no digits", "EUR", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := format.ParseAmount(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.String())
		})
	}
}

func TestParseAmount_Ambiguous(t *testing.T) {
	for _, input := range []string{"1.234,56", "1,234.56"} {
		_, err := format.ParseAmount(input)
		require.Error(t, err)

		var ambErr *model.AmbiguousNumberError
		require.ErrorAs(t, err, &ambErr)
		assert.Equal(t, input, ambErr.Value)
	}
}

func TestFormatAmount(t *testing.T) {
	d, err := format.ParseAmount("1234,5")
	require.NoError(t, err)

	assert.Equal(t, "1234,50", format.FormatAmount(d, 2))
	assert.Equal(t, "1234,5000", format.FormatAmount(d, 4))
}

func TestFormatAmount_RoundTrip(t *testing.T) {
	d, err := format.ParseAmount("99,95")
	require.NoError(t, err)

	back, err := format.ParseAmount(format.FormatAmount(d, 2))
	require.NoError(t, err)
	assert.True(t, d.Equal(back))
}
