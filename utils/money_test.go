package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasMoneyScale(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"0", true},
		{"10", true},
		{"0.1", true},
		{"-69.50", true},
		{"0.004", false},
		{"1.001", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasMoneyScale(decimal.RequireFromString(tt.value)))
		})
	}
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 30,5 ")
	require.NoError(t, err)
	assert.Equal(t, "30.50", FormatAmount(amount))

	_, err = ParseAmount("abc")
	assert.Error(t, err)
}

func TestDecimalSumsAreExact(t *testing.T) {
	balance := decimal.RequireFromString("0.3").Sub(decimal.RequireFromString("0.1"))
	assert.True(t, balance.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, "0.20", FormatAmount(balance))
}
