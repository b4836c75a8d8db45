package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceTypeCode(t *testing.T) {
	tests := []struct {
		invoiceType string
		want        int
	}{
		{"A", 1},
		{"B", 6},
		{"C", 11},
		{"", 6},
		{"X", 6},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, invoiceTypeCode(tt.invoiceType), "type %q", tt.invoiceType)
	}
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "30712345678", digitsOnly("30-71234567-8"))
	assert.Equal(t, "30712345678", digitsOnly("30712345678"))
	assert.Equal(t, "", digitsOnly("sin cuit"))
	assert.Equal(t, "", digitsOnly(""))
}
