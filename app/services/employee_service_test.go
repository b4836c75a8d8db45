package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePIN(t *testing.T) {
	tests := []struct {
		name    string
		pin     string
		wantErr bool
	}{
		{"four digits", "1234", false},
		{"six digits", "123456", false},
		{"too short", "123", true},
		{"too long", "1234567", true},
		{"letters", "12ab", true},
		{"spaces", "12 4", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePIN(tt.pin)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
