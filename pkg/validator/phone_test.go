package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"0912345678", "0912345678", "Standard format"},
		{"091 234 5678", "0912345678", "With spaces"},
		{"091-234-5678", "0912345678", "With dashes"},
		{"091.234.5678", "0912345678", "With dots"},
		{"(091) 234 5678", "0912345678", "With parentheses"},
		{"+84 91 234 5678", "0912345678", "With country code and plus"},
		{"84912345678", "0912345678", "With country code"},
		{"0321234567", "0321234567", "Viettel 032"},
		{"0701234567", "0701234567", "MobiFone 070"},
		{"0521234567", "0521234567", "Vietnamobile 052"},
		{"  0981234567 ", "0981234567", "Surrounding whitespace"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"   ", ErrEmptyPhone, "Whitespace only"},
		{"091", ErrInvalidLength, "Too short"},
		{"09123456789", ErrInvalidLength, "Too long"},
		{"091234567a", ErrInvalidFormat, "Contains letters"},
		{"091 234 567!", ErrInvalidFormat, "Contains special characters"},
		{"0212345678", ErrInvalidPrefix, "Landline prefix"},
		{"1234567890", ErrInvalidPrefix, "Valid length but invalid prefix"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.Equal(t, tc.expectedErr, err)
		})
	}
}

func TestFormat(t *testing.T) {
	validator := NewPhoneValidator()

	formatted, err := validator.Format("+84912345678")
	require.NoError(t, err)
	assert.Equal(t, "091 234 5678", formatted)

	_, err = validator.Format("invalid")
	assert.Error(t, err)
}

func TestGetCarrier(t *testing.T) {
	validator := NewPhoneValidator()

	tests := []struct {
		input    string
		expected string
	}{
		{"0981234567", "Viettel"},
		{"0912345678", "Vinaphone"},
		{"0901234567", "MobiFone"},
		{"0921234567", "Vietnamobile"},
		{"0991234567", "Gmobile"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			carrier, err := validator.GetCarrier(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, carrier)
		})
	}

	assert.False(t, validator.IsValid("0000000000"))
}
