package validation

import (
	"errors"
	"testing"
)

// TestValidatePostalCode verifies length bounds, allowed characters and
// trimming behavior.
func TestValidatePostalCode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{
			name: "simple US zip",
			in:   "10001",
			want: "10001",
		},
		{
			name: "UK style with space",
			in:   "SW1A 1AA",
			want: "SW1A 1AA",
		},
		{
			name: "hyphenated zip+4",
			in:   "10001-1234",
			want: "10001-1234",
		},
		{
			name: "trims whitespace",
			in:   "  10001  ",
			want: "10001",
		},
		{
			name:    "empty",
			in:      "",
			wantErr: ErrPostalCodeEmpty,
		},
		{
			name:    "whitespace only",
			in:      "   ",
			wantErr: ErrPostalCodeEmpty,
		},
		{
			name:    "too short",
			in:      "12",
			wantErr: ErrPostalCodeTooShort,
		},
		{
			name:    "too long",
			in:      "12345678901",
			wantErr: ErrPostalCodeTooLong,
		},
		{
			name:    "disallowed punctuation",
			in:      "100!1",
			wantErr: ErrPostalCodeInvalidChars,
		},
		{
			name:    "disallowed unicode letter",
			in:      "10あ01",
			wantErr: ErrPostalCodeInvalidChars,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidatePostalCode(tc.in)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("ValidatePostalCode(%q) error = %v, want %v", tc.in, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidatePostalCode(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ValidatePostalCode(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
