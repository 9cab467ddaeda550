package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  owner stay  ",
			want:  "owner stay",
		},
		{
			name:  "multiple spaces between words",
			input: "owner    stay",
			want:  "owner stay",
		},
		{
			name:  "tabs and newlines",
			input: "owner\t\nstay",
			want:  "owner stay",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserve special characters",
			input: " Café & Spa™ ",
			want:  "Café & Spa™",
		},
		{
			name:  "hebrew characters",
			input: " חדר זוגי ",
			want:  "חדר זוגי",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimAndNormalize(tt.input)
			if got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := TrimAndNormalize(got); again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "unit-42", "unit-42"},
		{"surrounding space", "  unit-42\n", "unit-42"},
		{"control characters", "unit\x00-42\x1b", "unit-42"},
		{"inner space kept", "unit 42", "unit 42"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeIdentifier(tt.input); got != tt.want {
				t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeKindAndReference(t *testing.T) {
	if got := SanitizeKind(" Maintenance "); got != "maintenance" {
		t.Errorf("SanitizeKind = %q", got)
	}
	if got := SanitizeReference("  booking\t 981 \x07"); got != "booking 981" {
		t.Errorf("SanitizeReference = %q", got)
	}
	if got := SanitizeReference("owner\tstay"); got != "owner stay" {
		t.Errorf("SanitizeReference should keep tab-separated words apart, got %q", got)
	}
}
