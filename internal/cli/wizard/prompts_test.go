package wizard

import (
	"reflect"
	"testing"
)

func TestParseVariables(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
		wantErr  bool
	}{
		{name: "empty string", input: ""},
		{name: "whitespace only", input: "   "},
		{name: "only commas", input: " , ,"},
		{
			name:     "single pair",
			input:    "units=metric",
			expected: map[string]string{"units": "metric"},
		},
		{
			name:     "multiple pairs with spaces",
			input:    "  units = metric ,  precision=4 ",
			expected: map[string]string{"units": "metric", "precision": "4"},
		},
		{
			name:     "empty items between commas",
			input:    "a=1,, b=2,",
			expected: map[string]string{"a": "1", "b": "2"},
		},
		{
			name:     "empty value allowed",
			input:    "hint=",
			expected: map[string]string{"hint": ""},
		},
		{
			name:     "value containing equals",
			input:    "format=x=y",
			expected: map[string]string{"format": "x=y"},
		},
		{name: "missing equals", input: "metric", wantErr: true},
		{name: "missing key", input: "=metric", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVariables(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVariables(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseVariables(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatVariables(t *testing.T) {
	if got := formatVariables(nil); got != "" {
		t.Errorf("formatVariables(nil) = %q, want empty", got)
	}

	vars := map[string]string{"units": "metric", "precision": "4"}
	got := formatVariables(vars)
	if got != "precision=4, units=metric" {
		t.Errorf("formatVariables() = %q", got)
	}

	back, err := ParseVariables(got)
	if err != nil || !reflect.DeepEqual(back, vars) {
		t.Errorf("ParseVariables(formatVariables()) = %v, %v", back, err)
	}
}

func TestValidateSecretPath(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "gemini-api-key"},
		{input: "projects/my-proj/secrets/gemini-api-key"},
		{input: "projects/my-proj/secrets/gemini-api-key/versions/3"},
		{input: "", wantErr: true},
		{input: "  ", wantErr: true},
		{input: "my key", wantErr: true},
		{input: "projects/my-proj/gemini-api-key", wantErr: true},
		{input: "projects//secrets/name", wantErr: true},
		{input: "projects/p/secrets/name/latest/1", wantErr: true},
		{input: "projects/p/secrets/name/versions/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateSecretPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSecretPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestRequired(t *testing.T) {
	check := required("key file")
	if err := check(" "); err == nil || err.Error() != "key file is required" {
		t.Errorf("required(\" \") = %v", err)
	}
	if err := check("sa.json"); err != nil {
		t.Errorf("required(\"sa.json\") = %v", err)
	}
}
