package batch

import (
	"errors"
	"testing"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		paramName string
		want      []string
		wantErr   bool
	}{
		{
			name:      "single string",
			input:     "test123",
			paramName: "testParam",
			want:      []string{"test123"},
			wantErr:   false,
		},
		{
			name:      "array of strings",
			input:     []interface{}{"id1", "id2", "id3"},
			paramName: "testParam",
			want:      []string{"id1", "id2", "id3"},
			wantErr:   false,
		},
		{
			name:      "nil input",
			input:     nil,
			paramName: "testParam",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "empty string",
			input:     "",
			paramName: "testParam",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "empty array",
			input:     []interface{}{},
			paramName: "testParam",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "array with non-string",
			input:     []interface{}{"id1", 123, "id3"},
			paramName: "testParam",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "array with empty string",
			input:     []interface{}{"id1", "", "id3"},
			paramName: "testParam",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "typed string slice",
			input:     []string{"a", "b"},
			paramName: "testParam",
			want:      []string{"a", "b"},
			wantErr:   false,
		},
		{
			name:      "invalid type",
			input:     123,
			paramName: "testParam",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "JSON string array",
			input:     `["id1", "id2", "id3"]`,
			paramName: "testParam",
			want:      []string{"id1", "id2", "id3"},
			wantErr:   false,
		},
		{
			name:      "JSON string array with filenames",
			input:     `["document1.pdf", "document2.pdf", "document3.pdf"]`,
			paramName: "testParam",
			want:      []string{"document1.pdf", "document2.pdf", "document3.pdf"},
			wantErr:   false,
		},
		{
			name:      "JSON string single element array",
			input:     `["single.pdf"]`,
			paramName: "testParam",
			want:      []string{"single.pdf"},
			wantErr:   false,
		},
		{
			name:      "JSON string empty array",
			input:     `[]`,
			paramName: "testParam",
			want:      nil,
			wantErr:   true,
		},
		{
			name:      "invalid JSON string",
			input:     `[invalid json`,
			paramName: "testParam",
			want:      []string{`[invalid json`},
			wantErr:   false,
		},
		{
			name:      "string starting with bracket (not JSON)",
			input:     `[test] file.pdf`,
			paramName: "testParam",
			want:      []string{`[test] file.pdf`},
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseStringOrArray() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !stringSliceEqual(got, tt.want) {
				t.Errorf("ParseStringOrArray() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Helper function to compare string slices
func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseStringOrArray_ParseError(t *testing.T) {
	_, err := ParseStringOrArray([]interface{}{"a", 7}, "messageIds")

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Param != "messageIds[1]" || pe.Reason != "must be a string" {
		t.Errorf("unexpected ParseError %+v", pe)
	}
	if err.Error() != "messageIds[1] must be a string" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
