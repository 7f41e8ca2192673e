package output

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Report     string `json:"report" yaml:"report"`
	Consistent bool   `json:"consistent" yaml:"consistent"`
}

func TestWrite(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatYAML, "report: \"7\"\nconsistent: true\n"},
		{FormatJSON, "{\n  \"report\": \"7\",\n  \"consistent\": true\n}\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, tt.format, sample{Report: "7", Consistent: true}); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Write() = %q, want %q", buf.String(), tt.want)
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		if err := Write(&bytes.Buffer{}, "xml", sample{}); err == nil || !strings.Contains(err.Error(), "xml") {
			t.Errorf("Write() error = %v", err)
		}
	})
}

func TestSetFormat(t *testing.T) {
	defer func() { globalFormat = DefaultFormat }()

	if err := SetFormat("json"); err != nil || GetFormat() != FormatJSON {
		t.Errorf("SetFormat(json) = %v, format %s", err, GetFormat())
	}
	if err := SetFormat(""); err != nil || GetFormat() != FormatYAML {
		t.Errorf("SetFormat(\"\") = %v, format %s", err, GetFormat())
	}
	if err := SetFormat("toml"); err == nil {
		t.Error("SetFormat accepted toml")
	}
}
