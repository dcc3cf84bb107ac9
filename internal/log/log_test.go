package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFromInt(t *testing.T) {
	tests := []struct {
		in   int
		want Level
	}{
		{in: -1, want: Off},
		{in: 0, want: Off},
		{in: 1, want: Basic},
		{in: 2, want: Detailed},
		{in: 3, want: Trace},
		{in: 4, want: Wire},
		{in: 9, want: Wire},
	}

	for _, tc := range tests {
		if got := LevelFromInt(tc.in); got != tc.want {
			t.Fatalf("LevelFromInt(%d) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDebugRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Configure(&buf, "text"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	defer SetLevel(Off)

	SetLevel(Basic)
	Debug(Detailed, "hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	Debug(Basic, "shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}

func TestConfigureRejectsUnknownFormat(t *testing.T) {
	if err := Configure(nil, "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
