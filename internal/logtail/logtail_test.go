package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Read() = %v, want nil", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		level   string
		message string
		fields  map[string]any
	}{
		{
			name:    "verbose keys",
			input:   `{"time":"2026-10-19T10:00:00Z","level":"warn","message":"passive sync failed","component":"pushsync"}`,
			level:   "warn",
			message: "passive sync failed",
			fields:  map[string]any{"component": "pushsync"},
		},
		{
			name:    "short keys",
			input:   `{"ts":"2026-10-19T10:00:00Z","lvl":"INFO","msg":"session issued"}`,
			level:   "info",
			message: "session issued",
			fields:  map[string]any{},
		},
		{
			name:  "not json",
			input: "panic: runtime error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got.Raw != tt.input {
				t.Errorf("Raw = %q, want %q", got.Raw, tt.input)
			}
			if got.Level != tt.level || got.Message != tt.message {
				t.Errorf("Parse() = (%q, %q), want (%q, %q)", got.Level, got.Message, tt.level, tt.message)
			}
			if tt.fields != nil && !reflect.DeepEqual(got.Fields, tt.fields) {
				t.Errorf("Fields = %v, want %v", got.Fields, tt.fields)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	entries := []Entry{
		Parse(`{"level":"debug","message":"view mounted"}`),
		Parse(`{"level":"info","message":"session confirmed"}`),
		Parse(`{"level":"warn","message":"status refresh failed"}`),
		Parse("not json"),
	}

	got := Filter(entries, "warn")
	if len(got) != 2 {
		t.Fatalf("Filter(warn) kept %d entries, want 2", len(got))
	}
	if got[0].Message != "status refresh failed" || got[1].Raw != "not json" {
		t.Errorf("Filter(warn) = %+v", got)
	}

	if got := Filter(entries, ""); len(got) != len(entries) {
		t.Errorf("Filter(\"\") kept %d entries, want all %d", len(got), len(entries))
	}
}

func TestFormat(t *testing.T) {
	e := Parse(`{"time":"10:00:00","level":"error","message":"load queries failed","view":"#","instance":3}`)
	got := Format(e)
	for _, want := range []string{"10:00:00", "ERROR", "load queries failed", "instance", "3", "view", "#"} {
		if !strings.Contains(got, want) {
			t.Errorf("Format() = %q, missing %q", got, want)
		}
	}
	if strings.Index(got, "instance") > strings.Index(got, "view") {
		t.Errorf("fields not sorted: %q", got)
	}

	if got := Format(Parse("plain line")); got != "plain line" {
		t.Errorf("Format(raw) = %q, want plain line", got)
	}
}
