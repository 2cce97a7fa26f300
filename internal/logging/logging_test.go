package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWithSessionRedactsID(t *testing.T) {
	var buf bytes.Buffer
	log := WithSession(New(&buf, "info"), "0123456789abcdef")
	log.Info("hello")

	entry := firstEntry(t, buf.Bytes())
	if entry["session"] != "0123…cdef" {
		t.Fatalf("session field = %v, want redacted id", entry["session"])
	}
}

func TestWithQuerySkipsEmptyID(t *testing.T) {
	var buf bytes.Buffer
	log := WithQuery(New(&buf, "info"), "")
	log.Info("hello")

	entry := firstEntry(t, buf.Bytes())
	if _, ok := entry["query"]; ok {
		t.Fatalf("did not expect query field, got %+v", entry)
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), New(&buf, "info").With("component", "test"))
	Ctx(ctx).Info("from context")

	entry := firstEntry(t, buf.Bytes())
	if entry["component"] != "test" {
		t.Fatalf("component field = %v, want test", entry["component"])
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info").Debug("quiet")
	if buf.Len() != 0 {
		t.Fatalf("debug entry written at info level: %q", buf.String())
	}
}

func TestOpenFileCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.log")
	log, closer, err := OpenFile(path, "debug")
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}
	log.Info("written")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		t.Fatalf("log file is empty")
	}
}

func TestRedactShortValues(t *testing.T) {
	if got := Redact("abc"); got != "***" {
		t.Fatalf("Redact(abc) = %q, want ***", got)
	}
}

func firstEntry(t *testing.T, data []byte) map[string]any {
	t.Helper()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	entry := map[string]any{}
	if err := json.Unmarshal(bytes.TrimSpace(data[:idx]), &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
