package localstore

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := Open("")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, ok := s.Get(KeySessionID); ok {
		t.Fatalf("Get(session_id) found a value in an empty store")
	}
	want := filepath.Join(home, ".local", "share", "adindex", "store.toml")
	if s.Path() != want {
		t.Fatalf("Path = %q, want %q", s.Path(), want)
	}
}

func TestSet_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "store.toml")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := s.Set(KeySessionID, "S1"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Set(KeyVapidPub, "V1"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if got, _ := reopened.Get(KeySessionID); got != "S1" {
		t.Fatalf("session_id = %q, want S1", got)
	}
	if got, _ := reopened.Get(KeyVapidPub); got != "V1" {
		t.Fatalf("vapid_pub = %q, want V1", got)
	}
	if !reflect.DeepEqual(reopened.Keys(), []string{KeySessionID, KeyVapidPub}) {
		t.Fatalf("Keys = %v, want session_id and vapid_pub", reopened.Keys())
	}
}

func TestDelete_RemovesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := s.Set(KeyTheme, "Slate"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Delete(KeyTheme); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := s.Delete("never-set"); err != nil {
		t.Fatalf("Delete of missing key returned error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, ok := reopened.Get(KeyTheme); ok {
		t.Fatalf("theme still present after Delete")
	}
}

func TestOpen_InvalidTOMLFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.toml")
	if err := os.WriteFile(path, []byte("not valid toml {{{\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("Keys = %v, want empty store", s.Keys())
	}
	if err := s.Set(KeyTheme, "Kanagawa"); err != nil {
		t.Fatalf("Set after corrupt file returned error: %v", err)
	}
}

func TestOpen_BlankValuesAreDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.toml")
	if err := os.WriteFile(path, []byte("session_id = \"  \"\ntheme = \"Slate\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, ok := s.Get(KeySessionID); ok {
		t.Fatalf("blank session_id should be treated as absent")
	}
	if got, _ := s.Get(KeyTheme); got != "Slate" {
		t.Fatalf("theme = %q, want Slate", got)
	}
}

func TestSave_ReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.toml")
	if err := os.WriteFile(path, []byte("not valid toml {{{\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	if len(reopened.Keys()) != 0 {
		t.Fatalf("Keys = %v, want empty store", reopened.Keys())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) == "not valid toml {{{\n" {
		t.Fatalf("Save left the corrupt file in place")
	}
}
