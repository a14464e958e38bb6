package session

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	if _, err := store.Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken on an empty store, got %v", err)
	}

	if err := store.SaveToken(&oauth2.Token{AccessToken: "abc", TokenType: "bearer"}); err != nil {
		t.Fatalf("save token: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}

	// A fresh store reads what the first one wrote.
	tok, err := NewFileStore(path).Token()
	if err != nil {
		t.Fatalf("load token: %v", err)
	}
	if tok.AccessToken != "abc" || tok.Type() != "Bearer" {
		t.Errorf("unexpected token %+v", tok)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken after clear, got %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("expected clearing twice to succeed, got %v", err)
	}
}

func TestPreferencesFallBackToDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	missing := LoadPreferences(logger, filepath.Join(dir, "missing.json"))
	if missing != DefaultPreferences() {
		t.Errorf("expected defaults for a missing file, got %+v", missing)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := LoadPreferences(logger, corrupt); got != DefaultPreferences() {
		t.Errorf("expected defaults for a corrupt file, got %+v", got)
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"calendar_view":"month","task_view":"kanban"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := LoadPreferences(logger, invalid)
	if got.CalendarView != ViewWeek || got.TaskView != TaskViewKanban {
		t.Errorf("expected invalid field to default and valid one to load, got %+v", got)
	}
}

func TestSavePreferences(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "prefs.json")

	SavePreferences(logger, path, Preferences{CalendarView: ViewDay, TaskView: TaskViewList})
	if got := LoadPreferences(logger, path); got.CalendarView != ViewDay {
		t.Errorf("expected saved view mode to load, got %+v", got)
	}

	// Unwritable destination: must not panic or surface an error.
	SavePreferences(logger, filepath.Join(path, "under-a-file.json"), DefaultPreferences())
}
