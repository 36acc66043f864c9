package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func tempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := tempDB(t)

	if ok, err := s.Exists("state"); err != nil || ok {
		t.Fatalf("exists before write: ok=%v err=%v", ok, err)
	}
	if err := s.Write("state", []byte("first")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Write("state", []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if ok, err := s.Exists("state"); err != nil || !ok {
		t.Fatalf("exists after write: ok=%v err=%v", ok, err)
	}

	b, err := s.Read("state")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "second" {
		t.Fatalf("want second, got %q", b)
	}
}

func TestSQLiteStoreReadMissing(t *testing.T) {
	s := tempDB(t)
	if _, err := s.Read("missing"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("want ErrNotExist, got %v", err)
	}
}

func TestSQLiteStoreReopenKeepsDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Write("state", []byte("persisted")); err != nil {
		t.Fatalf("write: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	b, err := s.Read("state")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "persisted" {
		t.Fatalf("got %q", b)
	}
}
