package token

import (
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "tokens.json"))

	if _, ok, err := s.Load(); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	if err := s.Save(AuthTokens{Access: "a", Refresh: "r"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Access != "a" || got.Refresh != "r" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.StoredAt.IsZero() {
		t.Fatal("StoredAt not stamped")
	}
}

func TestStoreClear(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "tokens.json"))
	if err := s.Clear(); err != nil {
		t.Fatalf("clear on empty store: %v", err)
	}
	if err := s.Save(AuthTokens{Access: "a", Refresh: "r"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.Load(); ok {
		t.Fatal("tokens survived clear")
	}
}

func TestStoreSaveRejected(t *testing.T) {
	// Point the store at a path whose parent does not exist.
	s := NewStore(filepath.Join(t.TempDir(), "missing", "tokens.json"))
	if err := s.Save(AuthTokens{Access: "a"}); err == nil {
		t.Fatal("want storage error")
	}
}
