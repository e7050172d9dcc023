package controller

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Saturate/YellowLabTools/internal/pkg/security"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	c, err := security.NewCipher(bytes.Repeat([]byte{1}, 32))
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(path, c, Config{Retention: "720h"})
}

func TestInitializeAndAuthenticate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")
	s := newTestStore(t, path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if s.IsInitialized() {
		t.Fatal("Expected fresh store to be uninitialized")
	}

	if err := s.InitializeSystem("admin", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := s.InitializeSystem("other", "secret"); !errors.Is(err, os.ErrExist) {
		t.Errorf("Expected ErrExist on second init, got %v", err)
	}

	if _, err := s.Authenticate("ADMIN", "secret"); err != nil {
		t.Errorf("Expected case-insensitive login to succeed: %v", err)
	}
	if _, err := s.Authenticate("admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}

	// Reload from disk.
	reloaded := newTestStore(t, path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if !reloaded.IsInitialized() {
		t.Error("Expected initialized state to persist")
	}

	raw, _ := os.ReadFile(path)
	if bytes.Contains(raw, []byte("admin")) {
		t.Error("Metadata file should be encrypted")
	}
}

func TestTokens(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "meta.db"))

	val, tok, err := s.CreateToken("ci", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(val, "ylt_"+tok.ID+"_") {
		t.Fatalf("Unexpected token format: %s", val)
	}

	got, ok := s.VerifyToken(val)
	if !ok || got.Name != "ci" || got.SecretHash != "" {
		t.Errorf("VerifyToken = %+v, %v", got, ok)
	}
	for _, bad := range []string{"", "sk-123", "ylt_" + tok.ID + "_deadbeef", "ylt_nosuch_x"} {
		if _, ok := s.VerifyToken(bad); ok {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}

	list := s.Tokens()
	if len(list) != 1 || list[0].SecretHash != "" {
		t.Errorf("Tokens() = %+v", list)
	}

	if err := s.DeleteToken(tok.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.VerifyToken(val); ok {
		t.Error("Deleted token still verifies")
	}
	if err := s.DeleteToken(tok.ID); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}

func TestUpdateConfig(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "meta.db"))

	if err := s.UpdateConfig(Config{Retention: "forever"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for bad retention, got %v", err)
	}
	if err := s.UpdateConfig(Config{Retention: "24h", ResultsURL: "ftp://x"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for bad URL, got %v", err)
	}

	cfg := Config{Retention: "24h", ResultsURL: "https://yellowlab.tools"}
	if err := s.UpdateConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if s.Config() != cfg {
		t.Errorf("Config() = %+v", s.Config())
	}
}
