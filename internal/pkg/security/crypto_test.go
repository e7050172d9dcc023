package security

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateKey(t *testing.T) {
	t.Setenv(MasterKeyEnv, "")
	path := filepath.Join(t.TempDir(), "master.key")

	key, created, err := LoadOrCreateKey(path)
	if err != nil || !created || len(key) != 32 {
		t.Fatalf("first call: created=%v len=%d err=%v", created, len(key), err)
	}

	again, created, err := LoadOrCreateKey(path)
	if err != nil || created || !bytes.Equal(key, again) {
		t.Fatalf("second call should reuse the key: created=%v err=%v", created, err)
	}
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatal(err)
	}

	sealed, err := c.Encrypt([]byte(`{"users":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	plain, err := c.Decrypt(sealed)
	if err != nil || string(plain) != `{"users":[]}` {
		t.Fatalf("round trip failed: %q %v", plain, err)
	}

	other, _ := NewCipher(bytes.Repeat([]byte{8}, 32))
	if _, err := other.Decrypt(sealed); err == nil {
		t.Error("Expected error decrypting with another key")
	}
	if _, err := NewCipher([]byte("short")); err == nil {
		t.Error("Expected error for short key")
	}
}
