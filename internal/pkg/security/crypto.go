package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MasterKeyEnv overrides the key file when set to 64 hex characters.
const MasterKeyEnv = "YLT_MASTER_KEY"

const keySize = 32

// LoadOrCreateKey returns the master key from the environment or keyPath,
// generating and saving a new one if neither holds a valid key.
// created reports a newly generated key.
func LoadOrCreateKey(keyPath string) (key []byte, created bool, err error) {
	// 1. Environment
	if envKey := os.Getenv(MasterKeyEnv); envKey != "" {
		if key, err := decodeKey(envKey); err == nil {
			return key, false, nil
		}
	}

	// 2. Key file
	if data, err := os.ReadFile(keyPath); err == nil {
		if key, err := decodeKey(string(data)); err == nil {
			return key, false, nil
		}
	} else if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("failed to read key file: %w", err)
	}

	// 3. Generate
	key = make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random key: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return nil, false, fmt.Errorf("failed to save master key to %s: %w", keyPath, err)
	}
	return key, true, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if len(key) != keySize {
		return nil, errors.New("invalid key length")
	}
	return key, nil
}

// Cipher seals data with AES-GCM. Sealed data is Nonce + Ciphertext.
type Cipher struct {
	gcm cipher.AEAD
}

// NewCipher creates a Cipher for a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, errors.New("master key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{gcm: gcm}, nil
}

// Encrypt seals plaintext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens data produced by Encrypt.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	nonceSize := c.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return c.gcm.Open(nil, nonce, ciphertext, nil)
}
