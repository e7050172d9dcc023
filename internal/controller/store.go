package controller

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Saturate/YellowLabTools/internal/pkg/security"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidConfig      = errors.New("invalid config")
)

// tokenPrefix marks API tokens. A token reads ylt_<id>_<secret>.
const tokenPrefix = "ylt_"

// User is a dashboard account.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"` // bcrypt hashed
	Role         string `json:"role"`          // "super_admin", "viewer"
	CreatedAt    int64  `json:"created_at"`
}

// APIToken is a machine access key. Only the bcrypt hash of the secret is kept.
type APIToken struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SecretHash string `json:"secret_hash,omitempty"`
	CreatedBy  string `json:"created_by"`
	CreatedAt  int64  `json:"created_at"`
}

// Config holds runtime settings that can be changed without a restart.
type Config struct {
	Retention  string `json:"retention"`   // archive retention, e.g. "720h"
	ResultsURL string `json:"results_url"` // YellowLab API base URL
}

// Validate checks the retention duration and that ResultsURL is absolute.
func (c Config) Validate() error {
	if _, err := time.ParseDuration(c.Retention); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	if c.ResultsURL != "" && !strings.HasPrefix(c.ResultsURL, "http://") && !strings.HasPrefix(c.ResultsURL, "https://") {
		return errors.Join(ErrInvalidConfig, errors.New("results_url must be an http(s) URL"))
	}
	return nil
}

// MetaData is the top-level container for system metadata.
type MetaData struct {
	Initialized bool       `json:"initialized"`
	Users       []User     `json:"users"`
	Tokens      []APIToken `json:"tokens"`
	Config      Config     `json:"config"`
}

// Store keeps MetaData in memory and persists it encrypted.
type Store struct {
	filePath string
	cipher   *security.Cipher
	mu       sync.RWMutex
	data     *MetaData
}

// NewStore creates a store backed by filePath. defaults is used until
// Load finds a saved config.
func NewStore(filePath string, c *security.Cipher, defaults Config) *Store {
	return &Store{
		filePath: filePath,
		cipher:   c,
		data: &MetaData{
			Users:  make([]User, 0),
			Tokens: make([]APIToken, 0),
			Config: defaults,
		},
	}
}

// Load reads metadata from disk. A missing file leaves the store uninitialized.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encrypted, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data.Initialized = false
		return nil
	}
	if err != nil {
		return err
	}
	if len(encrypted) == 0 {
		return nil
	}

	decrypted, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		return errors.New("failed to decrypt metadata (invalid key or corrupted file): " + err.Error())
	}
	return json.Unmarshal(decrypted, s.data)
}

// Save writes metadata to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	jsonData, err := json.Marshal(s.data)
	if err != nil {
		return err
	}

	encrypted, err := s.cipher.Encrypt(jsonData)
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, encrypted, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}

// IsInitialized returns the initialization status.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Initialized
}

// InitializeSystem creates the first super_admin user.
func (s *Store) InitializeSystem(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.Initialized {
		return os.ErrExist
	}

	s.data.Users = append(s.data.Users, User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         "super_admin",
		CreatedAt:    time.Now().Unix(),
	})
	s.data.Initialized = true

	return s.saveLocked()
}

// GetUser returns a user by username (case-insensitive).
func (s *Store) GetUser(username string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.data.Users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return User{}, false
}

// Authenticate checks a username and password.
func (s *Store) Authenticate(username, password string) (User, error) {
	u, ok := s.GetUser(username)
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// CreateToken issues a new API token and returns its value. The value is
// not stored and cannot be recovered later.
func (s *Store) CreateToken(name, createdBy string) (string, APIToken, error) {
	idBytes := make([]byte, 8)
	secretBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", APIToken{}, err
	}
	if _, err := rand.Read(secretBytes); err != nil {
		return "", APIToken{}, err
	}
	id := hex.EncodeToString(idBytes)
	secret := hex.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", APIToken{}, err
	}

	t := APIToken{
		ID:         id,
		Name:       name,
		SecretHash: string(hash),
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().Unix(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Tokens = append(s.data.Tokens, t)
	if err := s.saveLocked(); err != nil {
		s.data.Tokens = s.data.Tokens[:len(s.data.Tokens)-1]
		return "", APIToken{}, err
	}
	return tokenPrefix + id + "_" + secret, t, nil
}

// Tokens lists the API tokens without their hashes.
func (s *Store) Tokens() []APIToken {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]APIToken, len(s.data.Tokens))
	for i, t := range s.data.Tokens {
		out[i] = t
		out[i].SecretHash = ""
	}
	return out
}

// DeleteToken removes a token by ID.
func (s *Store) DeleteToken(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.data.Tokens {
		if t.ID == id {
			s.data.Tokens = append(s.data.Tokens[:i], s.data.Tokens[i+1:]...)
			return s.saveLocked()
		}
	}
	return os.ErrNotExist
}

// VerifyToken resolves a token value to its APIToken.
func (s *Store) VerifyToken(val string) (APIToken, bool) {
	rest, ok := strings.CutPrefix(val, tokenPrefix)
	if !ok {
		return APIToken{}, false
	}
	id, secret, ok := strings.Cut(rest, "_")
	if !ok {
		return APIToken{}, false
	}

	s.mu.RLock()
	var found APIToken
	for _, t := range s.data.Tokens {
		if t.ID == id {
			found = t
			break
		}
	}
	s.mu.RUnlock()

	if found.ID == "" {
		return APIToken{}, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(found.SecretHash), []byte(secret)); err != nil {
		return APIToken{}, false
	}
	found.SecretHash = ""
	return found, true
}

// Config returns the current runtime config.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Config
}

// UpdateConfig validates and stores cfg.
func (s *Store) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Config = cfg
	return s.saveLocked()
}
