package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/minhtien379/Loto/internal/model"
)

const hostTokenPrefix = "ht_"

// HostCredentials is a freshly issued host token and the hash that is stored in its place
type HostCredentials struct {
	Token string
	Hash  string
}

// Config holds configuration for the auth service
type Config struct {
	// BcryptCost is the work factor used when hashing host tokens
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Service issues and verifies host tokens. Only the bcrypt hash of a token
// is kept, both in the room and in persisted host state.
type Service struct {
	cost int
}

// New creates a new auth Service
func New(cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultConfig().BcryptCost
	}
	return &Service{cost: cfg.BcryptCost}
}

// IssueHostToken creates a new random host token
func (s *Service) IssueHostToken() (HostCredentials, error) {
	token := s.generateID(hostTokenPrefix)
	hash, err := bcrypt.GenerateFromPassword([]byte(token), s.cost)
	if err != nil {
		return HostCredentials{}, err
	}
	return HostCredentials{Token: token, Hash: string(hash)}, nil
}

// VerifyHostToken checks token against a stored hash
func (s *Service) VerifyHostToken(hash, token string) error {
	if hash == "" || token == "" {
		return model.ErrInvalidHostToken
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return model.ErrInvalidHostToken
	}
	if err != nil {
		return errors.Join(model.ErrInvalidHostToken, err)
	}
	return nil
}

// generateID generates a random ID with a prefix
func (s *Service) generateID(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}
