package secret

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Matcher checks admin credentials against a bcrypt hash held in memory.
type Matcher struct {
	hash []byte
}

// NewMatcher wraps an existing bcrypt hash (e.g. from ADMIN_SECRET_HASH).
func NewMatcher(hash string) (*Matcher, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("parse admin secret hash: %w", err)
	}
	return &Matcher{hash: []byte(hash)}, nil
}

// NewMatcherFromPlain hashes a plaintext secret once at startup.
func NewMatcherFromPlain(plain string, cost int) (*Matcher, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin secret: %w", err)
	}
	return &Matcher{hash: hash}, nil
}

func (m *Matcher) Matches(candidate string) bool {
	if candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(m.hash, []byte(candidate)) == nil
}
