package http

import (
	"context"
	"time"

	"github.com/go-license-api/internal/domain"
)

// CodeStore is the minimal interface the router requires from an activation code store.
// Insert and MarkUsed must be atomic with respect to other writers of the same code.
type CodeStore interface {
	Insert(ctx context.Context, c *domain.ActivationCode) error
	Get(ctx context.Context, code string) (*domain.ActivationCode, error)
	MarkUsed(ctx context.Context, code, deviceID string, usedAt time.Time) (*domain.ActivationCode, error)
}

// TokenAuthority signs and verifies device tokens.
type TokenAuthority interface {
	Issue(deviceID string) (string, error)
	Verify(token, deviceID string) bool
}

// CodeGenerator produces candidate activation codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// CredentialMatcher checks the admin credential.
type CredentialMatcher interface {
	Matches(candidate string) bool
}
