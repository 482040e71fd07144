package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-license-api/internal/domain"
	"github.com/go-license-api/internal/pkg/id"
)

// maxAttemptsPerCode bounds re-draws for one batch slot. With the default
// 36^16 code space a single collision is already practically unreachable.
const maxAttemptsPerCode = 8

// Activation is the outcome of a successful Activate call.
type Activation struct {
	Token    string
	DeviceID string
}

type Service interface {
	// IssueBatch creates count new unused codes. Counts above the configured
	// maximum are clamped. A batch is not atomic: when a slot fails, the codes
	// already issued are returned together with the error and stay unused.
	IssueBatch(ctx context.Context, credential string, count int) ([]string, error)
	// Activate consumes an unused code and returns a token bound to deviceID.
	Activate(ctx context.Context, code, deviceID string) (*Activation, error)
	// Verify reports whether token is valid for deviceID. It never touches the store.
	Verify(token, deviceID string) bool
	// Lookup returns the stored record for code. Admin only.
	Lookup(ctx context.Context, credential, code string) (*domain.ActivationCode, error)
}

type codeStore interface {
	Insert(ctx context.Context, c *domain.ActivationCode) error
	Get(ctx context.Context, code string) (*domain.ActivationCode, error)
	MarkUsed(ctx context.Context, code, deviceID string, usedAt time.Time) (*domain.ActivationCode, error)
}

type codeGenerator interface {
	Generate() (string, error)
}

type tokenAuthority interface {
	Issue(deviceID string) (string, error)
	Verify(token, deviceID string) bool
}

type credentialMatcher interface {
	Matches(candidate string) bool
}

type ServiceDeps struct {
	Store        codeStore
	Generator    codeGenerator
	Tokens       tokenAuthority
	Admin        credentialMatcher
	MaxBatchSize int
	Now          func() time.Time
}

type service struct {
	store        codeStore
	generator    codeGenerator
	tokens       tokenAuthority
	admin        credentialMatcher
	maxBatchSize int
	now          func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:        deps.Store,
		generator:    deps.Generator,
		tokens:       deps.Tokens,
		admin:        deps.Admin,
		maxBatchSize: deps.MaxBatchSize,
		now:          now,
	}
}

func (s *service) IssueBatch(ctx context.Context, credential string, count int) ([]string, error) {
	if !s.admin.Matches(credential) {
		return nil, fmt.Errorf("invalid admin credential: %w", domain.ErrUnauthorized)
	}
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1: %w", domain.ErrBadRequest)
	}
	if count > s.maxBatchSize {
		count = s.maxBatchSize
	}

	batchID := id.New()
	codes := make([]string, 0, count)
	for len(codes) < count {
		c, err := s.issueOne(ctx, batchID)
		if err != nil {
			slog.Error("batch issuance stopped", "batch_id", batchID, "issued", len(codes), "requested", count, "err", err)
			return codes, err
		}
		codes = append(codes, c)
	}
	slog.Info("issued activation codes", "batch_id", batchID, "count", len(codes))
	return codes, nil
}

// issueOne fills a single batch slot, re-drawing on key collisions.
func (s *service) issueOne(ctx context.Context, batchID string) (string, error) {
	for attempt := 0; attempt < maxAttemptsPerCode; attempt++ {
		c, err := s.generator.Generate()
		if err != nil {
			return "", err
		}
		err = s.store.Insert(ctx, &domain.ActivationCode{
			Code:      c,
			State:     domain.CodeUnused,
			BatchID:   batchID,
			CreatedAt: s.now().UTC(),
		})
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return "", storeErr("insert activation code", err)
		}
		slog.Warn("activation code collision, redrawing", "batch_id", batchID, "attempt", attempt+1)
	}
	return "", fmt.Errorf("%d attempts collided: %w", maxAttemptsPerCode, domain.ErrGenerationExhausted)
}

func (s *service) Activate(ctx context.Context, code, deviceID string) (*Activation, error) {
	// The device id is opaque and bound exactly as given.
	code = strings.TrimSpace(code)
	if code == "" || strings.TrimSpace(deviceID) == "" {
		return nil, fmt.Errorf("code and deviceId are required: %w", domain.ErrBadRequest)
	}

	// Signed first so a signing failure leaves the code unused.
	token, err := s.tokens.Issue(deviceID)
	if err != nil {
		return nil, fmt.Errorf("sign activation token: %w", err)
	}
	rec, err := s.store.MarkUsed(ctx, code, deviceID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("activation code invalid or already used: %w", domain.ErrNotFound)
		}
		return nil, storeErr("mark activation code used", err)
	}
	return &Activation{Token: token, DeviceID: rec.DeviceID}, nil
}

func (s *service) Verify(token, deviceID string) bool {
	return s.tokens.Verify(token, deviceID)
}

func (s *service) Lookup(ctx context.Context, credential, code string) (*domain.ActivationCode, error) {
	if !s.admin.Matches(credential) {
		return nil, fmt.Errorf("invalid admin credential: %w", domain.ErrUnauthorized)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("code is required: %w", domain.ErrBadRequest)
	}
	rec, err := s.store.Get(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, storeErr("get activation code", err)
	}
	return rec, nil
}

func storeErr(op string, err error) error {
	slog.Error("store operation failed", "op", op, "err", err)
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
