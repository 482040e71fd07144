package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-license-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Insert(ctx context.Context, c *domain.ActivationCode) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockCodeStore) Get(ctx context.Context, code string) (*domain.ActivationCode, error) {
	args := m.Called(ctx, code)
	if c, _ := args.Get(0).(*domain.ActivationCode); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) MarkUsed(ctx context.Context, code, deviceID string, usedAt time.Time) (*domain.ActivationCode, error) {
	args := m.Called(ctx, code, deviceID, usedAt)
	if c, _ := args.Get(0).(*domain.ActivationCode); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) Generate() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Issue(deviceID string) (string, error) {
	args := m.Called(deviceID)
	return args.String(0), args.Error(1)
}
func (m *mockTokens) Verify(token, deviceID string) bool {
	return m.Called(token, deviceID).Bool(0)
}

type staticAdmin string

func (a staticAdmin) Matches(candidate string) bool { return candidate != "" && candidate == string(a) }

// --- builder ---

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newService(st *mockCodeStore, gen *mockGenerator, tok *mockTokens) Service {
	return NewService(ServiceDeps{
		Store:        st,
		Generator:    gen,
		Tokens:       tok,
		Admin:        staticAdmin("admin-secret"),
		MaxBatchSize: 100,
		Now:          func() time.Time { return fixedNow },
	})
}

// --- IssueBatch ---

func TestIssueBatch_WrongCredential(t *testing.T) {
	svc := newService(nil, nil, nil)
	_, err := svc.IssueBatch(context.Background(), "guess", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestIssueBatch_CredentialCheckedBeforeCount(t *testing.T) {
	svc := newService(nil, nil, nil)
	_, err := svc.IssueBatch(context.Background(), "", 0)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestIssueBatch_InvalidCount(t *testing.T) {
	svc := newService(nil, nil, nil)
	for _, n := range []int{0, -1, -500} {
		_, err := svc.IssueBatch(context.Background(), "admin-secret", n)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), "count %d", n)
	}
}

func TestIssueBatch_HappyPath_KeepsOrderAndBatchID(t *testing.T) {
	st := &mockCodeStore{}
	gen := &mockGenerator{}
	gen.On("Generate").Return("CODE1", nil).Once()
	gen.On("Generate").Return("CODE2", nil).Once()
	gen.On("Generate").Return("CODE3", nil).Once()

	var batchIDs []string
	st.On("Insert", mock.Anything, mock.MatchedBy(func(c *domain.ActivationCode) bool {
		return c.State == domain.CodeUnused && c.DeviceID == "" && c.CreatedAt.Equal(fixedNow)
	})).Run(func(args mock.Arguments) {
		batchIDs = append(batchIDs, args.Get(1).(*domain.ActivationCode).BatchID)
	}).Return(nil)

	svc := newService(st, gen, nil)
	codes, err := svc.IssueBatch(context.Background(), "admin-secret", 3)

	require.NoError(t, err)
	assert.Equal(t, []string{"CODE1", "CODE2", "CODE3"}, codes)
	require.Len(t, batchIDs, 3)
	assert.NotEmpty(t, batchIDs[0])
	assert.Equal(t, batchIDs[0], batchIDs[1])
	assert.Equal(t, batchIDs[0], batchIDs[2])
	st.AssertExpectations(t)
	gen.AssertExpectations(t)
}

func TestIssueBatch_RedrawsOnCollision(t *testing.T) {
	st := &mockCodeStore{}
	gen := &mockGenerator{}
	gen.On("Generate").Return("TAKEN", nil).Once()
	gen.On("Generate").Return("FRESH", nil).Once()
	st.On("Insert", mock.Anything, mock.MatchedBy(func(c *domain.ActivationCode) bool { return c.Code == "TAKEN" })).
		Return(domain.ErrConflict)
	st.On("Insert", mock.Anything, mock.MatchedBy(func(c *domain.ActivationCode) bool { return c.Code == "FRESH" })).
		Return(nil)

	svc := newService(st, gen, nil)
	codes, err := svc.IssueBatch(context.Background(), "admin-secret", 1)

	require.NoError(t, err)
	assert.Equal(t, []string{"FRESH"}, codes)
	st.AssertExpectations(t)
}

func TestIssueBatch_GenerationExhausted(t *testing.T) {
	st := &mockCodeStore{}
	gen := &mockGenerator{}
	gen.On("Generate").Return("SAME", nil)
	st.On("Insert", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	svc := newService(st, gen, nil)
	_, err := svc.IssueBatch(context.Background(), "admin-secret", 2)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGenerationExhausted))
	st.AssertNumberOfCalls(t, "Insert", maxAttemptsPerCode)
}

func TestIssueBatch_StoreFailure(t *testing.T) {
	st := &mockCodeStore{}
	gen := &mockGenerator{}
	gen.On("Generate").Return("CODE1", nil)
	st.On("Insert", mock.Anything, mock.Anything).Return(errors.New("dial tcp: connection refused"))

	svc := newService(st, gen, nil)
	_, err := svc.IssueBatch(context.Background(), "admin-secret", 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

func TestIssueBatch_FailureReturnsIssuedCodes(t *testing.T) {
	st := &mockCodeStore{}
	gen := &mockGenerator{}
	gen.On("Generate").Return("CODE1", nil).Once()
	gen.On("Generate").Return("CODE2", nil).Once()
	st.On("Insert", mock.Anything, mock.MatchedBy(func(c *domain.ActivationCode) bool { return c.Code == "CODE1" })).
		Return(nil)
	st.On("Insert", mock.Anything, mock.MatchedBy(func(c *domain.ActivationCode) bool { return c.Code == "CODE2" })).
		Return(errors.New("throttled"))

	svc := newService(st, gen, nil)
	codes, err := svc.IssueBatch(context.Background(), "admin-secret", 3)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	assert.Equal(t, []string{"CODE1"}, codes)
}

func TestIssueBatch_ClampsToMax(t *testing.T) {
	st := &mockCodeStore{}
	gen := &mockGenerator{}
	n := 0
	gen.On("Generate").Return("", nil).Run(func(mock.Arguments) { n++ })
	st.On("Insert", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(ServiceDeps{
		Store:        st,
		Generator:    gen,
		Admin:        staticAdmin("admin-secret"),
		MaxBatchSize: 4,
	})
	codes, err := svc.IssueBatch(context.Background(), "admin-secret", 500)

	require.NoError(t, err)
	assert.Len(t, codes, 4)
	assert.Equal(t, 4, n)
}

// --- Activate ---

func TestActivate_MissingParameters(t *testing.T) {
	svc := newService(nil, nil, nil)
	for _, tc := range [][2]string{{"", "dev-1"}, {"ABC123", ""}, {"  ", "dev-1"}, {"ABC123", " \t "}} {
		_, err := svc.Activate(context.Background(), tc[0], tc[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), "input %q", tc)
	}
}

func TestActivate_HappyPath(t *testing.T) {
	st := &mockCodeStore{}
	tok := &mockTokens{}
	tok.On("Issue", "dev-1").Return("signed-token", nil)
	st.On("MarkUsed", mock.Anything, "ABC123", "dev-1", fixedNow).
		Return(&domain.ActivationCode{Code: "ABC123", State: domain.CodeUsed, DeviceID: "dev-1"}, nil)

	svc := newService(st, nil, tok)
	res, err := svc.Activate(context.Background(), " ABC123 ", "dev-1")

	require.NoError(t, err)
	assert.Equal(t, "signed-token", res.Token)
	assert.Equal(t, "dev-1", res.DeviceID)
	st.AssertExpectations(t)
	tok.AssertExpectations(t)
}

func TestActivate_BindsDeviceIDExactly(t *testing.T) {
	st := &mockCodeStore{}
	tok := &mockTokens{}
	tok.On("Issue", " dev-1 ").Return("signed-token", nil)
	st.On("MarkUsed", mock.Anything, "ABC123", " dev-1 ", fixedNow).
		Return(&domain.ActivationCode{Code: "ABC123", State: domain.CodeUsed, DeviceID: " dev-1 "}, nil)

	svc := newService(st, nil, tok)
	res, err := svc.Activate(context.Background(), "ABC123", " dev-1 ")

	require.NoError(t, err)
	assert.Equal(t, " dev-1 ", res.DeviceID)
	st.AssertExpectations(t)
	tok.AssertExpectations(t)
}

func TestActivate_NotFoundOrUsed(t *testing.T) {
	st := &mockCodeStore{}
	tok := &mockTokens{}
	tok.On("Issue", "dev-2").Return("signed-token", nil)
	st.On("MarkUsed", mock.Anything, "ABC123", "dev-2", fixedNow).Return(nil, domain.ErrNotFound)

	svc := newService(st, nil, tok)
	res, err := svc.Activate(context.Background(), "ABC123", "dev-2")

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestActivate_SigningFailureLeavesCodeUnused(t *testing.T) {
	st := &mockCodeStore{}
	tok := &mockTokens{}
	tok.On("Issue", "dev-1").Return("", errors.New("signer broken"))

	svc := newService(st, nil, tok)
	_, err := svc.Activate(context.Background(), "ABC123", "dev-1")

	require.Error(t, err)
	st.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestActivate_StoreUnavailable(t *testing.T) {
	st := &mockCodeStore{}
	tok := &mockTokens{}
	tok.On("Issue", "dev-1").Return("signed-token", nil)
	st.On("MarkUsed", mock.Anything, "ABC123", "dev-1", fixedNow).Return(nil, errors.New("timeout"))

	svc := newService(st, nil, tok)
	_, err := svc.Activate(context.Background(), "ABC123", "dev-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

// --- Verify ---

func TestVerify_DelegatesWithoutStore(t *testing.T) {
	st := &mockCodeStore{}
	tok := &mockTokens{}
	tok.On("Verify", "tok", "dev-1").Return(true)
	tok.On("Verify", "tok", "dev-2").Return(false)

	svc := newService(st, nil, tok)
	assert.True(t, svc.Verify("tok", "dev-1"))
	assert.False(t, svc.Verify("tok", "dev-2"))
	st.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

// --- Lookup ---

func TestLookup_RequiresAdmin(t *testing.T) {
	svc := newService(nil, nil, nil)
	_, err := svc.Lookup(context.Background(), "nope", "ABC123")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLookup_Found(t *testing.T) {
	st := &mockCodeStore{}
	st.On("Get", mock.Anything, "ABC123").Return(&domain.ActivationCode{Code: "ABC123", State: domain.CodeUnused}, nil)

	svc := newService(st, nil, nil)
	rec, err := svc.Lookup(context.Background(), "admin-secret", "ABC123")
	require.NoError(t, err)
	assert.Equal(t, domain.CodeUnused, rec.State)
}

func TestLookup_NotFound(t *testing.T) {
	st := &mockCodeStore{}
	st.On("Get", mock.Anything, "ABC123").Return(nil, domain.ErrNotFound)

	svc := newService(st, nil, nil)
	_, err := svc.Lookup(context.Background(), "admin-secret", "ABC123")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
