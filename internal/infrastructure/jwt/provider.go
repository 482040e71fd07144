package jwtinfra

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-license-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the activation token payload.
type Claims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 activation tokens. The secret is read once
// at construction and never changes afterwards.
type Provider struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.TokenSecret == "" {
		return nil, errors.New("token secret is empty")
	}
	if cfg.TokenExpiry <= 0 {
		return nil, errors.New("token expiry must be positive")
	}
	return &Provider{secret: []byte(cfg.TokenSecret), expiry: cfg.TokenExpiry, now: time.Now}, nil
}

// WithClock replaces the time source. Intended for tests.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	cp := *p
	cp.now = now
	return &cp
}

// Issue returns a token bound to deviceID, valid for the configured window.
// JWT times have whole-second granularity: the window starts at the issue
// time truncated to the second, so it may close up to a second early.
func (p *Provider) Issue(deviceID string) (string, error) {
	iat := p.now().Truncate(time.Second)
	claims := Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(iat.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(iat),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Verify reports whether tokenStr is a genuine, unexpired token for deviceID.
// Every failure, including a panic while parsing, yields false.
func (p *Provider) Verify(tokenStr, deviceID string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("token verification panicked", "panic", r)
			ok = false
		}
	}()
	if tokenStr == "" || deviceID == "" {
		return false
	}
	claims, err := p.parse(tokenStr)
	if err != nil {
		return false
	}
	if claims.DeviceID != deviceID {
		return false
	}
	return p.now().Before(claims.ExpiresAt.Time)
}

func (p *Provider) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ExpiresAt == nil {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
