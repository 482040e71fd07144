package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-license-api/internal/domain"
	"go.etcd.io/bbolt"
)

const bucketActivationCodes = "activation_codes"

// Store keeps activation codes in a single bbolt bucket keyed by code.
// bbolt runs one read-write transaction at a time, which makes every
// check-then-write below atomic.
type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketActivationCodes))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Insert(_ context.Context, c *domain.ActivationCode) error {
	buf, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal activation code: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketActivationCodes))
		if b.Get([]byte(c.Code)) != nil {
			return fmt.Errorf("activation code exists: %w", domain.ErrConflict)
		}
		return b.Put([]byte(c.Code), buf)
	})
}

func (s *Store) Get(_ context.Context, code string) (*domain.ActivationCode, error) {
	var c *domain.ActivationCode
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		c, err = getCode(tx, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) MarkUsed(_ context.Context, code, deviceID string, usedAt time.Time) (*domain.ActivationCode, error) {
	var updated *domain.ActivationCode
	err := s.db.Update(func(tx *bbolt.Tx) error {
		c, err := getCode(tx, code)
		if err != nil {
			return err
		}
		if c.State != domain.CodeUnused {
			return fmt.Errorf("activation code already used: %w", domain.ErrNotFound)
		}
		ts := usedAt.UTC()
		c.State = domain.CodeUsed
		c.DeviceID = deviceID
		c.UsedAt = &ts
		buf, err := json.Marshal(c)
		if err != nil {
			return err
		}
		updated = c
		return tx.Bucket([]byte(bucketActivationCodes)).Put([]byte(code), buf)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func getCode(tx *bbolt.Tx, code string) (*domain.ActivationCode, error) {
	v := tx.Bucket([]byte(bucketActivationCodes)).Get([]byte(code))
	if v == nil {
		return nil, fmt.Errorf("activation code not found: %w", domain.ErrNotFound)
	}
	var c domain.ActivationCode
	if err := json.Unmarshal(v, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
