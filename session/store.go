package session

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/scholarchain/walletgate/kv"
)

// Store persists the session record in two fixed slots: the structured record
// and a legacy bare-token slot kept for callers that predate the record
// format. Writes replace the whole record in one storage operation.
type Store struct {
	kv        kv.Store
	recordKey string
	legacyKey string
}

// NewStore creates a session [Store] over the given storage backend.
func NewStore(backend kv.Store, recordKey, legacyTokenKey string) *Store {
	return &Store{
		kv:        backend,
		recordKey: recordKey,
		legacyKey: legacyTokenKey,
	}
}

// Save overwrites the stored record and mirrors the token into the legacy
// slot. Fails with [ErrMissingToken] when the session carries no token.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	if err := s.kv.Set(ctx, s.recordKey, data); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.legacyKey, []byte(sess.Token)); err != nil {
		return err
	}
	return nil
}

// Load returns the stored session, or (nil, nil) when none exists. A record
// that cannot be parsed is cleared and reported as [ErrCorruptRecord] so the
// caller can treat the visitor as logged out.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	data, err := s.kv.Get(ctx, s.recordKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	sess, err := Decode(data)
	if err != nil {
		log.Print("walletgate: clearing unparseable session record")
		if clearErr := s.Clear(ctx); clearErr != nil {
			return nil, errors.Join(err, clearErr)
		}
		return nil, err
	}
	return sess, nil
}

// Token returns the bearer token from the structured record, falling back to
// the legacy slot, or "" when neither holds one.
func (s *Store) Token(ctx context.Context) string {
	sess, err := s.Load(ctx)
	if err == nil && sess != nil && sess.Token != "" {
		return sess.Token
	}

	legacy, err := s.kv.Get(ctx, s.legacyKey)
	if err != nil {
		return ""
	}
	return string(legacy)
}

// IsAuthenticated reports whether a token exists and the stored record's
// LoggedIn flag is set.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	sess, err := s.Load(ctx)
	if err != nil || sess == nil {
		return false
	}
	return sess.LoggedIn && sess.Token != ""
}

// Touch refreshes the stored record's IssuedAt and persists it.
func (s *Store) Touch(ctx context.Context, sess *Session, now time.Time) error {
	sess.IssuedAt = now.Unix()
	return s.Save(ctx, sess)
}

// Clear removes both the structured record and the legacy slot. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	recordErr := s.kv.Delete(ctx, s.recordKey)
	legacyErr := s.kv.Delete(ctx, s.legacyKey)
	return errors.Join(recordErr, legacyErr)
}
