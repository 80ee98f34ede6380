package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aarvika/storefront-backend/pkg/logger"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// Backend is the key/value surface the store rides on.
type Backend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	SnapshotKey(scope, key string) string
	SnapshotPattern(scope string) string
}

// FailureCounter receives a tick whenever an operation degrades to a no-op.
type FailureCounter interface {
	IncSnapshotFailure(op string)
}

// Envelope wraps stored payloads with the write timestamp used for expiry.
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store is a namespaced snapshot store with per-key expiry. Backend failures
// never propagate to callers: writes and deletes become no-ops, reads report
// absent, and every degradation is logged and counted.
type Store struct {
	backend  Backend
	logg     *logger.Logger
	failures FailureCounter
	keyTTL   time.Duration
	now      func() time.Time
}

// Option configures optional store behavior.
type Option func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFailureCounter wires the degradation counter.
func WithFailureCounter(counter FailureCounter) Option {
	return func(s *Store) {
		s.failures = counter
	}
}

// NewStore builds a snapshot store over the provided backend. keyTTL bounds
// how long Redis keeps a key regardless of reads; per-read staleness is the
// caller-supplied maxAge on Load.
func NewStore(backend Backend, logg *logger.Logger, keyTTL time.Duration, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("snapshot backend is required")
	}
	store := &Store{
		backend: backend,
		logg:    logg,
		keyTTL:  keyTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Save writes value under the namespaced key with the current timestamp.
func (s *Store) Save(ctx context.Context, scope, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.degrade(ctx, "save", key, err)
		return
	}
	envelope, err := json.Marshal(Envelope{Data: raw, Timestamp: s.now()})
	if err != nil {
		s.degrade(ctx, "save", key, err)
		return
	}
	if err := s.backend.Set(ctx, s.backend.SnapshotKey(scope, key), envelope, s.keyTTL); err != nil {
		s.degrade(ctx, "save", key, err)
	}
}

// Load unmarshals the stored payload into dest and reports whether a live
// snapshot existed. When maxAge is positive and the snapshot is older, the
// key is deleted and the snapshot is treated as absent.
func (s *Store) Load(ctx context.Context, scope, key string, maxAge time.Duration, dest any) bool {
	fullKey := s.backend.SnapshotKey(scope, key)
	raw, err := s.backend.Get(ctx, fullKey)
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			s.degrade(ctx, "load", key, err)
		}
		return false
	}

	var envelope Envelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		s.degrade(ctx, "load", key, err)
		return false
	}

	if maxAge > 0 && s.now().Sub(envelope.Timestamp) > maxAge {
		if err := s.backend.Del(ctx, fullKey); err != nil {
			s.degrade(ctx, "expire", key, err)
		}
		return false
	}

	if dest != nil {
		if err := json.Unmarshal(envelope.Data, dest); err != nil {
			s.degrade(ctx, "load", key, err)
			return false
		}
	}
	return true
}

// Timestamp returns the write time of a live snapshot, if one exists.
func (s *Store) Timestamp(ctx context.Context, scope, key string) (time.Time, bool) {
	raw, err := s.backend.Get(ctx, s.backend.SnapshotKey(scope, key))
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			s.degrade(ctx, "load", key, err)
		}
		return time.Time{}, false
	}
	var envelope Envelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		s.degrade(ctx, "load", key, err)
		return time.Time{}, false
	}
	return envelope.Timestamp, true
}

// Remove deletes a single snapshot.
func (s *Store) Remove(ctx context.Context, scope, key string) {
	if err := s.backend.Del(ctx, s.backend.SnapshotKey(scope, key)); err != nil {
		s.degrade(ctx, "remove", key, err)
	}
}

// Clear drops every snapshot under the scope.
func (s *Store) Clear(ctx context.Context, scope string) {
	keys, err := s.backend.ScanKeys(ctx, s.backend.SnapshotPattern(scope))
	if err != nil {
		s.degrade(ctx, "clear", scope, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.backend.Del(ctx, keys...); err != nil {
		s.degrade(ctx, "clear", scope, err)
	}
}

// Sweep deletes expired snapshots under the scopes. The host runs this once
// at startup; expiry during normal operation stays lazy on Load.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration, scopes ...string) error {
	if maxAge <= 0 {
		return nil
	}

	var errs error
	for _, scope := range scopes {
		keys, err := s.backend.ScanKeys(ctx, s.backend.SnapshotPattern(scope))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, fullKey := range keys {
			raw, err := s.backend.Get(ctx, fullKey)
			if err != nil {
				if !errors.Is(err, redislib.Nil) {
					errs = multierr.Append(errs, err)
				}
				continue
			}
			var envelope Envelope
			if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
				// unreadable entries are stale by definition
				errs = multierr.Append(errs, s.backend.Del(ctx, fullKey))
				continue
			}
			if s.now().Sub(envelope.Timestamp) > maxAge {
				errs = multierr.Append(errs, s.backend.Del(ctx, fullKey))
			}
		}
	}
	return errs
}

func (s *Store) degrade(ctx context.Context, op, key string, err error) {
	if s.failures != nil {
		s.failures.IncSnapshotFailure(op)
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"op": op, "key": key})
		s.logg.Warn(ctx, "snapshot store degraded: "+err.Error())
	}
}
