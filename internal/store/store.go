// Package store provides the persisted key-value capability used for
// user-scoped state such as scheduled meetings and inbox filter settings.
//
// Keys are slash-separated paths ("scheduledMeetings/<user>/<message>").
// Values are JSON documents. Backends: an in-process map, Firebase Realtime
// Database, Redis and Postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	TypeMemory   = "memory"
	TypeFirebase = "firebase"
	TypeRedis    = "redis"
	TypePostgres = "postgres"
)

// ErrNotFound is returned by Load when the key is absent.
var ErrNotFound = errors.New("store: key not found")

// Store is a namespaced JSON key-value store.
type Store interface {
	// Get decodes the value at key into dst. It reports false when the key is absent.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set writes v at key, replacing any existing value.
	Set(ctx context.Context, key string, v any) error

	// Create writes v at key only if the key is absent. It reports whether
	// the value was written.
	Create(ctx context.Context, key string, v any) (bool, error)

	// Children returns the direct children of prefix keyed by their last
	// path segment.
	Children(ctx context.Context, prefix string) (map[string]json.RawMessage, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Load decodes the value at key into a new T. It returns ErrNotFound when
// the key is absent.
func Load[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T
	ok, err := s.Get(ctx, key, &v)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

var keyReplacer = strings.NewReplacer(".", "_", "#", "_", "$", "_", "[", "_", "]", "_", "/", "_")

// SanitizeKey makes s safe to use as a single path segment by replacing
// '.', '#', '$', '[', ']' and '/' with '_'.
func SanitizeKey(s string) string {
	return keyReplacer.Replace(s)
}

// Key joins path segments with '/'. Empty segments are dropped.
func Key(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}

// Config selects and configures a backend.
type Config struct {
	Type string

	// Firebase
	FirebaseDatabaseURL string
	FirebaseCredentials string

	// Redis
	RedisURL       string
	RedisKeyPrefix string

	// Postgres
	PostgresDSN string
}

// Open builds the backend named by cfg.Type.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return NewMemory(), nil
	case TypeFirebase:
		return NewFirebase(ctx, cfg.FirebaseDatabaseURL, cfg.FirebaseCredentials)
	case TypeRedis:
		return NewRedis(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
	case TypePostgres:
		return NewPostgres(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported store type %q (supported: memory, firebase, redis, postgres)", cfg.Type)
	}
}

// childName returns the direct child segment of key under prefix, or "" if
// key is not a direct child.
func childName(prefix, key string) string {
	p := strings.Trim(prefix, "/") + "/"
	if !strings.HasPrefix(key, p) {
		return ""
	}
	rest := key[len(p):]
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

func isNull(raw []byte) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
