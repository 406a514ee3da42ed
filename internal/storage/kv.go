// Package storage persists the check-in draft and the committed log
// collection over a small key-value abstraction.
//
// Three backends are provided: an in-memory map, a directory with one JSON
// file per key, and an SQLite database. Repository layers the typed
// operations on top of whichever backend is configured.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/fyrsmithlabs/imxin/internal/config"
)

// Keys under which the two persisted values live.
const (
	KeyLogs  = "feelings_logs"
	KeyDraft = "ruler_draft"
)

// ErrInvalidKey is returned for keys outside [a-z0-9_.-].
var ErrInvalidKey = errors.New("invalid storage key")

var keyPattern = regexp.MustCompile(`^[a-z0-9_.-]{1,128}$`)

func checkKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Bucket is a flat key-value namespace. Get reports whether the key exists.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// KV is a Bucket backed by durable (or test) storage.
type KV interface {
	Bucket
	Close() error
}

// Transactional is implemented by backends that can apply several writes
// atomically. fn must only use the Bucket it is given.
type Transactional interface {
	Update(ctx context.Context, fn func(tx Bucket) error) error
}

// Open builds the backend named in cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendFile, config.BackendSQLite:
		path, err := config.ExpandPath(cfg.Path)
		if err != nil {
			return nil, err
		}
		if cfg.Backend == config.BackendFile {
			return OpenFile(path)
		}
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
