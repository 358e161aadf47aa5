// Package storage persists the account pool and the request history.
//
// Every backend stores the pool as one ordered JSON document because the
// persisted order is the rotation order. Partial per-account writes could
// interleave and corrupt that order, so reads and writes always cover the
// whole pool. History is an append-only log bounded at
// models.DefaultHistoryLimit records, newest first on read.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/models"
)

// ErrNotFound reports that a backend holds no account pool document yet.
var ErrNotFound = errors.New("storage: not found")

// Store persists the ordered account pool and the request history log.
type Store interface {
	// LoadAccounts returns the pool in persisted order, or ErrNotFound
	// when the backend has never been written.
	LoadAccounts(ctx context.Context) ([]*models.Account, error)
	// SaveAccounts replaces the whole pool, preserving slice order.
	SaveAccounts(ctx context.Context, accounts []*models.Account) error
	AppendHistory(ctx context.Context, rec *models.HistoryRecord) error
	// ListHistory returns up to limit records, newest first. limit <= 0
	// means everything retained.
	ListHistory(ctx context.Context, limit int) ([]*models.HistoryRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// PathStore is implemented by stores whose account pool lives in a local
// file that can be watched for outside edits. Remote backends do not
// implement it and are never watched.
type PathStore interface {
	AccountsPath() string
}

// Open builds the store selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", "file":
		return NewFileStore(cfg.Other.DataDir)
	case "redis":
		return NewRedisStore(ctx, cfg.Storage.RedisURL)
	case "mongodb", "mongo":
		return NewMongoStore(ctx, cfg.Storage.MongoURI)
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
}

const opTimeout = 5 * time.Second

// withOpTimeout bounds a single backend operation. A caller deadline, when
// present, wins.
func withOpTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, opTimeout)
}
