package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"antigravity2api-go/internal/migrations"
	"antigravity2api-go/internal/models"
)

// PostgresStore keeps the pool in a single jsonb row and history as one row
// per record, pruned past the retention limit. The schema is applied on
// open via the embedded migrations.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := withOpTimeout(ctx)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping postgres: %w", err)
	}
	if err := migrations.PostgresUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) LoadAccounts(ctx context.Context) ([]*models.Account, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var blob []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT accounts FROM account_pool WHERE id = 1`).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: postgres load accounts: %w", err)
	}
	var accounts []*models.Account
	if err := json.Unmarshal(blob, &accounts); err != nil {
		return nil, fmt.Errorf("storage: parse accounts blob: %w", err)
	}
	return accounts, nil
}

func (p *PostgresStore) SaveAccounts(ctx context.Context, accounts []*models.Account) error {
	if accounts == nil {
		accounts = []*models.Account{}
	}
	data, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("storage: encode accounts: %w", err)
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO account_pool (id, accounts, updated_at)
		 VALUES (1, $1, now())
		 ON CONFLICT (id) DO UPDATE SET accounts = EXCLUDED.accounts, updated_at = now()`,
		data)
	if err != nil {
		return fmt.Errorf("storage: postgres save accounts: %w", err)
	}
	return nil
}

func (p *PostgresStore) AppendHistory(ctx context.Context, rec *models.HistoryRecord) error {
	if rec == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: encode history record: %w", err)
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	if _, err := p.db.ExecContext(ctx,
		`INSERT INTO request_history (record) VALUES ($1)`, data); err != nil {
		return fmt.Errorf("storage: postgres append history: %w", err)
	}
	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM request_history
		 WHERE id IN (SELECT id FROM request_history ORDER BY id DESC OFFSET $1)`,
		models.DefaultHistoryLimit); err != nil {
		return fmt.Errorf("storage: postgres prune history: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListHistory(ctx context.Context, limit int) ([]*models.HistoryRecord, error) {
	if limit <= 0 || limit > models.DefaultHistoryLimit {
		limit = models.DefaultHistoryLimit
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := p.db.QueryContext(ctx,
		`SELECT record FROM request_history ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: postgres list history: %w", err)
	}
	defer rows.Close()

	var out []*models.HistoryRecord
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("storage: postgres scan history: %w", err)
		}
		rec := &models.HistoryRecord{}
		if err := json.Unmarshal(blob, rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: postgres history rows: %w", err)
	}
	return out, nil
}

func (p *PostgresStore) Health(ctx context.Context) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
