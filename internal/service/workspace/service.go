// Package workspace is the injected store behind every desk section: entities,
// banking, portals, GOSI, insurance, vendors, documents and reminders.
package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bizdesk/internal/models"
)

var (
	ErrFolderExists  = errors.New("folder already exists")
	ErrUnknownSecret = errors.New("unknown secret field")
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Service wraps storage access for the desk.
type Service struct {
	db     *sql.DB
	cipher *secretCipher
	now    func() time.Time
	logger *slog.Logger
}

// NewService builds a workspace over db. Secrets are sealed with a key derived
// from secretKey; an empty secretKey gets a random per-process key.
func NewService(db *sql.DB, secretKey string) (*Service, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	logger := slog.Default().With("component", "workspace")
	if secretKey == "" {
		logger.Warn("no secret key configured, using an ephemeral key; stored secrets will not survive a restart")
	}
	c, err := newSecretCipher(secretKey)
	if err != nil {
		return nil, err
	}
	return &Service{db: db, cipher: c, now: time.Now, logger: logger}, nil
}

// SetClock overrides the clock used for derived statuses and new records.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) today() string {
	return s.now().Format(models.DateLayout)
}

// withTx runs fn in a transaction and commits when fn returns nil.
func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// nextSeq returns the next ordering key for table. table is never user input.
func nextSeq(ctx context.Context, q querier, table string) (int64, error) {
	var seq int64
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM `+table).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next %s seq: %w", table, err)
	}
	return seq + 1, nil
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
