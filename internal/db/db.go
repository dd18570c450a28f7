package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

type SQLXTxRunner struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

func NewTxRunner(db *sqlx.DB, lockTimeout time.Duration) SQLXTxRunner {
	return SQLXTxRunner{db: db, lockTimeout: lockTimeout}
}

func (r SQLXTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return WithTx(ctx, r.db, r.lockTimeout, fn)
}

func Connect(databaseURL string, poolSize int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	idle := poolSize / 4
	if idle < 2 {
		idle = 2
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetMaxIdleConns(idle)
	db.SetMaxOpenConns(poolSize)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// WithTx runs fn inside a single READ COMMITTED transaction. Row locks taken
// by fn wait at most lockTimeout; the attempt is never retried.
func WithTx(ctx context.Context, db *sqlx.DB, lockTimeout time.Duration, fn func(*sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if lockTimeout > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// IsLockFailure reports whether err came from a lock wait that gave up:
// lock_timeout expiry, a detected deadlock or a serialization conflict.
func IsLockFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "55P03", "40P01", "40001":
		return true
	}
	return false
}

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
