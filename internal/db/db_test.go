package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type txState struct {
	commits     int64
	rollbacks   int64
	commitCalls int64
	failCommits int64
	failCode    string

	mu    sync.Mutex
	execs []string
}

func (s *txState) recordExec(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs = append(s.execs, query)
}

type trackingDriver struct {
	state *txState
}

func (d *trackingDriver) Open(name string) (driver.Conn, error) {
	return &trackingConn{state: d.state}, nil
}

type trackingConn struct {
	state *txState
}

func (c *trackingConn) Prepare(query string) (driver.Stmt, error) {
	return &trackingStmt{state: c.state, query: query}, nil
}

func (c *trackingConn) Close() error {
	return nil
}

func (c *trackingConn) Begin() (driver.Tx, error) {
	return &trackingTx{state: c.state}, nil
}

func (c *trackingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return &trackingTx{state: c.state}, nil
}

type trackingTx struct {
	state *txState
}

func (t *trackingTx) Commit() error {
	call := atomic.AddInt64(&t.state.commitCalls, 1)
	if call <= t.state.failCommits {
		return &pq.Error{Code: pq.ErrorCode(t.state.failCode)}
	}
	atomic.AddInt64(&t.state.commits, 1)
	return nil
}

func (t *trackingTx) Rollback() error {
	atomic.AddInt64(&t.state.rollbacks, 1)
	return nil
}

type trackingStmt struct {
	state *txState
	query string
}

func (s *trackingStmt) Close() error {
	return nil
}

func (s *trackingStmt) NumInput() int {
	return -1
}

func (s *trackingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.state.recordExec(s.query)
	return driver.RowsAffected(0), nil
}

func (s *trackingStmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, errors.New("query not supported")
}

var driverCounter uint64

func openTrackingDB(t *testing.T, state *txState) *sqlx.DB {
	t.Helper()
	name := fmt.Sprintf("tracking-%d", atomic.AddUint64(&driverCounter, 1))
	sql.Register(name, &trackingDriver{state: state})
	sqlDB, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlx.NewDb(sqlDB, name)
}

func TestWithTxCommits(t *testing.T) {
	state := &txState{}
	xdb := openTrackingDB(t, state)
	if err := WithTx(context.Background(), xdb, 0, func(*sqlx.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.commits != 1 || state.rollbacks != 0 {
		t.Fatalf("expected commit=1 rollback=0, got %d/%d", state.commits, state.rollbacks)
	}
	if len(state.execs) != 0 {
		t.Fatalf("expected no lock timeout statement, got %v", state.execs)
	}
}

func TestWithTxSetsLockTimeout(t *testing.T) {
	state := &txState{}
	xdb := openTrackingDB(t, state)
	if err := WithTx(context.Background(), xdb, 1500*time.Millisecond, func(*sqlx.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.execs) != 1 || state.execs[0] != "SET LOCAL lock_timeout = '1500ms'" {
		t.Fatalf("unexpected statements: %v", state.execs)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	state := &txState{}
	xdb := openTrackingDB(t, state)
	boom := errors.New("boom")
	err := WithTx(context.Background(), xdb, 0, func(*sqlx.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if state.rollbacks != 1 || state.commits != 0 {
		t.Fatalf("expected rollback=1 commit=0, got %d/%d", state.rollbacks, state.commits)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	state := &txState{}
	xdb := openTrackingDB(t, state)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic to propagate")
		}
		if state.rollbacks != 1 {
			t.Fatalf("expected rollback=1, got %d", state.rollbacks)
		}
	}()
	_ = WithTx(context.Background(), xdb, 0, func(*sqlx.Tx) error { panic("kaboom") })
}

func TestWithTxDoesNotRetryConflicts(t *testing.T) {
	state := &txState{failCommits: 1, failCode: "40P01"}
	xdb := openTrackingDB(t, state)
	calls := 0
	err := WithTx(context.Background(), xdb, 0, func(*sqlx.Tx) error {
		calls++
		return nil
	})
	if err == nil {
		t.Fatalf("expected commit error")
	}
	if !IsLockFailure(err) {
		t.Fatalf("expected lock failure, got %v", err)
	}
	if calls != 1 || state.commitCalls != 1 {
		t.Fatalf("expected a single attempt, got fn=%d commits=%d", calls, state.commitCalls)
	}
}

func TestIsLockFailure(t *testing.T) {
	for _, code := range []string{"55P03", "40P01", "40001"} {
		if !IsLockFailure(fmt.Errorf("wrapped: %w", &pq.Error{Code: pq.ErrorCode(code)})) {
			t.Fatalf("expected %s to be a lock failure", code)
		}
	}
	if IsLockFailure(&pq.Error{Code: "23505"}) {
		t.Fatalf("unique violation is not a lock failure")
	}
	if IsLockFailure(errors.New("plain")) {
		t.Fatalf("plain error is not a lock failure")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Fatalf("expected unique violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "55P03"}) {
		t.Fatalf("unexpected unique violation")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		t.Fatalf("failed to open embedded migrations: %v", err)
	}
	defer source.Close()
	version, err := source.First()
	if err != nil {
		t.Fatalf("failed to read first migration: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected first version 1, got %d", version)
	}
	up, _, err := source.ReadUp(version)
	if err != nil {
		t.Fatalf("failed to read up migration: %v", err)
	}
	_ = up.Close()
}
