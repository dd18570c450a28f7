package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSessionStoreCreate(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO sessions") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 5 || args[0] != "user-1" || args[1] != "tok" || args[2] != "10.0.0.1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewSessionStore(stubDB{})
	err := store.Create(context.Background(), execer, SessionInput{
		UserID: "user-1", Token: "tok", IPAddress: "10.0.0.1", UserAgent: "curl", ExpiresAt: expires,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSessionStoreIsActive(t *testing.T) {
	store := NewSessionStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "expires_at > NOW()") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != "user-1" || args[1] != "tok" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*bool) = true
			return nil
		},
	})
	active, err := store.IsActive(context.Background(), "user-1", "tok")
	if err != nil || !active {
		t.Fatalf("expected active session, got %v %v", active, err)
	}
}

func TestSessionStoreIsActiveError(t *testing.T) {
	store := NewSessionStore(stubDB{
		getFn: func(context.Context, any, string, ...any) error {
			return errors.New("db down")
		},
	})
	if _, err := store.IsActive(context.Background(), "user-1", "tok"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSessionStoreExpire(t *testing.T) {
	store := NewSessionStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET expires_at = NOW()") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 1}, nil
		},
	})
	rows, err := store.Expire(context.Background(), "user-1", "tok")
	if err != nil || rows != 1 {
		t.Fatalf("unexpected result: %d %v", rows, err)
	}
}
