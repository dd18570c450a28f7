package store

import (
	"context"
	"time"
)

type SessionStore struct {
	db DB
}

func NewSessionStore(db DB) *SessionStore {
	return &SessionStore{db: db}
}

type SessionInput struct {
	UserID    string
	Token     string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
}

func (s *SessionStore) Create(ctx context.Context, tx Execer, input SessionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, input.UserID, input.Token, input.IPAddress, input.UserAgent, input.ExpiresAt)
	return err
}

func (s *SessionStore) IsActive(ctx context.Context, userID, token string) (bool, error) {
	var active bool
	err := s.db.GetContext(ctx, &active, `
		SELECT EXISTS(
			SELECT 1
			FROM sessions
			WHERE user_id = $1 AND token = $2 AND expires_at > NOW()
		)
	`, userID, token)
	return active, err
}

// Expire ends a session immediately and reports how many rows it touched.
func (s *SessionStore) Expire(ctx context.Context, userID, token string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET expires_at = NOW()
		WHERE user_id = $1 AND token = $2 AND expires_at > NOW()
	`, userID, token)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
