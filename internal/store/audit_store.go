package store

import (
	"context"

	"cryptoexchange/internal/models"
)

type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

// Log records an audit row; data must be a JSON document.
func (s *AuditStore) Log(ctx context.Context, tx Execer, userID, action, entityType, entityID, data string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, new_values)
		VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5::jsonb)
	`, userID, action, entityType, entityID, data)
	return err
}

func (s *AuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	var rows []models.AuditLog
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, action, entity_type, entity_id, new_values::text AS new_values, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
