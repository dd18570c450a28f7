package store

import (
	"context"

	"cryptoexchange/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

type UserInput struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
}

type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at`

func (s *UserStore) Create(ctx context.Context, tx Execer, input UserInput) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query, input.ID, input.Email, input.PasswordHash, input.FirstName, input.LastName, input.Role)
	return err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

// EmailTaken reports whether another user than excludeID already owns email.
func (s *UserStore) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	var taken bool
	err := s.db.GetContext(ctx, &taken, `
		SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id::text <> $2)
	`, email, excludeID)
	return taken, err
}

func (s *UserStore) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		UPDATE users
		SET first_name = COALESCE($1, first_name),
		    last_name = COALESCE($2, last_name),
		    email = COALESCE($3, email),
		    updated_at = NOW()
		WHERE id = $4
		RETURNING `+userColumns, update.FirstName, update.LastName, update.Email, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) HasAnyAdmin(ctx context.Context, q Getter) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE role = $1)`, models.RoleAdmin)
	return exists, err
}
