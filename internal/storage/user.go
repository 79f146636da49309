package storage

import (
	"context"
	"database/sql"

	"orghub-backend/internal/models"
)

func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, phone, created_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, phone, created_at
		FROM users
		WHERE email = $1
	`

	var user models.User
	if err := s.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// RegisterUser creates the user, their default organisation and the
// self-membership row in a single transaction. A concurrent registration
// with the same email surfaces as ErrEmailTaken; nothing is left behind.
func (s *Storage) RegisterUser(ctx context.Context, user *models.User, org *models.Organisation) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Phone).
		Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO organisations (id, name, description, creator_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, org.ID, org.Name, org.Description, org.CreatorID).
		Scan(&org.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO organisation_members (user_id, org_id)
		VALUES ($1, $2)
	`, user.ID, org.ID)
	if err != nil {
		return err
	}

	return tx.Commit()
}
