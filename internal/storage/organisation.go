package storage

import (
	"context"
	"database/sql"

	"orghub-backend/internal/models"
)

func (s *Storage) CreateOrganisation(ctx context.Context, org *models.Organisation) error {
	query := `
		INSERT INTO organisations (id, name, description, creator_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	return s.db.QueryRowContext(ctx, query, org.ID, org.Name, org.Description, org.CreatorID).
		Scan(&org.CreatedAt)
}

func (s *Storage) GetOrganisation(ctx context.Context, id string) (*models.Organisation, error) {
	query := `
		SELECT id, name, description, creator_id, created_at
		FROM organisations
		WHERE id = $1
	`

	var org models.Organisation
	err := s.db.GetContext(ctx, &org, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, err
	}

	return &org, nil
}

func (s *Storage) OrganisationsCreatedBy(ctx context.Context, userID string) ([]models.Organisation, error) {
	query := `
		SELECT id, name, description, creator_id, created_at
		FROM organisations
		WHERE creator_id = $1
		ORDER BY created_at
	`

	orgs := make([]models.Organisation, 0)
	if err := s.db.SelectContext(ctx, &orgs, query, userID); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (s *Storage) OrganisationsWithMember(ctx context.Context, userID string) ([]models.Organisation, error) {
	query := `
		SELECT o.id, o.name, o.description, o.creator_id, o.created_at
		FROM organisations o
		JOIN organisation_members m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at
	`

	orgs := make([]models.Organisation, 0)
	if err := s.db.SelectContext(ctx, &orgs, query, userID); err != nil {
		return nil, err
	}
	return orgs, nil
}
