package storage

import (
	"context"

	"orghub-backend/internal/models"
)

// AddMember inserts a membership row. Adding a user who is already a member
// is a no-op; the (user, organisation) pair is unique.
func (s *Storage) AddMember(ctx context.Context, m models.Membership) error {
	query := `
		INSERT INTO organisation_members (user_id, org_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, org_id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query, m.UserID, m.OrgID)
	return err
}

func (s *Storage) IsMember(ctx context.Context, userID, orgID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM organisation_members
			WHERE user_id = $1 AND org_id = $2
		)
	`

	var exists bool
	if err := s.db.GetContext(ctx, &exists, query, userID, orgID); err != nil {
		return false, err
	}
	return exists, nil
}

// HasCreatedOrgWithMember reports whether memberID belongs to any
// organisation created by creatorID.
func (s *Storage) HasCreatedOrgWithMember(ctx context.Context, creatorID, memberID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM organisations o
			JOIN organisation_members m ON m.org_id = o.id
			WHERE o.creator_id = $1 AND m.user_id = $2
		)
	`

	var exists bool
	if err := s.db.GetContext(ctx, &exists, query, creatorID, memberID); err != nil {
		return false, err
	}
	return exists, nil
}
