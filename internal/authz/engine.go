// Package authz decides which organisation and user records an authenticated
// identity may see. Two independent conditions grant organisation access:
// being the organisation's creator and holding a membership row. Creating an
// organisation does not imply membership, and membership never confers
// creator rights.
package authz

import (
	"context"

	"orghub-backend/internal/models"
)

// Store is the membership lookup surface the engine needs. *storage.Storage
// satisfies it.
type Store interface {
	IsMember(ctx context.Context, userID, orgID string) (bool, error)
	HasCreatedOrgWithMember(ctx context.Context, creatorID, memberID string) (bool, error)
	OrganisationsCreatedBy(ctx context.Context, userID string) ([]models.Organisation, error)
	OrganisationsWithMember(ctx context.Context, userID string) ([]models.Organisation, error)
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// CanViewOrganisation grants access when userID created the organisation or
// is one of its members.
func (e *Engine) CanViewOrganisation(ctx context.Context, userID string, org *models.Organisation) (bool, error) {
	if org.CreatorID == userID {
		return true, nil
	}
	return e.store.IsMember(ctx, userID, org.ID)
}

// CanManageMembers grants the right to add members to an organisation.
// Restricted to the creator.
func (e *Engine) CanManageMembers(_ context.Context, userID string, org *models.Organisation) (bool, error) {
	return org.CreatorID == userID, nil
}

// CanViewUser grants access to a user record for self-lookups, and to anyone
// who created an organisation the target user belongs to.
func (e *Engine) CanViewUser(ctx context.Context, requesterID, targetID string) (bool, error) {
	if requesterID == targetID {
		return true, nil
	}
	return e.store.HasCreatedOrgWithMember(ctx, requesterID, targetID)
}

// VisibleOrganisations returns the union of the organisations userID created
// and the ones they are a member of, de-duplicated by organisation id. The
// first-seen copy wins, which is immaterial since an organisation has a
// single record.
func (e *Engine) VisibleOrganisations(ctx context.Context, userID string) ([]models.Organisation, error) {
	created, err := e.store.OrganisationsCreatedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	member, err := e.store.OrganisationsWithMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(created)+len(member))
	visible := make([]models.Organisation, 0, len(created)+len(member))
	for _, org := range append(created, member...) {
		if _, ok := seen[org.ID]; ok {
			continue
		}
		seen[org.ID] = struct{}{}
		visible = append(visible, org)
	}

	return visible, nil
}
