package models

import "time"

// Membership links a user to an organisation. Membership is independent of
// creator status: creating an organisation does not insert a row here.
type Membership struct {
	UserID    string    `json:"userId" db:"user_id"`
	OrgID     string    `json:"orgId" db:"org_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
