package models

import "time"

type Organisation struct {
	ID          string    `json:"orgId" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatorID   string    `json:"creatorId" db:"creator_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
