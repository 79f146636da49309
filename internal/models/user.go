package models

import "time"

type User struct {
	ID           string    `json:"userId" db:"id"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Phone        string    `json:"phone" db:"phone"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
