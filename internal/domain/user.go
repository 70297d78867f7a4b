package domain

import "time"

type User struct {
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	LastLogin    *time.Time
	CreatedAt    time.Time
}
