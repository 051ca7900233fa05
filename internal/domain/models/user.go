package models

import "time"

// User is a registered customer. Admins additionally manage the catalog.
type User struct {
	ID        int64
	Email     string
	PassHash  []byte
	IsAdmin   bool
	CreatedAt time.Time
}
