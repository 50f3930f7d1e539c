package domain

import "time"

type Role struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// UserRole links a user to a role. Removed links are kept with RemovedAt set.
type UserRole struct {
	UserID     int64
	RoleID     int64
	AssignedAt time.Time
	RemovedAt  *time.Time
}
