package domain

import "time"

// Tenant is addressed by Code, the first label of the request host.
type Tenant struct {
	ID               int64
	Code             string // lowercase, unique
	OrganizationName string
	Industry         string
	IsActive         bool
	IsSuspended      bool
	CreatedAt        time.Time
}

type Organization struct {
	ID       int64
	TenantID int64
	Name     string
	IsActive bool
}
