package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
)

type tenantsRepo struct {
	db dbtx
}

const tenantColumns = `id, code, organization_name, industry, is_active, is_suspended, created_at`

func (r *tenantsRepo) GetTenantByCode(ctx context.Context, code string) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE code = ? AND is_active = 1`,
		strings.ToLower(code),
	).Scan(&t.ID, &t.Code, &t.OrganizationName, &t.Industry, &t.IsActive, &t.IsSuspended, &t.CreatedAt)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) (int64, error) {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tenants (code, organization_name, industry, is_active, is_suspended, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		strings.ToLower(t.Code), t.OrganizationName, t.Industry, t.IsActive, t.IsSuspended, ts(createdAt),
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}

func (r *tenantsRepo) SetTenantSuspended(ctx context.Context, id int64, suspended bool) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE tenants SET is_suspended = ? WHERE id = ?`, suspended, id))
}

type organizationsRepo struct {
	db dbtx
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, o domain.Organization) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO organizations (tenant_id, name, is_active, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		o.TenantID, o.Name, o.IsActive, ts(time.Now()),
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}
