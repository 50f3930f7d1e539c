package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/clubfig/clubfig/internal/auth/domain"
)

type tenantsRepo struct {
	db dbtx
}

func (r *tenantsRepo) GetTenantByCode(ctx context.Context, code string) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, organization_name, industry, is_active, is_suspended, created_at
		FROM tenants WHERE code = $1 AND is_active`,
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
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tenants (code, organization_name, industry, is_active, is_suspended, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		strings.ToLower(t.Code), t.OrganizationName, t.Industry, t.IsActive, t.IsSuspended, createdAt,
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}

func (r *tenantsRepo) SetTenantSuspended(ctx context.Context, id int64, suspended bool) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE tenants SET is_suspended = $1 WHERE id = $2`, suspended, id))
}

type organizationsRepo struct {
	db dbtx
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, o domain.Organization) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO organizations (tenant_id, name, is_active) VALUES ($1, $2, $3) RETURNING id`,
		o.TenantID, o.Name, o.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}
