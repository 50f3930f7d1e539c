package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/clubfig/clubfig/internal/auth/domain"
	"github.com/clubfig/clubfig/internal/auth/store"
)

// TenantService maps request hosts to tenants.
type TenantService struct {
	Store store.Store
}

// ExtractTenantCode returns the lowercased first label of host, or "" when
// host has fewer than two labels. "acme.clubfig.io:8443" gives "acme".
func ExtractTenantCode(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 || labels[0] == "" {
		return ""
	}
	return strings.ToLower(labels[0])
}

// Resolve returns the active, unsuspended tenant addressed by host. The bool
// is false when the host names no usable tenant; err is only set on store
// failures.
func (s *TenantService) Resolve(ctx context.Context, host string) (domain.Tenant, bool, error) {
	code := ExtractTenantCode(host)
	if code == "" {
		return domain.Tenant{}, false, nil
	}

	tenant, err := s.Store.Tenants().GetTenantByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Tenant{}, false, nil
		}
		return domain.Tenant{}, false, fmt.Errorf("resolve tenant %q: %w", code, err)
	}
	if tenant.IsSuspended {
		return domain.Tenant{}, false, nil
	}
	return tenant, true, nil
}
