package http

import (
	"context"
	"net/http"

	"github.com/clubfig/clubfig/internal/auth/domain"
	"github.com/clubfig/clubfig/pkg/authsdk"
	"github.com/clubfig/clubfig/pkg/httpx"
	"github.com/clubfig/clubfig/pkg/slogx"
)

// TenantResolver maps a request host to a tenant. service.TenantService
// implements it.
type TenantResolver interface {
	Resolve(ctx context.Context, host string) (domain.Tenant, bool, error)
}

type tenantKey struct{}

// TenantFromContext returns the tenant bound by TenantGate.
func TenantFromContext(ctx context.Context) (domain.Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(domain.Tenant)
	return t, ok
}

func withTenant(ctx context.Context, t domain.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// TenantGate resolves the tenant from the Host header for every request.
// An unknown host is not an error here; handlers that need a tenant reject
// the request themselves.
func TenantGate(resolver TenantResolver) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tenant, ok, err := resolver.Resolve(ctx, r.Host)
			if err != nil {
				slogx.FromContext(ctx).Error("tenant resolution failed", "host", r.Host, "error", err)
				authsdk.ErrInternal.WriteError(w)
				return
			}
			if ok {
				ctx = withTenant(ctx, tenant)
				ctx = slogx.With(ctx, "tenant", tenant.Code)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}
