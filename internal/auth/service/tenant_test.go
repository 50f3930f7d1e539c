package service_test

import (
	"context"
	"testing"

	"github.com/clubfig/clubfig/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func TestExtractTenantCode(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"acme.clubfig.io", "acme"},
		{"ACME.clubfig.io:8443", "acme"},
		{"acme.localhost", "acme"},
		{"localhost", ""},
		{"localhost:8080", ""},
		{"", ""},
		{".clubfig.io", ""},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			require.Equal(t, tt.want, service.ExtractTenantCode(tt.host))
		})
	}
}

func TestTenantResolve(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := &service.TenantService{Store: h.store}

	tenant, ok, err := svc.Resolve(ctx, "acme.clubfig.io")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, h.tenant, tenant.ID)

	_, ok, err = svc.Resolve(ctx, "unknown.clubfig.io")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = svc.Resolve(ctx, "localhost")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, h.store.Tenants().SetTenantSuspended(ctx, h.other, true))
	_, ok, err = svc.Resolve(ctx, "globex.clubfig.io")
	require.NoError(t, err)
	require.False(t, ok)
}
