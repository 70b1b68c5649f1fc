package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/throttlefs/admin"
	"github.com/kadirpekel/throttlefs/hostfs"
	"github.com/kadirpekel/throttlefs/internal/logging"
	"github.com/kadirpekel/throttlefs/registry"
)

func newTestAdminServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	host := hostfs.New(reg)
	srv := admin.NewServer(reg, host, logging.Get(), admin.AdminAuth{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, reg
}

func TestQuotaSetCmd_RoundTrip(t *testing.T) {
	ts, reg := newTestAdminServer(t)
	cli := &CLI{Server: ts.URL}

	set := &QuotaSetCmd{Backend: "s3", Op: "read", Rate: 10, Burst: 5, Mode: "blocking"}
	require.NoError(t, set.Run(cli))

	views := reg.Enumerate()
	require.Len(t, views, 1)
	assert.Equal(t, "s3", views[0].Backend)
	assert.Equal(t, float64(10), views[0].Rate)
	assert.Equal(t, int64(5), views[0].Burst)
}

func TestQuotaClearCmd_RemovesEntry(t *testing.T) {
	ts, reg := newTestAdminServer(t)
	cli := &CLI{Server: ts.URL}

	require.NoError(t, (&QuotaSetCmd{Backend: "s3", Op: "read", Rate: 10, Mode: "blocking"}).Run(cli))
	require.Len(t, reg.Enumerate(), 1)

	require.NoError(t, (&QuotaClearCmd{Backend: "s3"}).Run(cli))
	assert.Empty(t, reg.Enumerate())
}

func TestListBackendsCmd_ReflectsHost(t *testing.T) {
	ts, _ := newTestAdminServer(t)
	cli := &CLI{Server: ts.URL}

	require.NoError(t, (&ListBackendsCmd{}).Run(cli))
}

func TestAdminRequest_PropagatesErrorBody(t *testing.T) {
	ts, _ := newTestAdminServer(t)
	cli := &CLI{Server: ts.URL}

	err := adminRequest(cli, http.MethodPut, "/v1/quotas", map[string]any{"backend": "s3", "op": "not-a-real-op", "rate": 1, "mode": "blocking"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
