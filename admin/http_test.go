package admin_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kadirpekel/throttlefs/admin"
	"github.com/kadirpekel/throttlefs/hostfs"
	"github.com/kadirpekel/throttlefs/internal/logging"
	"github.com/kadirpekel/throttlefs/registry"
)

func newTestServer() *admin.Server {
	reg := registry.New()
	host := hostfs.New(reg)
	return admin.NewServer(reg, host, logging.Get(), admin.AdminAuth{})
}

func TestHandleSetQuota_ThenEnumerate(t *testing.T) {
	srv := newTestServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, _ := json.Marshal(map[string]any{"backend": "s3", "op": "read", "rate": 10, "mode": "blocking"})

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/v1/quotas", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("PUT /v1/quotas: status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/v1/quotas")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var views []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0]["backend"] != "s3" {
		t.Fatalf("views = %+v", views)
	}
}

func TestHandleSetQuota_RejectsUnknownOp(t *testing.T) {
	srv := newTestServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, _ := json.Marshal(map[string]any{"backend": "s3", "op": "bogus", "rate": 10, "mode": "blocking"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/v1/quotas", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
