package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
)

func newTestServer(t *testing.T, enableAdmin bool) *httptest.Server {
	t.Helper()
	c := chain.New(chain.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	mux := http.NewServeMux()
	NewServer(c, Options{
		EnableAdmin:  enableAdmin,
		Validator:    v,
		ExtraMetrics: func(w io.Writer) { _, _ = io.WriteString(w, "procure_index_queue_depth 0\n") },
	}).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func TestExecThroughAdminDeploy(t *testing.T) {
	srv := newTestServer(t, true)

	exec := `{"component":"vendor-registration","method":"register-vendor","args":["v1","Acme","construction"],"sender":"ST2VENDOR","id":"a"}`
	_, b := post(t, srv.URL+"/v1/exec", exec)
	var res protocol.ResultMsg
	if err := json.Unmarshal(b, &res); err != nil {
		t.Fatalf("decode: %v (%s)", err, b)
	}
	if res.Error == nil || *res.Error != protocol.CodeNotDeployed {
		t.Fatalf("expected NotDeployed before deploy, got %s", b)
	}

	resp, b := post(t, srv.URL+"/admin/v1/deploy?component=vendor-registry", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deploy status=%d body=%s", resp.StatusCode, b)
	}
	resp, _ = post(t, srv.URL+"/admin/v1/deploy?component=nope", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown component deploy status=%d", resp.StatusCode)
	}

	_, b = post(t, srv.URL+"/v1/exec", exec)
	res = protocol.ResultMsg{}
	_ = json.Unmarshal(b, &res)
	if !res.Success || res.ID != "a" || res.Height != chain.DefaultGenesisHeight {
		t.Fatalf("register result=%s", b)
	}

	_, b = post(t, srv.URL+"/v1/exec", `{"component":"vendor-registry","method":"get-vendor","args":["v1"]}`)
	res = protocol.ResultMsg{}
	_ = json.Unmarshal(b, &res)
	if res.Error == nil || *res.Error != protocol.CodeInvalidArgument {
		t.Fatalf("missing sender should be InvalidArgument, got %s", b)
	}

	_, b = post(t, srv.URL+"/v1/exec", `not json`)
	res = protocol.ResultMsg{}
	_ = json.Unmarshal(b, &res)
	if res.Error == nil || *res.Error != protocol.CodeInvalidArgument {
		t.Fatalf("garbage body should be InvalidArgument, got %s", b)
	}
}

func TestAdminAdvanceResetAndHeight(t *testing.T) {
	srv := newTestServer(t, true)

	resp, b := post(t, srv.URL+"/admin/v1/advance?blocks=7", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), `"height":10007`) {
		t.Fatalf("advance status=%d body=%s", resp.StatusCode, b)
	}
	resp, _ = post(t, srv.URL+"/admin/v1/advance?blocks=x", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad blocks status=%d", resp.StatusCode)
	}

	hr, err := http.Get(srv.URL + "/v1/height")
	if err != nil {
		t.Fatalf("height: %v", err)
	}
	var h struct {
		Height uint64 `json:"height"`
	}
	_ = json.NewDecoder(hr.Body).Decode(&h)
	hr.Body.Close()
	if h.Height != 10007 {
		t.Fatalf("height=%d", h.Height)
	}

	resp, b = post(t, srv.URL+"/admin/v1/reset", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), `"height":10000`) {
		t.Fatalf("reset status=%d body=%s", resp.StatusCode, b)
	}

	// No snapshot sink configured.
	resp, _ = post(t, srv.URL+"/admin/v1/snapshot", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("snapshot status=%d", resp.StatusCode)
	}

	gr, err := http.Get(srv.URL + "/admin/v1/reset")
	if err != nil {
		t.Fatalf("GET reset: %v", err)
	}
	gr.Body.Close()
	if gr.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET reset status=%d", gr.StatusCode)
	}
}

func TestAdminAdvanceRejectsHeightOverflow(t *testing.T) {
	srv := newTestServer(t, true)

	resp, b := post(t, srv.URL+"/admin/v1/advance?blocks=18446744073709551615", "")
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(b), "height overflow") {
		t.Fatalf("overflow advance status=%d body=%s", resp.StatusCode, b)
	}
	if !strings.Contains(string(b), `"height":10000`) {
		t.Fatalf("overflow advance should report the unchanged height, got %s", b)
	}
}

func TestAdminDeployLegacyBidSubmission(t *testing.T) {
	srv := newTestServer(t, true)

	resp, b := post(t, srv.URL+"/admin/v1/deploy?component=bid-submission", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deploy status=%d body=%s", resp.StatusCode, b)
	}
	for _, body := range []string{
		`{"component":"bid-submission","method":"create-tender","args":["t1","Road","Repair","10100"],"sender":"ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"}`,
		`{"component":"bid-submission","method":"submit-bid","args":["t1","500","0xabc"],"sender":"ST2VENDOR"}`,
	} {
		_, b := post(t, srv.URL+"/v1/exec", body)
		var res protocol.ResultMsg
		if err := json.Unmarshal(b, &res); err != nil || !res.Success {
			t.Fatalf("exec %s: %s", body, b)
		}
	}
}

func TestAdminDisabled(t *testing.T) {
	srv := newTestServer(t, false)
	resp, _ := post(t, srv.URL+"/admin/v1/reset", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestMetricsExposition(t *testing.T) {
	srv := newTestServer(t, true)
	post(t, srv.URL+"/v1/exec", `{"component":"tender-board","method":"get-tender","args":["t"],"sender":"ST2X"}`)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	body := string(b)
	for _, want := range []string{
		`procure_chain_height{chain="procure-1"} 10000`,
		`procure_requests_total{chain="procure-1"} 1`,
		`procure_request_failures_total{chain="procure-1",component="tender-board",code="102"} 1`,
		`procure_component_deployed{chain="procure-1",component="vendor-registry"} 0`,
		"procure_index_queue_depth 0",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:80":    false,
		"garbage":        false,
	} {
		if got := IsLoopbackRemote(addr); got != want {
			t.Fatalf("IsLoopbackRemote(%q)=%v want %v", addr, got, want)
		}
	}
}
