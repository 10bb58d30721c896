package main

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
)

func TestAdminURL(t *testing.T) {
	q := url.Values{}
	q.Set("component", "bid-ledger")
	if got := adminURL(" http://127.0.0.1:8080/ ", "deploy", q); got != "http://127.0.0.1:8080/admin/v1/deploy?component=bid-ledger" {
		t.Fatalf("adminURL=%s", got)
	}
	if got := adminURL("http://h", "reset", nil); got != "http://h/admin/v1/reset" {
		t.Fatalf("adminURL=%s", got)
	}
}

func TestSummarize(t *testing.T) {
	c := chain.New(chain.Config{})
	c.DeployAll()
	resp := c.Execute(protocol.ExecRequest{
		Component: "tender-board",
		Method:    "create-tender",
		Args:      []string{"tender123", "Bridge", "Repair", "10020"},
		Sender:    chain.DefaultAdmin,
	})
	if !resp.Success {
		t.Fatalf("create-tender code=%d", resp.Code())
	}
	snap := c.ExportSnapshot()
	path := snapshot.Path(t.TempDir(), snap.Header.Height, snap.Header.Seq)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	sum, err := summarize(path)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Tenders != 1 || sum.Components != len(protocol.Components) || sum.Header.Height != 10000 {
		t.Fatalf("summary=%+v", sum)
	}
	if _, err := summarize(filepath.Join(t.TempDir(), "missing.snap.zst")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
