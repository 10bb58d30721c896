package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
)

func TestArchiveEpochSnapshot_CopiesPreResetSnapshot(t *testing.T) {
	runDir := t.TempDir()
	sink := make(chan snapshot.SnapshotV1, 4)

	c := chain.New(chain.Config{})
	c.SetSnapshotSink(sink)
	c.DeployAll()
	c.Execute(protocol.ExecRequest{
		Component: "vendor-registry",
		Method:    "register-vendor",
		Args:      []string{"vendor123", "Acme Corp", "Technology"},
		Sender:    "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG",
	})
	c.Advance(3)
	c.Reset()

	var snap snapshot.SnapshotV1
	select {
	case snap = <-sink:
	default:
		t.Fatalf("reset did not emit a snapshot")
	}
	if snap.Header.Reason != snapshot.ReasonReset || snap.Header.Epoch != 0 || snap.Header.Height != 10003 {
		t.Fatalf("unexpected header: %+v", snap.Header)
	}

	src := snapshot.Path(filepath.Join(runDir, "snapshots"), snap.Header.Height, snap.Header.Seq)
	if err := snapshot.WriteSnapshot(src, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	dir, ok, err := ArchiveEpochSnapshot(runDir, src, snap)
	if err != nil || !ok {
		t.Fatalf("archive ok=%v err=%v", ok, err)
	}
	if filepath.Base(dir) != "epoch_000" {
		t.Fatalf("dir=%s", dir)
	}
	got, err := snapshot.ReadSnapshot(filepath.Join(dir, filepath.Base(src)))
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if got.Header.Digest != snap.Header.Digest || len(got.Vendors) != 1 {
		t.Fatalf("archived snapshot differs: %+v", got.Header)
	}

	metas, err := List(runDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(metas) != 1 || metas[0].Vendors != 1 || metas[0].EndHeight != 10003 {
		t.Fatalf("metas=%+v", metas)
	}

	// The next reset belongs to epoch 1.
	c.Reset()
	if next := <-sink; next.Header.Epoch != 1 {
		t.Fatalf("second reset epoch=%d", next.Header.Epoch)
	}
}

func TestArchiveEpochSnapshot_IgnoresOtherReasons(t *testing.T) {
	runDir := t.TempDir()
	src := filepath.Join(runDir, "x.snap.zst")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	snap := snapshot.SnapshotV1{Header: snapshot.Header{Reason: snapshot.ReasonPeriodic}}
	if _, ok, err := ArchiveEpochSnapshot(runDir, src, snap); ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	metas, err := List(runDir)
	if err != nil || metas != nil {
		t.Fatalf("metas=%v err=%v", metas, err)
	}
}
