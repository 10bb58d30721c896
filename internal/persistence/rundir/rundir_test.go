package rundir

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolve_PicksLatestRun(t *testing.T) {
	data := t.TempDir()
	early := NewID(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	late := NewID(time.Date(2026, 3, 1, 9, 0, 1, 0, time.UTC))
	for _, id := range []string{late, early} {
		if err := os.MkdirAll(Path(data, "procure-1", id), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Resolve(data, "procure-1", "")
	if err != nil || got != Path(data, "procure-1", late) {
		t.Fatalf("Resolve latest=%s err=%v", got, err)
	}
	got, err = Resolve(data, "procure-1", early)
	if err != nil || got != Path(data, "procure-1", early) {
		t.Fatalf("Resolve explicit=%s err=%v", got, err)
	}
	if _, err := Resolve(data, "procure-1", "missing"); err == nil {
		t.Fatalf("expected error for missing run")
	}
	if _, err := Resolve(data, "other", ""); err == nil {
		t.Fatalf("expected error for chain without runs")
	}

	chains, err := Chains(data)
	if err != nil || len(chains) != 1 || chains[0] != "procure-1" {
		t.Fatalf("Chains=%v err=%v", chains, err)
	}
}

func TestLatestSnapshot_OrdersBySeq(t *testing.T) {
	run := t.TempDir()
	dir := SnapshotDir(run)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Height goes back to genesis after a reset; seq keeps growing.
	for _, name := range []string{"10050-9.snap.zst", "10000-14.snap.zst", "junk.snap.zst", "10001-3.snap.zst.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := LatestSnapshot(run); filepath.Base(got) != "10000-14.snap.zst" {
		t.Fatalf("LatestSnapshot=%s", got)
	}
	if got := LatestSnapshot(t.TempDir()); got != "" {
		t.Fatalf("empty run LatestSnapshot=%s", got)
	}
}
