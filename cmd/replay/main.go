package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/log"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/rundir"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/tuning"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory")
		chainID    = flag.String("chain", "procure-1", "chain id")
		runID      = flag.String("run", "", "run id (default: latest)")
		dir        = flag.String("dir", "", "run directory (overrides -data/-chain/-run)")
		tuningPath = flag.String("tuning", "", "tuning.yaml (default: <run>/tuning.yaml)")
		snapPath   = flag.String("snapshot", "", "also check this snapshot's digest at its seq (optional)")
		fromPath   = flag.String("from_snapshot", "", "start from this snapshot instead of genesis and replay only later receipts (optional)")
		toSeq      = flag.Uint64("to_seq", 0, "stop after this receipt seq (inclusive, optional)")
	)
	flag.Parse()

	runDir := strings.TrimSpace(*dir)
	if runDir == "" {
		d, err := rundir.Resolve(*dataDir, *chainID, *runID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		runDir = d
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(runDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	receipts, err := persistlog.ReadReceipts(runDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read receipts:", err)
		os.Exit(1)
	}

	opts := verifyOptions{ToSeq: *toSeq}
	if opts.Check, err = readOptionalSnapshot(*snapPath); err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if opts.From, err = readOptionalSnapshot(*fromPath); err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	rep, err := verify(tune, receipts, opts)
	fmt.Printf("replay run=%s receipts=%d applied=%d final_height=%d final_digest=%s\n",
		filepath.Base(runDir), len(receipts), rep.Applied, rep.Height, rep.Digest)
	if rep.StartSeq > 0 {
		fmt.Printf("started from snapshot seq=%d\n", rep.StartSeq)
	}
	if rep.SnapshotChecked {
		fmt.Printf("snapshot seq=%d digest ok\n", opts.Check.Header.Seq)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "MISMATCH:", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func readOptionalSnapshot(path string) (*snapshot.SnapshotV1, error) {
	if path = strings.TrimSpace(path); path == "" {
		return nil, nil
	}
	s, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type verifyOptions struct {
	// Check is compared against the replayed digest at its seq.
	Check *snapshot.SnapshotV1
	// From seeds the chain; receipts up to its seq are skipped.
	From  *snapshot.SnapshotV1
	ToSeq uint64
}

type report struct {
	Applied         int
	StartSeq        uint64
	Height          uint64
	Digest          string
	SnapshotChecked bool
}

// verify replays receipts on a fresh or restored chain and checks every recorded outcome and digest.
func verify(tune tuning.Tuning, receipts []chain.Receipt, opts verifyOptions) (report, error) {
	var rep report
	c := chain.New(tune.ChainConfig())
	if opts.From != nil {
		restored, err := chain.Restore(tune.ChainConfig(), *opts.From)
		if err != nil {
			return rep, fmt.Errorf("restore: %w", err)
		}
		c = restored
		rep.StartSeq = opts.From.Header.Seq
	}
	finish := func() report {
		rep.Height = c.Height()
		rep.Digest = c.StateDigest()
		return rep
	}

	snap, toSeq := opts.Check, opts.ToSeq
	want := rep.StartSeq + 1
	for _, r := range receipts {
		if r.Seq <= rep.StartSeq {
			continue
		}
		if toSeq > 0 && r.Seq > toSeq {
			break
		}
		if r.Seq != want {
			return finish(), fmt.Errorf("receipt seq gap: want %d got %d", want, r.Seq)
		}
		want++

		code, err := chain.Apply(c, r)
		if err != nil {
			return finish(), fmt.Errorf("seq %d: %w", r.Seq, err)
		}
		rep.Applied++

		recorded := protocol.OK
		if r.Error != nil {
			recorded = *r.Error
		}
		if code != recorded {
			return finish(), fmt.Errorf("seq %d %s %s.%s: code %d, recorded %d", r.Seq, r.Kind, r.Component, r.Method, code, recorded)
		}
		if got := c.StateDigest(); r.Digest != "" && got != r.Digest {
			return finish(), fmt.Errorf("seq %d height %d: digest %s, recorded %s", r.Seq, c.Height(), got, r.Digest)
		}
		if snap != nil && r.Seq == snap.Header.Seq {
			if got := c.StateDigest(); got != snap.Header.Digest {
				return finish(), fmt.Errorf("snapshot seq %d: digest %s, snapshot has %s", r.Seq, got, snap.Header.Digest)
			}
			rep.SnapshotChecked = true
		}
	}
	if snap != nil && !rep.SnapshotChecked {
		return finish(), fmt.Errorf("snapshot seq %d not reached", snap.Header.Seq)
	}
	return finish(), nil
}
