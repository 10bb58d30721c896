package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/archive"
	persistlog "github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/log"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/rundir"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "archives":
			archivesCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "deploy", "reset", "advance":
			adminPostCmd(os.Args[1], os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints chain ids, or the runs of one chain.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	chainID := fs.String("chain", "", "chain id (optional; lists its runs)")
	_ = fs.Parse(args)

	var (
		names []string
		err   error
	)
	if strings.TrimSpace(*chainID) == "" {
		names, err = rundir.Chains(*dataDir)
	} else {
		names, err = rundir.Runs(*dataDir, *chainID)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

// auditCmd prints audit entries straight from the JSONL logs of a run.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	chainID := fs.String("chain", "procure-1", "chain id")
	runID := fs.String("run", "", "run id (default: latest)")
	actor := fs.String("actor", "", "actor filter")
	target := fs.String("target", "", "target filter (tender id, contract id, ...)")
	component := fs.String("component", "", "component filter")
	_ = fs.Parse(args)

	dir, err := rundir.Resolve(*dataDir, *chainID, *runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	entries, err := persistlog.ReadAudits(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	n := 0
	for _, e := range entries {
		if *actor != "" && string(e.Actor) != *actor {
			continue
		}
		if *target != "" && e.Target != *target {
			continue
		}
		if *component != "" && string(e.Component) != *component {
			continue
		}
		printJSON(e)
		n++
	}
	fmt.Fprintf(os.Stderr, "%d of %d entries\n", n, len(entries))
}

type snapshotSummary struct {
	Path          string          `json:"path"`
	Header        snapshot.Header `json:"header"`
	GenesisHeight uint64          `json:"genesis_height"`
	Components    int             `json:"components"`
	Vendors       int             `json:"vendors"`
	Tenders       int             `json:"tenders"`
	Bids          int             `json:"bids"`
	Contracts     int             `json:"contracts"`
	Evaluations   int             `json:"evaluations"`
	Awards        int             `json:"awards"`
}

func summarize(path string) (snapshotSummary, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return snapshotSummary{}, err
	}
	return snapshotSummary{
		Path:          path,
		Header:        snap.Header,
		GenesisHeight: snap.GenesisHeight,
		Components:    len(snap.Components),
		Vendors:       len(snap.Vendors),
		Tenders:       len(snap.Tenders),
		Bids:          len(snap.Bids),
		Contracts:     len(snap.Contracts),
		Evaluations:   len(snap.Evaluations),
		Awards:        len(snap.Awards),
	}, nil
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}

// archivesCmd lists the pre-reset epochs kept for a run.
func archivesCmd(args []string) {
	fs := flag.NewFlagSet("archives", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	chainID := fs.String("chain", "procure-1", "chain id")
	runID := fs.String("run", "", "run id (default: latest)")
	_ = fs.Parse(args)

	dir, err := rundir.Resolve(*dataDir, *chainID, *runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	metas, err := archive.List(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read archives:", err)
		os.Exit(1)
	}
	if metas == nil {
		metas = []archive.EpochMeta{}
	}
	printJSON(metas)
}
