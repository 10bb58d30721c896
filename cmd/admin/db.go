package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/indexdb"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/rundir"
)

// dbCmd queries the sqlite index of a run: receipts | audits | snapshots | tuning.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	chainID := fs.String("chain", "procure-1", "chain id")
	runID := fs.String("run", "", "run id (default: latest)")
	dbPath := fs.String("db", "", "sqlite db path (overrides -data/-chain/-run)")
	limit := fs.Int("limit", 20, "result limit")
	sender := fs.String("sender", "", "sender filter (receipts)")
	actor := fs.String("actor", "", "actor filter (audits)")
	target := fs.String("target", "", "target filter (audits)")
	component := fs.String("component", "", "component filter (receipts, audits)")
	failed := fs.Bool("failed", false, "only failed requests (receipts)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		dir, err := rundir.Resolve(*dataDir, *chainID, *runID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		path = rundir.IndexPath(dir)
	}

	r, err := indexdb.OpenReader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer r.Close()
	ctx := context.Background()

	switch q {
	case "receipts":
		rows, err := r.Receipts(ctx, indexdb.ReceiptFilter{Sender: *sender, Component: *component, FailedOnly: *failed, Limit: *limit})
		exitOn(err)
		for _, row := range rows {
			printJSON(row)
		}
	case "audits":
		rows, err := r.Audits(ctx, indexdb.AuditFilter{Actor: *actor, Component: *component, Target: *target, Limit: *limit})
		exitOn(err)
		for _, row := range rows {
			printJSON(row)
		}
	case "snapshots":
		rows, err := r.Snapshots(ctx, *limit)
		exitOn(err)
		for _, row := range rows {
			printJSON(row)
		}
	case "tuning":
		js, err := r.Tuning(ctx)
		exitOn(err)
		fmt.Println(js)
	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (receipts|audits|snapshots|tuning)\n", q)
		os.Exit(2)
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}
