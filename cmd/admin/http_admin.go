package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/rundir"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	do(http.MethodGet, adminURL(*baseURL, "state", nil), 5*time.Second)
}

// snapshotCmd asks the server for a snapshot, or inspects snapshot files with -file / -latest.
func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	file := fs.String("file", "", "inspect a snapshot file instead of requesting one")
	latest := fs.Bool("latest", false, "inspect the latest snapshot of a run")
	dataDir := fs.String("data", "./data", "runtime data directory (with -latest)")
	chainID := fs.String("chain", "procure-1", "chain id (with -latest)")
	runID := fs.String("run", "", "run id (with -latest; default: latest run)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*file)
	if *latest {
		dir, err := rundir.Resolve(*dataDir, *chainID, *runID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if path = rundir.LatestSnapshot(dir); path == "" {
			fmt.Fprintln(os.Stderr, "no snapshot found in", dir)
			os.Exit(2)
		}
	}
	if path != "" {
		sum, err := summarize(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		printJSON(sum)
		return
	}
	do(http.MethodPost, adminURL(*baseURL, "snapshot", nil), 10*time.Second)
}

// adminPostCmd drives deploy/reset/advance on a running server.
func adminPostCmd(name string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	component := fs.String("component", "", "component to deploy (deploy)")
	blocks := fs.Uint64("blocks", 1, "blocks to advance (advance)")
	_ = fs.Parse(args)

	q := url.Values{}
	switch name {
	case "deploy":
		if strings.TrimSpace(*component) == "" {
			fmt.Fprintln(os.Stderr, "missing -component")
			os.Exit(2)
		}
		q.Set("component", *component)
	case "advance":
		q.Set("blocks", fmt.Sprint(*blocks))
	}
	do(http.MethodPost, adminURL(*baseURL, name, q), 5*time.Second)
}

func adminURL(base, path string, q url.Values) string {
	u := strings.TrimRight(strings.TrimSpace(base), "/") + "/admin/v1/" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func do(method, u string, timeout time.Duration) {
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(2)
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
