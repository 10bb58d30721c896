// Package rundir lays out the per-run data directories:
// <data>/chains/<chain-id>/<run-id>/{receipts,audit,snapshots,index}.
package rundir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const idLayout = "20060102T150405.000Z"

// NewID names a run after its start time; ids sort chronologically.
func NewID(now time.Time) string {
	return now.UTC().Format(idLayout)
}

func ChainDir(dataDir, chainID string) string {
	return filepath.Join(dataDir, "chains", chainID)
}

func Path(dataDir, chainID, runID string) string {
	return filepath.Join(ChainDir(dataDir, chainID), runID)
}

func IndexPath(runDir string) string {
	return filepath.Join(runDir, "index", "index.sqlite")
}

func SnapshotDir(runDir string) string {
	return filepath.Join(runDir, "snapshots")
}

// Chains lists chain ids that have at least one directory under dataDir.
func Chains(dataDir string) ([]string, error) {
	return dirs(filepath.Join(dataDir, "chains"))
}

// Runs lists the run ids of chainID, oldest first.
func Runs(dataDir, chainID string) ([]string, error) {
	return dirs(ChainDir(dataDir, chainID))
}

// Resolve returns the directory of runID, or of the latest run when runID is empty.
func Resolve(dataDir, chainID, runID string) (string, error) {
	if strings.TrimSpace(chainID) == "" {
		return "", fmt.Errorf("missing chain id")
	}
	if runID = strings.TrimSpace(runID); runID != "" {
		p := Path(dataDir, chainID, runID)
		if st, err := os.Stat(p); err != nil || !st.IsDir() {
			return "", fmt.Errorf("run %s/%s not found", chainID, runID)
		}
		return p, nil
	}
	runs, err := Runs(dataDir, chainID)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs for chain %s", chainID)
	}
	return Path(dataDir, chainID, runs[len(runs)-1]), nil
}

// LatestSnapshot returns the newest snapshot file of a run, by receipt sequence.
func LatestSnapshot(runDir string) string {
	ents, err := os.ReadDir(SnapshotDir(runDir))
	if err != nil {
		return ""
	}
	var (
		best    string
		bestSeq uint64
	)
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		var height, seq uint64
		if _, err := fmt.Sscanf(strings.TrimSuffix(name, ".snap.zst"), "%d-%d", &height, &seq); err != nil {
			continue
		}
		if best == "" || seq > bestSeq {
			best, bestSeq = filepath.Join(SnapshotDir(runDir), name), seq
		}
	}
	return best
}

func dirs(path string) ([]string, error) {
	ents, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
