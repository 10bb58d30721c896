// Package archive keeps the state a chain had right before each admin reset.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
)

type EpochMeta struct {
	Epoch     uint64 `json:"epoch"`
	ChainID   string `json:"chain_id"`
	EndHeight uint64 `json:"end_height"`
	EndSeq    uint64 `json:"end_seq"`
	Digest    string `json:"digest"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`

	Vendors   int `json:"vendors"`
	Tenders   int `json:"tenders"`
	Bids      int `json:"bids"`
	Contracts int `json:"contracts"`
	Awards    int `json:"awards"`
}

func Dir(runDir string) string {
	return filepath.Join(runDir, "archives")
}

// ArchiveEpochSnapshot copies a pre-reset snapshot into `runDir/archives/epoch_<NNN>/` next to a meta.json.
// Snapshots taken for any other reason are ignored and archived=false is returned.
func ArchiveEpochSnapshot(runDir, snapshotPath string, snap snapshot.SnapshotV1) (dir string, archived bool, err error) {
	if snap.Header.Reason != snapshot.ReasonReset {
		return "", false, nil
	}

	dir = filepath.Join(Dir(runDir), fmt.Sprintf("epoch_%03d", snap.Header.Epoch))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := EpochMeta{
		Epoch:     snap.Header.Epoch,
		ChainID:   snap.Header.ChainID,
		EndHeight: snap.Header.Height,
		EndSeq:    snap.Header.Seq,
		Digest:    snap.Header.Digest,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Vendors:   len(snap.Vendors),
		Tenders:   len(snap.Tenders),
		Bids:      len(snap.Bids),
		Contracts: len(snap.Contracts),
		Awards:    len(snap.Awards),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return "", false, err
	}
	return dir, true, nil
}

// List reads every epoch meta under runDir, oldest epoch first. A run without archives yields nil.
func List(runDir string) ([]EpochMeta, error) {
	ents, err := os.ReadDir(Dir(runDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []EpochMeta
	for _, e := range ents {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "epoch_") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(Dir(runDir), e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var m EpochMeta
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Epoch < out[j].Epoch })
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
