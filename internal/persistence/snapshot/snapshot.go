package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

// Snapshot reasons.
const (
	ReasonPeriodic  = "periodic"
	ReasonRequested = "requested"
	ReasonReset     = "pre-reset"
)

// Header.Seq is the receipt sequence number the snapshot follows; heights repeat after a reset.
// Epoch counts the resets that happened before the snapshot.
type Header struct {
	Version int    `json:"version"`
	ChainID string `json:"chain_id"`
	Height  uint64 `json:"height"`
	Seq     uint64 `json:"seq"`
	Epoch   uint64 `json:"epoch"`
	Reason  string `json:"reason,omitempty"`
	Digest  string `json:"digest,omitempty"`
}

// SnapshotV1 is a point-in-time export of every registry. The server never loads it at
// startup; replay tooling restores from it to verify the receipts that follow.
type SnapshotV1 struct {
	Header Header `json:"header"`

	GenesisHeight uint64        `json:"genesis_height"`
	Components    []ComponentV1 `json:"components"`

	Vendors     []VendorV1     `json:"vendors"`
	Tenders     []TenderV1     `json:"tenders"`
	Bids        []BidV1        `json:"bids"`
	Contracts   []ContractV1   `json:"contracts"`
	Evaluations []EvaluationV1 `json:"evaluations,omitempty"`
	Awards      []AwardV1      `json:"awards,omitempty"`
}

type ComponentV1 struct {
	Name     string `json:"name"`
	Deployed bool   `json:"deployed"`
	Admin    string `json:"admin"`
}

type VendorV1 struct {
	ID           string `json:"id"`
	Principal    string `json:"principal"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	RegisteredAt uint64 `json:"registration_date"`
	Active       bool   `json:"is_active"`
}

type TenderV1 struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    uint64 `json:"deadline"`
	Active      bool   `json:"is_active"`
	CreatedBy   string `json:"created_by"`
}

type BidV1 struct {
	TenderID     string `json:"tender_id"`
	Bidder       string `json:"bidder"`
	Amount       uint64 `json:"amount"`
	ProposalHash string `json:"proposal_hash"`
	SubmittedAt  uint64 `json:"submission_time"`
	Status       string `json:"status"`
}

type ContractV1 struct {
	ID         string        `json:"id"`
	TenderID   string        `json:"tender_id"`
	Vendor     string        `json:"vendor"`
	Value      uint64        `json:"value"`
	EndHeight  uint64        `json:"end_height"`
	CreatedBy  string        `json:"created_by"`
	Milestones []MilestoneV1 `json:"milestones"`
}

type MilestoneV1 struct {
	Number      uint64 `json:"number"`
	Description string `json:"description"`
	Amount      uint64 `json:"amount"`
	DueHeight   uint64 `json:"due_height"`
	Completed   bool   `json:"completed"`
	CompletedAt uint64 `json:"completed_at,omitempty"`
}

type EvaluationV1 struct {
	TenderID    string `json:"tender_id"`
	Bidder      string `json:"bidder"`
	Score       uint64 `json:"score"`
	EvaluatedBy string `json:"evaluated_by"`
	EvaluatedAt uint64 `json:"evaluated_at"`
}

type AwardV1 struct {
	TenderID  string `json:"tender_id"`
	Winner    string `json:"winner"`
	Amount    uint64 `json:"amount"`
	AwardedAt uint64 `json:"awarded_at"`
}

// Path returns the conventional file name for a snapshot taken at height after receipt seq.
func Path(dir string, height, seq uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d-%d.snap.zst", height, seq))
}

// WriteSnapshot writes to a temporary file and renames it into place, so readers
// never observe a partial snapshot.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeSnapshotFile(tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeSnapshotFile(path string, snap SnapshotV1) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Header line is duplicated inside the gob body.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
