package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
)

// Files lists the compressed JSONL files for prefix under dir in chronological order.
// File names embed the UTC hour, so lexical order is time order.
func Files(dir, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadJSONL decodes every line of a zstd JSONL file, calling fn in file order.
// A truncated final line (e.g. from a crash mid-write) ends the file without error.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	r := bufio.NewReaderSize(dec, 256*1024)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			if ferr := fn(line[:len(line)-1]); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ReadReceipts returns every receipt stored under chainDir, ordered by sequence number.
func ReadReceipts(chainDir string) ([]chain.Receipt, error) {
	files, err := Files(filepath.Join(chainDir, "receipts"), "receipts")
	if err != nil {
		return nil, err
	}
	var out []chain.Receipt
	for _, p := range files {
		err := ReadJSONL(p, func(line []byte) error {
			var r chain.Receipt
			if err := json.Unmarshal(line, &r); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(p), err)
			}
			out = append(out, r)
			return nil
		})
		if err != nil {
			return out, err
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// ReadAudits returns every audit entry stored under chainDir in write order.
func ReadAudits(chainDir string) ([]chain.AuditEntry, error) {
	files, err := Files(filepath.Join(chainDir, "audit"), "audit")
	if err != nil {
		return nil, err
	}
	var out []chain.AuditEntry
	for _, p := range files {
		err := ReadJSONL(p, func(line []byte) error {
			var e chain.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(p), err)
			}
			out = append(out, e)
			return nil
		})
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
