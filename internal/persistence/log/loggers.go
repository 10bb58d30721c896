package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
)

// Options tunes segment rotation.
type Options struct {
	// RotateLayout is the time layout naming a segment; a new segment starts when it changes.
	// Default is hourly.
	RotateLayout string
	// OnClose is called with the path of every segment that was closed.
	OnClose func(path string)
}

const defaultRotateLayout = "2006-01-02-15"

// JSONLZstdWriter appends JSON lines to time-rotated zstd-compressed segments under baseDir.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	opts    Options

	mu     sync.Mutex
	curSeg string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string, opts Options) *JSONLZstdWriter {
	if opts.RotateLayout == "" {
		opts.RotateLayout = defaultRotateLayout
	}
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		opts:    opts,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seg := time.Now().UTC().Format(w.opts.RotateLayout)
	if seg != w.curSeg {
		if err := w.rotateLocked(seg); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(seg string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathFor(seg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSeg = seg
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
		if w.opts.OnClose != nil {
			w.opts.OnClose(w.pathFor(w.curSeg))
		}
	}
	w.w = nil
	w.curSeg = ""
	return err1
}

func (w *JSONLZstdWriter) pathFor(seg string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, seg))
}

// ReceiptLogger writes one JSONL entry per receipt (compressed).
type ReceiptLogger struct{ w *JSONLZstdWriter }

func NewReceiptLogger(chainDir string, opts Options) *ReceiptLogger {
	return &ReceiptLogger{w: NewJSONLZstdWriter(filepath.Join(chainDir, "receipts"), "receipts", opts)}
}

func (l *ReceiptLogger) WriteReceipt(v chain.Receipt) error { return l.w.Write(v) }
func (l *ReceiptLogger) Close() error                       { return l.w.Close() }

// AuditLogger writes audit JSONL entries (compressed).
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(chainDir string, opts Options) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(filepath.Join(chainDir, "audit"), "audit", opts)}
}

func (l *AuditLogger) WriteAudit(v chain.AuditEntry) error { return l.w.Write(v) }
func (l *AuditLogger) Close() error                        { return l.w.Close() }
