package indexdb

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/tuning"
)

// D1Config configures the remote ingest index. The endpoint accepts POSTed
// {"events":[...]} batches and applies them to a D1 database.
type D1Config struct {
	Endpoint      string
	Token         string
	ChainID       string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	QueueSize     int
	Logger        *log.Logger
}

type D1Index struct {
	cfg        D1Config
	httpClient *http.Client

	ch   chan d1Event
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	flushFail    atomic.Uint64
	queueDropped atomic.Uint64
	sent         atomic.Uint64
}

type D1Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	SentTotal         uint64 `json:"sent_total"`
	FlushFailTotal    uint64 `json:"flush_fail_total"`
	QueueDroppedTotal uint64 `json:"queue_dropped_total"`
}

type d1Event struct {
	Kind    string `json:"kind"`
	ChainID string `json:"chain_id"`
	Payload any    `json:"payload"`
}

type d1ReceiptPayload struct {
	Seq       uint64        `json:"seq"`
	Height    uint64        `json:"height"`
	Kind      string        `json:"kind"`
	Component string        `json:"component,omitempty"`
	Method    string        `json:"method,omitempty"`
	Sender    string        `json:"sender,omitempty"`
	Success   bool          `json:"success"`
	Code      int           `json:"code"`
	Digest    string        `json:"digest"`
	Raw       chain.Receipt `json:"raw"`
}

type d1AuditPayload struct {
	Height    uint64           `json:"height"`
	Actor     string           `json:"actor"`
	Component string           `json:"component"`
	Action    string           `json:"action"`
	Target    string           `json:"target"`
	Raw       chain.AuditEntry `json:"raw"`
}

type d1ConfigPayload struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	JSON      string `json:"json"`
	UpdatedAt string `json:"updated_at"`
}

func OpenD1(cfg D1Config) (*D1Index, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.ChainID = strings.TrimSpace(cfg.ChainID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty d1 ingest endpoint")
	}
	if cfg.ChainID == "" {
		return nil, fmt.Errorf("empty chain id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32768
	}

	d := &D1Index{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		ch:         make(chan d1Event, cfg.QueueSize),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

// Close flushes what is queued (one attempt per pending batch) and stops the sender.
func (d *D1Index) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *D1Index) Stats() D1Stats {
	if d == nil {
		return D1Stats{}
	}
	return D1Stats{
		QueueDepth:        len(d.ch),
		QueueCapacity:     cap(d.ch),
		SentTotal:         d.sent.Load(),
		FlushFailTotal:    d.flushFail.Load(),
		QueueDroppedTotal: d.queueDropped.Load(),
	}
}

func (d *D1Index) WriteReceipt(r chain.Receipt) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	code := 0
	if r.Error != nil {
		code = int(*r.Error)
	}
	d.enqueue(d1Event{Kind: "receipt", ChainID: d.cfg.ChainID, Payload: d1ReceiptPayload{
		Seq:       r.Seq,
		Height:    r.Height,
		Kind:      r.Kind,
		Component: r.Component,
		Method:    r.Method,
		Sender:    string(r.Sender),
		Success:   r.Success,
		Code:      code,
		Digest:    r.Digest,
		Raw:       r,
	}})
	return nil
}

func (d *D1Index) WriteAudit(e chain.AuditEntry) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	d.enqueue(d1Event{Kind: "audit", ChainID: d.cfg.ChainID, Payload: d1AuditPayload{
		Height:    e.Height,
		Actor:     string(e.Actor),
		Component: string(e.Component),
		Action:    e.Action,
		Target:    e.Target,
		Raw:       e,
	}})
	return nil
}

func (d *D1Index) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if d == nil || d.closed.Load() {
		return
	}
	d.enqueue(d1Event{Kind: "snapshot", ChainID: d.cfg.ChainID, Payload: newSnapshotRow(path, snap)})
}

func (d *D1Index) UpsertTuning(tune tuning.Tuning) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	d.enqueue(d1Event{Kind: "config", ChainID: d.cfg.ChainID, Payload: d1ConfigPayload{
		Name:      "tuning",
		Digest:    hex.EncodeToString(sum[:]),
		JSON:      string(b),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}})
	return nil
}

func (d *D1Index) enqueue(ev d1Event) {
	select {
	case d.ch <- ev:
	default:
		d.queueDropped.Add(1)
		d.printf("d1 index queue full; drop kind=%s chain=%s", ev.Kind, ev.ChainID)
	}
}

// loop keeps a failed batch and retries it on the next flush; new events accumulate behind it.
func (d *D1Index) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]d1Event, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			d.flushFail.Add(1)
			d.printf("d1 index flush failed batch=%d err=%v", len(batch), err)
			return
		}
		d.sent.Add(uint64(len(batch)))
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *D1Index) sendBatch(events []d1Event) error {
	body := struct {
		Events []d1Event `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		if d.cfg.Token != "" {
			req.Header.Set("x-procure-index-token", d.cfg.Token)
		}

		resp, err := d.httpClient.Do(req)
		if err == nil {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			err = fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		lastErr = err
		time.Sleep(time.Duration(25*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

func (d *D1Index) printf(format string, args ...any) {
	if d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
