package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/tuning"
)

// SQLiteIndex is a queryable read-model of receipts, audits and snapshots.
// Writes are queued and applied by one goroutine; the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropReceipt  atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqReceipt reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	receipt  chain.Receipt
	audit    chain.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Seq       uint64 `json:"seq"`
	Height    uint64 `json:"height"`
	Path      string `json:"path"`
	Digest    string `json:"digest"`
	Vendors   int    `json:"vendors"`
	Tenders   int    `json:"tenders"`
	Bids      int    `json:"bids"`
	Contracts int    `json:"contracts"`
	Awards    int    `json:"awards"`
}

func newSnapshotRow(path string, snap snapshot.SnapshotV1) snapshotRow {
	return snapshotRow{
		Seq:       snap.Header.Seq,
		Height:    snap.Header.Height,
		Path:      path,
		Digest:    snap.Header.Digest,
		Vendors:   len(snap.Vendors),
		Tenders:   len(snap.Tenders),
		Bids:      len(snap.Bids),
		Contracts: len(snap.Contracts),
		Awards:    len(snap.Awards),
	}
}

// Stats reports queue pressure for /metrics.
type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropReceiptTotal  uint64 `json:"drop_receipt_total"`
	DropAuditTotal    uint64 `json:"drop_audit_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only workload; NORMAL durability is enough for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS config (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS receipts (
			seq INTEGER PRIMARY KEY,
			height INTEGER NOT NULL,
			kind TEXT NOT NULL,
			component TEXT NOT NULL,
			method TEXT NOT NULL,
			sender TEXT NOT NULL,
			success INTEGER NOT NULL,
			code INTEGER NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_sender_height ON receipts(sender, height);`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_component_code ON receipts(component, code);`,
		`CREATE TABLE IF NOT EXISTS audits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			height INTEGER NOT NULL,
			actor TEXT NOT NULL,
			component TEXT NOT NULL,
			action TEXT NOT NULL,
			target TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_height ON audits(actor, height);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_target ON audits(component, target);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			seq INTEGER PRIMARY KEY,
			height INTEGER NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			vendors INTEGER NOT NULL,
			tenders INTEGER NOT NULL,
			bids INTEGER NOT NULL,
			contracts INTEGER NOT NULL,
			awards INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropReceiptTotal:  s.dropReceipt.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteReceipt(entry chain.Receipt) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqReceipt, receipt: entry}:
	default:
		// Drop if the indexer falls behind.
		s.dropReceipt.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry chain.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: newSnapshotRow(path, snap)}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertTuning stores the effective runtime configuration.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO config(name,digest,json,updated_at) VALUES(?,?,?,?)`,
		"tuning", hex.EncodeToString(sum[:]), string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertReceipt, _ := s.db.Prepare(`INSERT OR REPLACE INTO receipts(seq,height,kind,component,method,sender,success,code,digest,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(height,actor,component,action,target,raw_json) VALUES(?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(seq,height,path,digest,vendors,tenders,bids,contracts,awards) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertReceipt, insertAudit, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqReceipt:
			rc := r.receipt
			raw, _ := json.Marshal(rc)
			code := 0
			if rc.Error != nil {
				code = int(*rc.Error)
			}
			exec(insertReceipt,
				int64(rc.Seq),
				int64(rc.Height),
				rc.Kind,
				rc.Component,
				rc.Method,
				string(rc.Sender),
				boolInt(rc.Success),
				code,
				rc.Digest,
				string(raw),
			)

		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			exec(insertAudit,
				int64(a.Height),
				string(a.Actor),
				string(a.Component),
				a.Action,
				a.Target,
				string(raw),
			)

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot,
				int64(sn.Seq),
				int64(sn.Height),
				sn.Path,
				sn.Digest,
				sn.Vendors,
				sn.Tenders,
				sn.Bids,
				sn.Contracts,
				sn.Awards,
			)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
