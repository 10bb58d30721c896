package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Reader runs read-only queries against an index written by SQLiteIndex.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

type ReceiptRow struct {
	Seq       uint64 `json:"seq"`
	Height    uint64 `json:"height"`
	Kind      string `json:"kind"`
	Component string `json:"component,omitempty"`
	Method    string `json:"method,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Digest    string `json:"digest"`
}

type ReceiptFilter struct {
	Sender     string
	Component  string
	FailedOnly bool
	Limit      int
}

// Receipts returns matching receipts, newest first.
func (r *Reader) Receipts(ctx context.Context, f ReceiptFilter) ([]ReceiptRow, error) {
	var (
		where []string
		args  []any
	)
	if f.Sender != "" {
		where = append(where, "sender = ?")
		args = append(args, f.Sender)
	}
	if f.Component != "" {
		where = append(where, "component = ?")
		args = append(args, f.Component)
	}
	if f.FailedOnly {
		where = append(where, "success = 0")
	}
	q := `SELECT seq,height,kind,component,method,sender,success,code,digest FROM receipts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limitOr(f.Limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReceiptRow
	for rows.Next() {
		var (
			row     ReceiptRow
			success int
		)
		if err := rows.Scan(&row.Seq, &row.Height, &row.Kind, &row.Component, &row.Method, &row.Sender, &success, &row.Code, &row.Digest); err != nil {
			return nil, err
		}
		row.Success = success != 0
		out = append(out, row)
	}
	return out, rows.Err()
}

type AuditRow struct {
	ID        int64  `json:"id"`
	Height    uint64 `json:"height"`
	Actor     string `json:"actor"`
	Component string `json:"component"`
	Action    string `json:"action"`
	Target    string `json:"target"`
}

type AuditFilter struct {
	Actor     string
	Component string
	Target    string
	Limit     int
}

// Audits returns matching audit rows, newest first.
func (r *Reader) Audits(ctx context.Context, f AuditFilter) ([]AuditRow, error) {
	var (
		where []string
		args  []any
	)
	if f.Actor != "" {
		where = append(where, "actor = ?")
		args = append(args, f.Actor)
	}
	if f.Component != "" {
		where = append(where, "component = ?")
		args = append(args, f.Component)
	}
	if f.Target != "" {
		where = append(where, "target = ?")
		args = append(args, f.Target)
	}
	q := `SELECT id,height,actor,component,action,target FROM audits`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limitOr(f.Limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var row AuditRow
		if err := rows.Scan(&row.ID, &row.Height, &row.Actor, &row.Component, &row.Action, &row.Target); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type SnapshotInfo struct {
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

// Snapshots returns recorded snapshot metadata, newest first.
func (r *Reader) Snapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seq,height,path,digest,vendors,tenders,bids,contracts,awards FROM snapshots ORDER BY seq DESC LIMIT ?`, limitOr(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotInfo
	for rows.Next() {
		var s SnapshotInfo
		if err := rows.Scan(&s.Seq, &s.Height, &s.Path, &s.Digest, &s.Vendors, &s.Tenders, &s.Bids, &s.Contracts, &s.Awards); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Tuning returns the stored runtime configuration JSON, or "" if none was recorded.
func (r *Reader) Tuning(ctx context.Context) (string, error) {
	var js string
	err := r.db.QueryRowContext(ctx, `SELECT json FROM config WHERE name='tuning'`).Scan(&js)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return js, err
}

func limitOr(n int) int {
	if n <= 0 {
		return 20
	}
	return n
}
