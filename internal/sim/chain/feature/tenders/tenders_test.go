package tenders

import (
	"testing"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

const (
	admin    protocol.Principal = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
	nonAdmin protocol.Principal = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
)

func TestCreate_AdminOnly(t *testing.T) {
	b := New(admin)
	if code := b.Create("tender123", "Office Supplies", "Procurement of office supplies for Q3", 100000, nonAdmin, 10000); code != protocol.CodeUnauthorized {
		t.Fatalf("expected unauthorized (1), got %d", code)
	}
	if _, ok := b.Get("tender123"); ok {
		t.Fatalf("rejected create must leave no record")
	}
	if code := b.Create("tender123", "Office Supplies", "Procurement of office supplies for Q3", 100000, admin, 10000); code != protocol.OK {
		t.Fatalf("admin create: code=%d", code)
	}
	got, _ := b.Get("tender123")
	want := Tender{
		Title:       "Office Supplies",
		Description: "Procurement of office supplies for Q3",
		Deadline:    100000,
		Active:      true,
		CreatedBy:   admin,
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestCreate_DuplicateAndDeadline(t *testing.T) {
	b := New(admin)
	_ = b.Create("t1", "A", "a", 200, admin, 100)
	if code := b.Create("t1", "B", "b", 300, admin, 100); code != protocol.CodeDuplicateID {
		t.Fatalf("expected duplicate (2), got %d", code)
	}
	if got, _ := b.Get("t1"); got.Title != "A" || got.Deadline != 200 {
		t.Fatalf("duplicate create changed first record: %+v", got)
	}
	if code := b.Create("t2", "B", "b", 100, admin, 100); code != protocol.CodeDeadlineInPast {
		t.Fatalf("expected deadline-in-past for deadline == height, got %d", code)
	}
	if code := b.Create("t3", "B", "b", 99, admin, 100); code != protocol.CodeDeadlineInPast {
		t.Fatalf("expected deadline-in-past, got %d", code)
	}
	// Authorization is checked before uniqueness.
	if code := b.Create("t1", "B", "b", 300, nonAdmin, 100); code != protocol.CodeUnauthorized {
		t.Fatalf("expected unauthorized first, got %d", code)
	}
}

func TestClose_OneWay(t *testing.T) {
	b := New(admin)
	_ = b.Create("t1", "A", "a", 200, admin, 100)
	if !b.IsActive("t1") {
		t.Fatalf("expected active tender")
	}
	if code := b.Close("t1"); code != protocol.OK {
		t.Fatalf("close: %d", code)
	}
	if b.IsActive("t1") {
		t.Fatalf("expected closed")
	}
	if code := b.Close("t1"); code != protocol.CodeTenderInactive {
		t.Fatalf("expected inactive on second close, got %d", code)
	}
	if code := b.Close("nope"); code != protocol.CodeTenderNotFound {
		t.Fatalf("expected not found, got %d", code)
	}
	if d, ok := b.Deadline("t1"); !ok || d != 200 {
		t.Fatalf("deadline accessor: %d %v", d, ok)
	}
}
