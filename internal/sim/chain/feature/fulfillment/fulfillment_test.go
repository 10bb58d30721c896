package fulfillment

import (
	"testing"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

const (
	admin  protocol.Principal = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
	vendor protocol.Principal = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
	other  protocol.Principal = "ST3AM1A56AK2C1XAFJ4115ZSV26EB49BVQ10MGCS0"
)

type awardSet map[string]protocol.Principal

func (a awardSet) Awarded(tenderID string, v protocol.Principal) bool {
	w, ok := a[tenderID]
	return ok && w == v
}

func TestContractLifecycle(t *testing.T) {
	tr := New(admin, nil)
	if code := tr.Create("contract123", "tender123", vendor, 50000, 20000, admin); code != protocol.OK {
		t.Fatalf("create: code=%d", code)
	}
	c, ok := tr.Get("contract123")
	if !ok {
		t.Fatalf("contract missing")
	}
	if c.TenderID != "tender123" || c.Vendor != vendor || c.Value != 50000 || c.EndHeight != 20000 || c.CreatedBy != admin {
		t.Fatalf("unexpected contract: %+v", c)
	}
	if len(c.Milestones) != 0 {
		t.Fatalf("expected no milestones, got %d", len(c.Milestones))
	}

	if code := tr.AddMilestone("contract123", 1, "Initial delivery", 25000, 15000, admin); code != protocol.OK {
		t.Fatalf("add milestone: code=%d", code)
	}
	if code := tr.CompleteMilestone("contract123", 1, vendor, 12000); code != protocol.OK {
		t.Fatalf("complete: code=%d", code)
	}
	m, ok := tr.GetMilestone("contract123", 1)
	if !ok || !m.Completed || m.CompletedAt != 12000 {
		t.Fatalf("unexpected milestone: %+v ok=%v", m, ok)
	}
}

func TestCreate_Checks(t *testing.T) {
	tr := New(admin, nil)
	if code := tr.Create("c1", "t1", vendor, 1, 2, other); code != protocol.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %d", code)
	}
	_ = tr.Create("c1", "t1", vendor, 1, 2, admin)
	if code := tr.Create("c1", "t2", other, 9, 9, admin); code != protocol.CodeDuplicateID {
		t.Fatalf("expected duplicate id, got %d", code)
	}
	if c, _ := tr.Get("c1"); c.TenderID != "t1" {
		t.Fatalf("duplicate create mutated contract")
	}
}

func TestCreate_StrictVerifier(t *testing.T) {
	tr := New(admin, awardSet{"t1": vendor})
	if code := tr.Create("c1", "t1", other, 1, 2, admin); code != protocol.CodeNotAwarded {
		t.Fatalf("expected not awarded, got %d", code)
	}
	if code := tr.Create("c1", "t9", vendor, 1, 2, admin); code != protocol.CodeNotAwarded {
		t.Fatalf("expected not awarded for unknown tender, got %d", code)
	}
	if code := tr.Create("c1", "t1", vendor, 1, 2, admin); code != protocol.OK {
		t.Fatalf("expected ok for awarded vendor, got %d", code)
	}
}

func TestAddMilestone_Checks(t *testing.T) {
	tr := New(admin, nil)
	if code := tr.AddMilestone("nope", 1, "d", 1, 1, admin); code != protocol.CodeContractNotFound {
		t.Fatalf("expected contract not found, got %d", code)
	}
	_ = tr.Create("c1", "t1", vendor, 1, 2, admin)
	if code := tr.AddMilestone("c1", 1, "d", 1, 1, vendor); code != protocol.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %d", code)
	}
	_ = tr.AddMilestone("c1", 1, "first", 10, 100, admin)
	if code := tr.AddMilestone("c1", 1, "again", 20, 200, admin); code != protocol.CodeDuplicateMilestone {
		t.Fatalf("expected duplicate milestone, got %d", code)
	}
	if m, _ := tr.GetMilestone("c1", 1); m.Description != "first" {
		t.Fatalf("duplicate milestone overwrote record: %+v", m)
	}
}

func TestCompleteMilestone_OneWay(t *testing.T) {
	tr := New(admin, nil)
	_ = tr.Create("c1", "t1", vendor, 1, 2, admin)
	_ = tr.AddMilestone("c1", 1, "d", 1, 1, admin)

	if code := tr.CompleteMilestone("c2", 1, vendor, 10); code != protocol.CodeContractNotFound {
		t.Fatalf("expected contract not found, got %d", code)
	}
	if code := tr.CompleteMilestone("c1", 2, vendor, 10); code != protocol.CodeMilestoneNotFound {
		t.Fatalf("expected milestone not found, got %d", code)
	}
	// Not even the admin may complete a milestone.
	if code := tr.CompleteMilestone("c1", 1, admin, 10); code != protocol.CodeUnauthorized {
		t.Fatalf("expected unauthorized for admin, got %d", code)
	}
	if code := tr.CompleteMilestone("c1", 1, vendor, 10); code != protocol.OK {
		t.Fatalf("complete: code=%d", code)
	}
	if code := tr.CompleteMilestone("c1", 1, vendor, 20); code != protocol.CodeAlreadyCompleted {
		t.Fatalf("expected already completed, got %d", code)
	}
	if m, _ := tr.GetMilestone("c1", 1); !m.Completed || m.CompletedAt != 10 {
		t.Fatalf("re-completion changed state: %+v", m)
	}
}

func TestGet_ReturnsCopies(t *testing.T) {
	tr := New(admin, nil)
	_ = tr.Create("c1", "t1", vendor, 1, 2, admin)
	_ = tr.AddMilestone("c1", 2, "b", 1, 1, admin)
	_ = tr.AddMilestone("c1", 1, "a", 1, 1, admin)

	c, _ := tr.Get("c1")
	if len(c.Milestones) != 2 || c.Milestones[0].Number != 1 || c.Milestones[1].Number != 2 {
		t.Fatalf("milestones not sorted: %+v", c.Milestones)
	}
	c.Milestones[0].Completed = true
	if m, _ := tr.GetMilestone("c1", 1); m.Completed {
		t.Fatalf("mutating a read copy leaked into the tracker")
	}
}

func TestExportImport(t *testing.T) {
	tr := New(admin, nil)
	_ = tr.Create("c1", "t1", vendor, 1, 2, admin)
	_ = tr.AddMilestone("c1", 1, "a", 1, 1, admin)
	_ = tr.CompleteMilestone("c1", 1, vendor, 5)

	restored := New(admin, nil)
	restored.Import(tr.Export())
	if m, ok := restored.GetMilestone("c1", 1); !ok || !m.Completed || m.CompletedAt != 5 {
		t.Fatalf("import lost milestone state: %+v ok=%v", m, ok)
	}
	if code := restored.CompleteMilestone("c1", 1, vendor, 9); code != protocol.CodeAlreadyCompleted {
		t.Fatalf("expected already completed after import, got %d", code)
	}
}
