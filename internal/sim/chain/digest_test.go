package chain

import (
	"testing"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

type memReceipts struct{ entries []Receipt }

func (m *memReceipts) WriteReceipt(r Receipt) error {
	m.entries = append(m.entries, r)
	return nil
}

type memAudits struct{ entries []AuditEntry }

func (m *memAudits) WriteAudit(e AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func TestStateDigest_TracksMutationsOnly(t *testing.T) {
	c := newDeployed(t, Config{})
	d0 := c.StateDigest()
	exec(c, "vendor-registry", "get-vendor", vendorV, "v1")
	exec(c, "vendor-registry", "update-vendor-status", thirdP, "v1", "true")
	if c.StateDigest() != d0 {
		t.Fatalf("reads and failed writes must not change the digest")
	}
	mustOK(t, exec(c, "vendor-registry", "register-vendor", vendorV, "v1", "Acme", "Tech"))
	if c.StateDigest() == d0 {
		t.Fatalf("registration must change the digest")
	}
}

func TestReceipts_ReplayReproducesDigests(t *testing.T) {
	receipts := &memReceipts{}
	audits := &memAudits{}
	c := New(Config{})
	c.SetReceiptLogger(receipts)
	c.SetAuditLogger(audits)

	c.DeployAll()
	mustOK(t, exec(c, "tender-board", "create-tender", DefaultAdmin, "t1", "t", "d", "10050"))
	mustOK(t, exec(c, "bid-ledger", "submit-bid", vendorV, "t1", "700", "0xaa"))
	mustCode(t, exec(c, "bid-ledger", "submit-bid", vendorV, "t1", "700", "0xaa"), protocol.CodeDuplicateBid)
	c.Advance(3)
	mustOK(t, exec(c, "fulfillment-tracker", "create-contract", DefaultAdmin, "c1", "t1", string(vendorV), "700", "20000"))
	mustOK(t, exec(c, "fulfillment-tracker", "add-milestone", DefaultAdmin, "c1", "1", "m", "700", "15000"))
	mustOK(t, exec(c, "fulfillment-tracker", "complete-milestone", vendorV, "c1", "1"))
	exec(c, "fulfillment-tracker", "get-contract", vendorV, "c1")

	if len(audits.entries) != 5+5 {
		t.Fatalf("expected 10 audit entries (5 deploys, 5 mutations), got %d", len(audits.entries))
	}
	last := audits.entries[len(audits.entries)-1]
	if last.Action != protocol.MethodCompleteMilestone || last.Target != "c1" || last.Actor != vendorV || last.Height != 10003 {
		t.Fatalf("unexpected last audit: %+v", last)
	}

	replica := New(Config{})
	for i, r := range receipts.entries {
		if i > 0 && r.Seq != receipts.entries[i-1].Seq+1 {
			t.Fatalf("receipt seq gap at %d", i)
		}
		code, err := Apply(replica, r)
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		if r.Error != nil && code != *r.Error {
			t.Fatalf("receipt %d: code %d, recorded %d", i, code, *r.Error)
		}
		if got := replica.StateDigest(); got != r.Digest {
			t.Fatalf("receipt %d (%s %s): digest mismatch", i, r.Kind, r.Method)
		}
	}
	if replica.StateDigest() != c.StateDigest() {
		t.Fatalf("replica diverged")
	}
}
