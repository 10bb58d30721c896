package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

// StateDigest hashes the clock, deployments and every registry in a canonical order.
// Two chains that processed the same receipts report the same digest.
func (c *Chain) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, c.height.Load())
	for _, comp := range protocol.Components {
		digestWriteString(h, &tmp, string(comp))
		h.Write([]byte{boolByte(c.deployed[comp])})
		digestWriteString(h, &tmp, string(c.adminOf(comp)))
	}

	for _, e := range c.vendors.Export() {
		digestWriteString(h, &tmp, e.ID)
		digestWriteString(h, &tmp, string(e.Vendor.Principal))
		digestWriteString(h, &tmp, e.Vendor.Name)
		digestWriteString(h, &tmp, e.Vendor.Category)
		digestWriteU64(h, &tmp, e.Vendor.RegisteredAt)
		h.Write([]byte{boolByte(e.Vendor.Active)})
	}
	for _, e := range c.tenders.Export() {
		digestWriteString(h, &tmp, e.ID)
		digestWriteString(h, &tmp, e.Tender.Title)
		digestWriteString(h, &tmp, e.Tender.Description)
		digestWriteU64(h, &tmp, e.Tender.Deadline)
		h.Write([]byte{boolByte(e.Tender.Active)})
		digestWriteString(h, &tmp, string(e.Tender.CreatedBy))
	}
	for _, e := range c.bids.Export() {
		digestWriteString(h, &tmp, e.Key.TenderID)
		digestWriteString(h, &tmp, string(e.Key.Bidder))
		digestWriteU64(h, &tmp, e.Bid.Amount)
		digestWriteString(h, &tmp, e.Bid.ProposalHash)
		digestWriteU64(h, &tmp, e.Bid.SubmittedAt)
		digestWriteString(h, &tmp, string(e.Bid.Status))
	}
	for _, e := range c.contracts.Export() {
		digestWriteString(h, &tmp, e.ID)
		digestWriteString(h, &tmp, e.Contract.TenderID)
		digestWriteString(h, &tmp, string(e.Contract.Vendor))
		digestWriteU64(h, &tmp, e.Contract.Value)
		digestWriteU64(h, &tmp, e.Contract.EndHeight)
		digestWriteString(h, &tmp, string(e.Contract.CreatedBy))
		digestWriteU64(h, &tmp, uint64(len(e.Contract.Milestones)))
		for _, m := range e.Contract.Milestones {
			digestWriteU64(h, &tmp, m.Number)
			digestWriteString(h, &tmp, m.Description)
			digestWriteU64(h, &tmp, m.Amount)
			digestWriteU64(h, &tmp, m.DueHeight)
			h.Write([]byte{boolByte(m.Completed)})
			digestWriteU64(h, &tmp, m.CompletedAt)
		}
	}
	scores, awards := c.evaluation.Export()
	for _, e := range scores {
		digestWriteString(h, &tmp, e.Key.TenderID)
		digestWriteString(h, &tmp, string(e.Key.Bidder))
		digestWriteU64(h, &tmp, e.Score.Score)
		digestWriteString(h, &tmp, string(e.Score.EvaluatedBy))
		digestWriteU64(h, &tmp, e.Score.EvaluatedAt)
	}
	for _, e := range awards {
		digestWriteString(h, &tmp, e.TenderID)
		digestWriteString(h, &tmp, string(e.Award.Winner))
		digestWriteU64(h, &tmp, e.Award.Amount)
		digestWriteU64(h, &tmp, e.Award.AwardedAt)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

// Length prefix keeps ("ab","c") and ("a","bc") apart.
func digestWriteString(h hash.Hash, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
