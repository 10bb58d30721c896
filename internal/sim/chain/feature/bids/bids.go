// Package bids owns sealed bid records keyed by (tender, bidder).
package bids

import (
	"sort"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusEvaluated Status = "evaluated"
	StatusAwarded   Status = "awarded"
	StatusRejected  Status = "rejected"
)

// Key identifies at most one bid per bidder per tender.
type Key struct {
	TenderID string
	Bidder   protocol.Principal
}

type Bid struct {
	Amount       uint64 `json:"bid-amount"`
	ProposalHash string `json:"proposal-hash"`
	SubmittedAt  uint64 `json:"submission-time"`
	Status       Status `json:"status"`
}

type Entry struct {
	Key Key
	Bid Bid
}

// TenderLookup is the read-only view of the Tender Board the ledger needs.
type TenderLookup interface {
	Lookup(id string) (active bool, deadline uint64, ok bool)
}

type Ledger struct {
	admin   protocol.Principal
	tenders TenderLookup
	bids    map[Key]*Bid
}

func New(admin protocol.Principal, tenders TenderLookup) *Ledger {
	l := &Ledger{tenders: tenders}
	l.Reset(admin)
	return l
}

func (l *Ledger) Reset(admin protocol.Principal) {
	l.admin = admin
	l.bids = map[Key]*Bid{}
}

func (l *Ledger) Admin() protocol.Principal { return l.admin }
func (l *Ledger) Len() int                  { return len(l.bids) }

func (l *Ledger) Submit(tenderID string, amount uint64, proposalHash string, sender protocol.Principal, height uint64) protocol.Code {
	key := Key{TenderID: tenderID, Bidder: sender}
	active, deadline, ok := l.tenders.Lookup(tenderID)
	_, dup := l.bids[key]
	if code := ValidateSubmit(SubmitValidationInput{
		HasTender:  ok,
		Active:     active,
		NowHeight:  height,
		Deadline:   deadline,
		AlreadyBid: dup,
	}); code != protocol.OK {
		return code
	}
	l.bids[key] = &Bid{
		Amount:       amount,
		ProposalHash: proposalHash,
		SubmittedAt:  height,
		Status:       StatusSubmitted,
	}
	return protocol.OK
}

func (l *Ledger) Get(key Key) (Bid, bool) {
	b, ok := l.bids[key]
	if !ok {
		return Bid{}, false
	}
	return *b, true
}

// ForTender returns the bids against tenderID sorted by bidder.
func (l *Ledger) ForTender(tenderID string) []Entry {
	var out []Entry
	for k, b := range l.bids {
		if k.TenderID == tenderID {
			out = append(out, Entry{Key: k, Bid: *b})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Bidder < out[j].Key.Bidder })
	return out
}

// SetStatus moves a bid to a post-evaluation status. Only the evaluation panel calls it.
func (l *Ledger) SetStatus(key Key, status Status) bool {
	b, ok := l.bids[key]
	if !ok {
		return false
	}
	b.Status = status
	return true
}

func (l *Ledger) Export() []Entry {
	out := make([]Entry, 0, len(l.bids))
	for k, b := range l.bids {
		out = append(out, Entry{Key: k, Bid: *b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.TenderID != out[j].Key.TenderID {
			return out[i].Key.TenderID < out[j].Key.TenderID
		}
		return out[i].Key.Bidder < out[j].Key.Bidder
	})
	return out
}

func (l *Ledger) Import(entries []Entry) {
	l.bids = make(map[Key]*Bid, len(entries))
	for _, e := range entries {
		b := e.Bid
		l.bids[e.Key] = &b
	}
}
