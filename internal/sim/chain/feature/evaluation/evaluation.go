// Package evaluation closes tenders, scores sealed bids and records awards.
package evaluation

import (
	"sort"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/bids"
)

type Tenders interface {
	Lookup(id string) (active bool, deadline uint64, ok bool)
	Close(id string) protocol.Code
}

type Bids interface {
	Get(key bids.Key) (bids.Bid, bool)
	ForTender(tenderID string) []bids.Entry
	SetStatus(key bids.Key, status bids.Status) bool
}

type Score struct {
	Score       uint64             `json:"score"`
	EvaluatedBy protocol.Principal `json:"evaluated-by"`
	EvaluatedAt uint64             `json:"evaluated-at"`
}

type Award struct {
	Winner    protocol.Principal `json:"winner"`
	Amount    uint64             `json:"amount"`
	AwardedAt uint64             `json:"awarded-at"`
}

type ScoreEntry struct {
	Key   bids.Key
	Score Score
}

type AwardEntry struct {
	TenderID string
	Award    Award
}

type Panel struct {
	admin   protocol.Principal
	tenders Tenders
	bids    Bids
	scores  map[bids.Key]Score
	awards  map[string]Award
}

func New(admin protocol.Principal, tenders Tenders, ledger Bids) *Panel {
	p := &Panel{tenders: tenders, bids: ledger}
	p.Reset(admin)
	return p
}

func (p *Panel) Reset(admin protocol.Principal) {
	p.admin = admin
	p.scores = map[bids.Key]Score{}
	p.awards = map[string]Award{}
}

func (p *Panel) Admin() protocol.Principal { return p.admin }
func (p *Panel) Len() int                  { return len(p.awards) }

func (p *Panel) CloseTender(tenderID string, sender protocol.Principal) protocol.Code {
	if sender != p.admin {
		return protocol.CodeUnauthorized
	}
	return p.tenders.Close(tenderID)
}

// closedTender runs the checks shared by score and award.
func (p *Panel) closedTender(tenderID string, sender protocol.Principal) protocol.Code {
	if sender != p.admin {
		return protocol.CodeUnauthorized
	}
	active, _, ok := p.tenders.Lookup(tenderID)
	if !ok {
		return protocol.CodeTenderNotFound
	}
	if active {
		return protocol.CodeTenderStillOpen
	}
	if _, done := p.awards[tenderID]; done {
		return protocol.CodeAlreadyAwarded
	}
	return protocol.OK
}

func (p *Panel) ScoreBid(tenderID string, bidder protocol.Principal, score uint64, sender protocol.Principal, height uint64) protocol.Code {
	if code := p.closedTender(tenderID, sender); code != protocol.OK {
		return code
	}
	key := bids.Key{TenderID: tenderID, Bidder: bidder}
	if _, ok := p.bids.Get(key); !ok {
		return protocol.CodeBidNotFound
	}
	p.scores[key] = Score{Score: score, EvaluatedBy: sender, EvaluatedAt: height}
	p.bids.SetStatus(key, bids.StatusEvaluated)
	return protocol.OK
}

// AwardTender marks the winner awarded and every other bid on the tender rejected.
func (p *Panel) AwardTender(tenderID string, bidder protocol.Principal, sender protocol.Principal, height uint64) protocol.Code {
	if code := p.closedTender(tenderID, sender); code != protocol.OK {
		return code
	}
	key := bids.Key{TenderID: tenderID, Bidder: bidder}
	bid, ok := p.bids.Get(key)
	if !ok {
		return protocol.CodeBidNotFound
	}
	if _, scored := p.scores[key]; !scored {
		return protocol.CodeBidNotEvaluated
	}
	for _, e := range p.bids.ForTender(tenderID) {
		if e.Key == key {
			p.bids.SetStatus(e.Key, bids.StatusAwarded)
		} else {
			p.bids.SetStatus(e.Key, bids.StatusRejected)
		}
	}
	p.awards[tenderID] = Award{Winner: bidder, Amount: bid.Amount, AwardedAt: height}
	return protocol.OK
}

func (p *Panel) GetEvaluation(key bids.Key) (Score, bool) {
	s, ok := p.scores[key]
	return s, ok
}

func (p *Panel) GetAward(tenderID string) (Award, bool) {
	a, ok := p.awards[tenderID]
	return a, ok
}

// Awarded satisfies fulfillment.AwardVerifier for the strict contract check.
func (p *Panel) Awarded(tenderID string, vendor protocol.Principal) bool {
	a, ok := p.awards[tenderID]
	return ok && a.Winner == vendor
}

func (p *Panel) Export() ([]ScoreEntry, []AwardEntry) {
	scores := make([]ScoreEntry, 0, len(p.scores))
	for k, s := range p.scores {
		scores = append(scores, ScoreEntry{Key: k, Score: s})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Key.TenderID != scores[j].Key.TenderID {
			return scores[i].Key.TenderID < scores[j].Key.TenderID
		}
		return scores[i].Key.Bidder < scores[j].Key.Bidder
	})
	awards := make([]AwardEntry, 0, len(p.awards))
	for id, a := range p.awards {
		awards = append(awards, AwardEntry{TenderID: id, Award: a})
	}
	sort.Slice(awards, func(i, j int) bool { return awards[i].TenderID < awards[j].TenderID })
	return scores, awards
}

func (p *Panel) Import(scores []ScoreEntry, awards []AwardEntry) {
	p.scores = make(map[bids.Key]Score, len(scores))
	for _, e := range scores {
		p.scores[e.Key] = e.Score
	}
	p.awards = make(map[string]Award, len(awards))
	for _, e := range awards {
		p.awards[e.TenderID] = e.Award
	}
}
