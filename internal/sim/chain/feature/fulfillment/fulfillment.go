// Package fulfillment tracks awarded work through milestone-based contracts.
package fulfillment

import (
	"sort"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

type Milestone struct {
	Number      uint64 `json:"number"`
	Description string `json:"description"`
	Amount      uint64 `json:"amount"`
	DueHeight   uint64 `json:"due-height"`
	Completed   bool   `json:"completed"`
	CompletedAt uint64 `json:"completed-at"`
}

// Contract is the read view of a stored contract. Milestones are sorted by number.
type Contract struct {
	TenderID   string             `json:"tender-id"`
	Vendor     protocol.Principal `json:"vendor"`
	Value      uint64             `json:"value"`
	EndHeight  uint64             `json:"end-height"`
	CreatedBy  protocol.Principal `json:"created-by"`
	Milestones []Milestone        `json:"milestones"`
}

type contract struct {
	tenderID   string
	vendor     protocol.Principal
	value      uint64
	endHeight  uint64
	createdBy  protocol.Principal
	milestones map[uint64]*Milestone
}

func (c *contract) view() Contract {
	out := Contract{
		TenderID:   c.tenderID,
		Vendor:     c.vendor,
		Value:      c.value,
		EndHeight:  c.endHeight,
		CreatedBy:  c.createdBy,
		Milestones: make([]Milestone, 0, len(c.milestones)),
	}
	for _, m := range c.milestones {
		out.Milestones = append(out.Milestones, *m)
	}
	sort.Slice(out.Milestones, func(i, j int) bool { return out.Milestones[i].Number < out.Milestones[j].Number })
	return out
}

type Entry struct {
	ID       string
	Contract Contract
}

// AwardVerifier decides whether a contract may be opened for (tenderID, vendor).
type AwardVerifier interface {
	Awarded(tenderID string, vendor protocol.Principal) bool
}

// TrustCaller accepts every (tender, vendor) pair. The identifiers are not cross-checked.
type TrustCaller struct{}

func (TrustCaller) Awarded(string, protocol.Principal) bool { return true }

type Tracker struct {
	admin     protocol.Principal
	verifier  AwardVerifier
	contracts map[string]*contract
}

func New(admin protocol.Principal, verifier AwardVerifier) *Tracker {
	if verifier == nil {
		verifier = TrustCaller{}
	}
	t := &Tracker{verifier: verifier}
	t.Reset(admin)
	return t
}

func (t *Tracker) Reset(admin protocol.Principal) {
	t.admin = admin
	t.contracts = map[string]*contract{}
}

func (t *Tracker) Admin() protocol.Principal { return t.admin }
func (t *Tracker) Len() int                  { return len(t.contracts) }

func (t *Tracker) SetVerifier(v AwardVerifier) {
	if v == nil {
		v = TrustCaller{}
	}
	t.verifier = v
}

func (t *Tracker) Create(id, tenderID string, vendor protocol.Principal, value, endHeight uint64, sender protocol.Principal) protocol.Code {
	if sender != t.admin {
		return protocol.CodeUnauthorized
	}
	if _, ok := t.contracts[id]; ok {
		return protocol.CodeDuplicateID
	}
	if !t.verifier.Awarded(tenderID, vendor) {
		return protocol.CodeNotAwarded
	}
	t.contracts[id] = &contract{
		tenderID:   tenderID,
		vendor:     vendor,
		value:      value,
		endHeight:  endHeight,
		createdBy:  sender,
		milestones: map[uint64]*Milestone{},
	}
	return protocol.OK
}

func (t *Tracker) AddMilestone(contractID string, number uint64, description string, amount, dueHeight uint64, sender protocol.Principal) protocol.Code {
	c, ok := t.contracts[contractID]
	if !ok {
		return protocol.CodeContractNotFound
	}
	if sender != t.admin {
		return protocol.CodeUnauthorized
	}
	if _, dup := c.milestones[number]; dup {
		return protocol.CodeDuplicateMilestone
	}
	c.milestones[number] = &Milestone{
		Number:      number,
		Description: description,
		Amount:      amount,
		DueHeight:   dueHeight,
	}
	return protocol.OK
}

// CompleteMilestone is callable only by the contract's vendor and only once per milestone.
func (t *Tracker) CompleteMilestone(contractID string, number uint64, sender protocol.Principal, height uint64) protocol.Code {
	c, ok := t.contracts[contractID]
	if !ok {
		return protocol.CodeContractNotFound
	}
	m, ok := c.milestones[number]
	if !ok {
		return protocol.CodeMilestoneNotFound
	}
	if sender != c.vendor {
		return protocol.CodeUnauthorized
	}
	if m.Completed {
		return protocol.CodeAlreadyCompleted
	}
	m.Completed = true
	m.CompletedAt = height
	return protocol.OK
}

func (t *Tracker) Get(id string) (Contract, bool) {
	c, ok := t.contracts[id]
	if !ok {
		return Contract{}, false
	}
	return c.view(), true
}

func (t *Tracker) GetMilestone(contractID string, number uint64) (Milestone, bool) {
	c, ok := t.contracts[contractID]
	if !ok {
		return Milestone{}, false
	}
	m, ok := c.milestones[number]
	if !ok {
		return Milestone{}, false
	}
	return *m, true
}

func (t *Tracker) Export() []Entry {
	out := make([]Entry, 0, len(t.contracts))
	for id, c := range t.contracts {
		out = append(out, Entry{ID: id, Contract: c.view()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Tracker) Import(entries []Entry) {
	t.contracts = make(map[string]*contract, len(entries))
	for _, e := range entries {
		c := &contract{
			tenderID:   e.Contract.TenderID,
			vendor:     e.Contract.Vendor,
			value:      e.Contract.Value,
			endHeight:  e.Contract.EndHeight,
			createdBy:  e.Contract.CreatedBy,
			milestones: make(map[uint64]*Milestone, len(e.Contract.Milestones)),
		}
		for _, m := range e.Contract.Milestones {
			m := m
			c.milestones[m.Number] = &m
		}
		t.contracts[e.ID] = c
	}
}
