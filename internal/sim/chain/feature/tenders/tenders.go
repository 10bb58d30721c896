// Package tenders owns the tender lifecycle: admin-gated publication and the active flag.
package tenders

import (
	"sort"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

type Tender struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Deadline    uint64             `json:"deadline"`
	Active      bool               `json:"is-active"`
	CreatedBy   protocol.Principal `json:"created-by"`
}

type Entry struct {
	ID     string
	Tender Tender
}

type Board struct {
	admin   protocol.Principal
	tenders map[string]*Tender
}

func New(admin protocol.Principal) *Board {
	b := &Board{}
	b.Reset(admin)
	return b
}

func (b *Board) Reset(admin protocol.Principal) {
	b.admin = admin
	b.tenders = map[string]*Tender{}
}

func (b *Board) Admin() protocol.Principal { return b.admin }
func (b *Board) Len() int                  { return len(b.tenders) }

// Create publishes a tender. The deadline must be strictly after the current height.
func (b *Board) Create(id, title, description string, deadline uint64, sender protocol.Principal, height uint64) protocol.Code {
	if sender != b.admin {
		return protocol.CodeUnauthorized
	}
	if _, ok := b.tenders[id]; ok {
		return protocol.CodeDuplicateID
	}
	if deadline <= height {
		return protocol.CodeDeadlineInPast
	}
	b.tenders[id] = &Tender{
		Title:       title,
		Description: description,
		Deadline:    deadline,
		Active:      true,
		CreatedBy:   sender,
	}
	return protocol.OK
}

func (b *Board) Get(id string) (Tender, bool) {
	t, ok := b.tenders[id]
	if !ok {
		return Tender{}, false
	}
	return *t, true
}

// Lookup exposes the fields other components are allowed to read.
func (b *Board) Lookup(id string) (active bool, deadline uint64, ok bool) {
	t, ok := b.tenders[id]
	if !ok {
		return false, 0, false
	}
	return t.Active, t.Deadline, true
}

func (b *Board) IsActive(id string) bool {
	active, _, _ := b.Lookup(id)
	return active
}

func (b *Board) Deadline(id string) (uint64, bool) {
	_, d, ok := b.Lookup(id)
	return d, ok
}

// Close flips the active flag off. There is no way back.
func (b *Board) Close(id string) protocol.Code {
	t, ok := b.tenders[id]
	if !ok {
		return protocol.CodeTenderNotFound
	}
	if !t.Active {
		return protocol.CodeTenderInactive
	}
	t.Active = false
	return protocol.OK
}

func (b *Board) Export() []Entry {
	out := make([]Entry, 0, len(b.tenders))
	for id, t := range b.tenders {
		out = append(out, Entry{ID: id, Tender: *t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Board) Import(entries []Entry) {
	b.tenders = make(map[string]*Tender, len(entries))
	for _, e := range entries {
		t := e.Tender
		b.tenders[e.ID] = &t
	}
}
