// Package vendors owns vendor identity and active/inactive status.
package vendors

import (
	"sort"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

type Vendor struct {
	Principal    protocol.Principal `json:"principal"`
	Name         string             `json:"name"`
	Category     string             `json:"category"`
	RegisteredAt uint64             `json:"registration-date"`
	Active       bool               `json:"is-active"`
}

type Entry struct {
	ID     string
	Vendor Vendor
}

type Registry struct {
	admin   protocol.Principal
	vendors map[string]*Vendor
}

func New(admin protocol.Principal) *Registry {
	r := &Registry{}
	r.Reset(admin)
	return r
}

// Reset installs a new administrator and drops every record.
func (r *Registry) Reset(admin protocol.Principal) {
	r.admin = admin
	r.vendors = map[string]*Vendor{}
}

func (r *Registry) Admin() protocol.Principal { return r.admin }
func (r *Registry) Len() int                  { return len(r.vendors) }

// Register lets any principal self-register under a fresh id.
func (r *Registry) Register(id, name, category string, sender protocol.Principal, height uint64) protocol.Code {
	if _, ok := r.vendors[id]; ok {
		return protocol.CodeVendorExists
	}
	r.vendors[id] = &Vendor{
		Principal:    sender,
		Name:         name,
		Category:     category,
		RegisteredAt: height,
		Active:       true,
	}
	return protocol.OK
}

// UpdateStatus is allowed for the registry admin and the vendor's own principal.
func (r *Registry) UpdateStatus(id string, active bool, sender protocol.Principal) protocol.Code {
	v, ok := r.vendors[id]
	if !ok {
		return protocol.CodeVendorNotFound
	}
	if sender != r.admin && sender != v.Principal {
		return protocol.CodeVendorUnauthorized
	}
	v.Active = active
	return protocol.OK
}

func (r *Registry) Get(id string) (Vendor, bool) {
	v, ok := r.vendors[id]
	if !ok {
		return Vendor{}, false
	}
	return *v, true
}

// Export returns all records sorted by id.
func (r *Registry) Export() []Entry {
	out := make([]Entry, 0, len(r.vendors))
	for id, v := range r.vendors {
		out = append(out, Entry{ID: id, Vendor: *v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Import replaces the records with entries. Chain.Restore uses it to load a snapshot.
func (r *Registry) Import(entries []Entry) {
	r.vendors = make(map[string]*Vendor, len(entries))
	for _, e := range entries {
		v := e.Vendor
		r.vendors[e.ID] = &v
	}
}
