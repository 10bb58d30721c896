package protocol

import (
	"sort"
	"strconv"
	"strings"
)

// Call is a decoded, strongly typed request for one (component, method) pair.
type Call interface {
	Component() Component
	Method() string
}

type RegisterVendor struct{ ID, Name, Category string }
type UpdateVendorStatus struct {
	ID     string
	Active bool
}
type GetVendor struct{ ID string }

type CreateTender struct {
	ID          string
	Title       string
	Description string
	Deadline    uint64
}
type GetTender struct{ ID string }

type SubmitBid struct {
	TenderID     string
	Amount       uint64
	ProposalHash string
}
type GetBid struct {
	TenderID string
	Bidder   Principal
}
type ListBids struct{ TenderID string }

type CreateContract struct {
	ID        string
	TenderID  string
	Vendor    Principal
	Value     uint64
	EndHeight uint64
}
type AddMilestone struct {
	ContractID  string
	Number      uint64
	Description string
	Amount      uint64
	DueHeight   uint64
}
type CompleteMilestone struct {
	ContractID string
	Number     uint64
}
type GetContract struct{ ID string }
type GetMilestone struct {
	ContractID string
	Number     uint64
}

type CloseTender struct{ TenderID string }
type ScoreBid struct {
	TenderID string
	Bidder   Principal
	Score    uint64
}
type AwardTender struct {
	TenderID string
	Bidder   Principal
}
type GetEvaluation struct {
	TenderID string
	Bidder   Principal
}
type GetAward struct{ TenderID string }

func (RegisterVendor) Component() Component     { return VendorRegistry }
func (UpdateVendorStatus) Component() Component { return VendorRegistry }
func (GetVendor) Component() Component          { return VendorRegistry }
func (CreateTender) Component() Component       { return TenderBoard }
func (GetTender) Component() Component          { return TenderBoard }
func (SubmitBid) Component() Component          { return BidLedger }
func (GetBid) Component() Component             { return BidLedger }
func (ListBids) Component() Component           { return BidLedger }
func (CreateContract) Component() Component     { return FulfillmentTracker }
func (AddMilestone) Component() Component       { return FulfillmentTracker }
func (CompleteMilestone) Component() Component  { return FulfillmentTracker }
func (GetContract) Component() Component        { return FulfillmentTracker }
func (GetMilestone) Component() Component       { return FulfillmentTracker }
func (CloseTender) Component() Component        { return Evaluation }
func (ScoreBid) Component() Component           { return Evaluation }
func (AwardTender) Component() Component        { return Evaluation }
func (GetEvaluation) Component() Component      { return Evaluation }
func (GetAward) Component() Component           { return Evaluation }

func (RegisterVendor) Method() string     { return MethodRegisterVendor }
func (UpdateVendorStatus) Method() string { return MethodUpdateVendorStatus }
func (GetVendor) Method() string          { return MethodGetVendor }
func (CreateTender) Method() string       { return MethodCreateTender }
func (GetTender) Method() string          { return MethodGetTender }
func (SubmitBid) Method() string          { return MethodSubmitBid }
func (GetBid) Method() string             { return MethodGetBid }
func (ListBids) Method() string           { return MethodListBids }
func (CreateContract) Method() string     { return MethodCreateContract }
func (AddMilestone) Method() string       { return MethodAddMilestone }
func (CompleteMilestone) Method() string  { return MethodCompleteMilestone }
func (GetContract) Method() string        { return MethodGetContract }
func (GetMilestone) Method() string       { return MethodGetMilestone }
func (CloseTender) Method() string        { return MethodCloseTender }
func (ScoreBid) Method() string           { return MethodScoreBid }
func (AwardTender) Method() string        { return MethodAwardTender }
func (GetEvaluation) Method() string      { return MethodGetEvaluation }
func (GetAward) Method() string           { return MethodGetAward }

type decoder struct {
	arity  int
	decode func(a *args) Call
}

// args parses positional text arguments, remembering the first failure.
type args struct {
	v   []string
	bad bool
}

func (a *args) str(i int) string { return a.v[i] }

func (a *args) principal(i int) Principal { return Principal(a.v[i]) }

func (a *args) uint(i int) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(a.v[i]), 10, 64)
	if err != nil {
		a.bad = true
		return 0
	}
	return n
}

var decoders = map[Component]map[string]decoder{
	VendorRegistry: {
		MethodRegisterVendor: {3, func(a *args) Call {
			return RegisterVendor{ID: a.str(0), Name: a.str(1), Category: a.str(2)}
		}},
		MethodUpdateVendorStatus: {2, func(a *args) Call {
			return UpdateVendorStatus{ID: a.str(0), Active: a.str(1) == "true"}
		}},
		MethodGetVendor: {1, func(a *args) Call { return GetVendor{ID: a.str(0)} }},
	},
	TenderBoard: {
		MethodCreateTender: {4, func(a *args) Call {
			return CreateTender{ID: a.str(0), Title: a.str(1), Description: a.str(2), Deadline: a.uint(3)}
		}},
		MethodGetTender: {1, func(a *args) Call { return GetTender{ID: a.str(0)} }},
	},
	BidLedger: {
		MethodSubmitBid: {3, func(a *args) Call {
			return SubmitBid{TenderID: a.str(0), Amount: a.uint(1), ProposalHash: a.str(2)}
		}},
		MethodGetBid: {2, func(a *args) Call {
			return GetBid{TenderID: a.str(0), Bidder: a.principal(1)}
		}},
		MethodListBids: {1, func(a *args) Call { return ListBids{TenderID: a.str(0)} }},
	},
	FulfillmentTracker: {
		MethodCreateContract: {5, func(a *args) Call {
			return CreateContract{ID: a.str(0), TenderID: a.str(1), Vendor: a.principal(2), Value: a.uint(3), EndHeight: a.uint(4)}
		}},
		MethodAddMilestone: {5, func(a *args) Call {
			return AddMilestone{ContractID: a.str(0), Number: a.uint(1), Description: a.str(2), Amount: a.uint(3), DueHeight: a.uint(4)}
		}},
		MethodCompleteMilestone: {2, func(a *args) Call {
			return CompleteMilestone{ContractID: a.str(0), Number: a.uint(1)}
		}},
		MethodGetContract: {1, func(a *args) Call { return GetContract{ID: a.str(0)} }},
		MethodGetMilestone: {2, func(a *args) Call {
			return GetMilestone{ContractID: a.str(0), Number: a.uint(1)}
		}},
	},
	Evaluation: {
		MethodCloseTender: {1, func(a *args) Call { return CloseTender{TenderID: a.str(0)} }},
		MethodScoreBid: {3, func(a *args) Call {
			return ScoreBid{TenderID: a.str(0), Bidder: a.principal(1), Score: a.uint(2)}
		}},
		MethodAwardTender: {2, func(a *args) Call {
			return AwardTender{TenderID: a.str(0), Bidder: a.principal(1)}
		}},
		MethodGetEvaluation: {2, func(a *args) Call {
			return GetEvaluation{TenderID: a.str(0), Bidder: a.principal(1)}
		}},
		MethodGetAward: {1, func(a *args) Call { return GetAward{TenderID: a.str(0)} }},
	},
}

// Decode turns positional text arguments into the typed call for (c, method).
// Malformed decimal text or a wrong argument count yields CodeInvalidArgument.
func Decode(c Component, method string, argv []string) (Call, Code) {
	methods, ok := decoders[c]
	if !ok {
		return nil, CodeUnknownComponent
	}
	d, ok := methods[method]
	if !ok {
		return nil, CodeUnknownMethod
	}
	if len(argv) != d.arity {
		return nil, CodeInvalidArgument
	}
	a := &args{v: argv}
	call := d.decode(a)
	if a.bad {
		return nil, CodeInvalidArgument
	}
	return call, OK
}

// Methods returns the method names accepted by c.
func Methods(c Component) []string {
	out := make([]string, 0, len(decoders[c]))
	for m := range decoders[c] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
