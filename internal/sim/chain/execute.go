package chain

import (
	"time"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/bids"
)

// unknownComponent labels failures against names that resolve to no component,
// so caller-chosen names never become metric series.
const unknownComponent protocol.Component = "unknown"

// BidListing is one row of list-bids.
type BidListing struct {
	Bidder protocol.Principal `json:"bidder"`
	bids.Bid
}

// Execute runs one request against the current state at the current height.
// Domain failures are reported as codes in the response, never as Go errors.
func (c *Chain) Execute(req protocol.ExecRequest) protocol.ExecResponse {
	start := time.Now()
	resp, comp := c.execute(req)

	c.stats.requests++
	if !resp.Success {
		c.stats.failures[failureKey{component: comp, code: resp.Code()}]++
	}
	c.stats.lastExec = time.Since(start)

	if !protocol.ReadOnly(req.Method) || !resp.Success {
		c.record(Receipt{
			Kind:      KindExec,
			Component: req.Component,
			Method:    req.Method,
			Args:      append([]string(nil), req.Args...),
			Sender:    req.Sender,
			Success:   resp.Success,
			Error:     resp.Error,
		})
	}
	c.publishMetrics()
	return resp
}

func (c *Chain) execute(req protocol.ExecRequest) (protocol.ExecResponse, protocol.Component) {
	comp, ok := protocol.Resolve(req.Component, req.Method)
	if !ok {
		return protocol.Fail(protocol.CodeUnknownComponent), unknownComponent
	}
	if !c.deployed[comp] {
		return protocol.Fail(protocol.CodeNotDeployed), comp
	}
	call, code := protocol.Decode(comp, req.Method, req.Args)
	if code != protocol.OK {
		return protocol.Fail(code), comp
	}
	result, code := c.dispatch(call, req.Sender)
	if code != protocol.OK {
		return protocol.Fail(code), comp
	}
	if !protocol.ReadOnly(call.Method()) {
		c.audit(AuditEntry{
			Actor:     req.Sender,
			Component: comp,
			Action:    call.Method(),
			Target:    target(call),
			Args:      append([]string(nil), req.Args...),
		})
	}
	return protocol.Succeed(result), comp
}

func (c *Chain) dispatch(call protocol.Call, sender protocol.Principal) (any, protocol.Code) {
	h := c.height.Load()
	switch v := call.(type) {
	case protocol.RegisterVendor:
		return okOr(c.vendors.Register(v.ID, v.Name, v.Category, sender, h))
	case protocol.UpdateVendorStatus:
		return okOr(c.vendors.UpdateStatus(v.ID, v.Active, sender))
	case protocol.GetVendor:
		if rec, ok := c.vendors.Get(v.ID); ok {
			return rec, protocol.OK
		}
		return nil, protocol.OK

	case protocol.CreateTender:
		return okOr(c.tenders.Create(v.ID, v.Title, v.Description, v.Deadline, sender, h))
	case protocol.GetTender:
		if rec, ok := c.tenders.Get(v.ID); ok {
			return rec, protocol.OK
		}
		return nil, protocol.OK

	case protocol.SubmitBid:
		return okOr(c.bids.Submit(v.TenderID, v.Amount, v.ProposalHash, sender, h))
	case protocol.GetBid:
		if rec, ok := c.bids.Get(bids.Key{TenderID: v.TenderID, Bidder: v.Bidder}); ok {
			return rec, protocol.OK
		}
		return nil, protocol.OK
	case protocol.ListBids:
		entries := c.bids.ForTender(v.TenderID)
		out := make([]BidListing, 0, len(entries))
		for _, e := range entries {
			out = append(out, BidListing{Bidder: e.Key.Bidder, Bid: e.Bid})
		}
		return out, protocol.OK

	case protocol.CreateContract:
		return okOr(c.contracts.Create(v.ID, v.TenderID, v.Vendor, v.Value, v.EndHeight, sender))
	case protocol.AddMilestone:
		return okOr(c.contracts.AddMilestone(v.ContractID, v.Number, v.Description, v.Amount, v.DueHeight, sender))
	case protocol.CompleteMilestone:
		return okOr(c.contracts.CompleteMilestone(v.ContractID, v.Number, sender, h))
	case protocol.GetContract:
		if rec, ok := c.contracts.Get(v.ID); ok {
			return rec, protocol.OK
		}
		return nil, protocol.OK
	case protocol.GetMilestone:
		if rec, ok := c.contracts.GetMilestone(v.ContractID, v.Number); ok {
			return rec, protocol.OK
		}
		return nil, protocol.OK

	case protocol.CloseTender:
		return okOr(c.evaluation.CloseTender(v.TenderID, sender))
	case protocol.ScoreBid:
		return okOr(c.evaluation.ScoreBid(v.TenderID, v.Bidder, v.Score, sender, h))
	case protocol.AwardTender:
		return okOr(c.evaluation.AwardTender(v.TenderID, v.Bidder, sender, h))
	case protocol.GetEvaluation:
		if rec, ok := c.evaluation.GetEvaluation(bids.Key{TenderID: v.TenderID, Bidder: v.Bidder}); ok {
			return rec, protocol.OK
		}
		return nil, protocol.OK
	case protocol.GetAward:
		if rec, ok := c.evaluation.GetAward(v.TenderID); ok {
			return rec, protocol.OK
		}
		return nil, protocol.OK
	}
	return nil, protocol.CodeUnknownMethod
}

func okOr(code protocol.Code) (any, protocol.Code) {
	if code != protocol.OK {
		return nil, code
	}
	return true, protocol.OK
}

// target names the record a mutating call touches.
func target(call protocol.Call) string {
	switch v := call.(type) {
	case protocol.RegisterVendor:
		return v.ID
	case protocol.UpdateVendorStatus:
		return v.ID
	case protocol.CreateTender:
		return v.ID
	case protocol.SubmitBid:
		return v.TenderID
	case protocol.CreateContract:
		return v.ID
	case protocol.AddMilestone:
		return v.ContractID
	case protocol.CompleteMilestone:
		return v.ContractID
	case protocol.CloseTender:
		return v.TenderID
	case protocol.ScoreBid:
		return v.TenderID
	case protocol.AwardTender:
		return v.TenderID
	}
	return ""
}
