package chain

import (
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

func (c *Chain) ExportSnapshot() snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			ChainID: c.cfg.ID,
			Height:  c.height.Load(),
			Seq:     c.seq,
			Epoch:   c.stats.resets,
			Digest:  c.StateDigest(),
		},
		GenesisHeight: c.cfg.GenesisHeight,
	}
	for _, comp := range protocol.Components {
		s.Components = append(s.Components, snapshot.ComponentV1{
			Name:     string(comp),
			Deployed: c.deployed[comp],
			Admin:    string(c.adminOf(comp)),
		})
	}
	for _, e := range c.vendors.Export() {
		s.Vendors = append(s.Vendors, snapshot.VendorV1{
			ID:           e.ID,
			Principal:    string(e.Vendor.Principal),
			Name:         e.Vendor.Name,
			Category:     e.Vendor.Category,
			RegisteredAt: e.Vendor.RegisteredAt,
			Active:       e.Vendor.Active,
		})
	}
	for _, e := range c.tenders.Export() {
		s.Tenders = append(s.Tenders, snapshot.TenderV1{
			ID:          e.ID,
			Title:       e.Tender.Title,
			Description: e.Tender.Description,
			Deadline:    e.Tender.Deadline,
			Active:      e.Tender.Active,
			CreatedBy:   string(e.Tender.CreatedBy),
		})
	}
	for _, e := range c.bids.Export() {
		s.Bids = append(s.Bids, snapshot.BidV1{
			TenderID:     e.Key.TenderID,
			Bidder:       string(e.Key.Bidder),
			Amount:       e.Bid.Amount,
			ProposalHash: e.Bid.ProposalHash,
			SubmittedAt:  e.Bid.SubmittedAt,
			Status:       string(e.Bid.Status),
		})
	}
	for _, e := range c.contracts.Export() {
		cv := snapshot.ContractV1{
			ID:        e.ID,
			TenderID:  e.Contract.TenderID,
			Vendor:    string(e.Contract.Vendor),
			Value:     e.Contract.Value,
			EndHeight: e.Contract.EndHeight,
			CreatedBy: string(e.Contract.CreatedBy),
		}
		for _, m := range e.Contract.Milestones {
			cv.Milestones = append(cv.Milestones, snapshot.MilestoneV1{
				Number:      m.Number,
				Description: m.Description,
				Amount:      m.Amount,
				DueHeight:   m.DueHeight,
				Completed:   m.Completed,
				CompletedAt: m.CompletedAt,
			})
		}
		s.Contracts = append(s.Contracts, cv)
	}
	scores, awards := c.evaluation.Export()
	for _, e := range scores {
		s.Evaluations = append(s.Evaluations, snapshot.EvaluationV1{
			TenderID:    e.Key.TenderID,
			Bidder:      string(e.Key.Bidder),
			Score:       e.Score.Score,
			EvaluatedBy: string(e.Score.EvaluatedBy),
			EvaluatedAt: e.Score.EvaluatedAt,
		})
	}
	for _, e := range awards {
		s.Awards = append(s.Awards, snapshot.AwardV1{
			TenderID:  e.TenderID,
			Winner:    string(e.Award.Winner),
			Amount:    e.Award.Amount,
			AwardedAt: e.Award.AwardedAt,
		})
	}
	return s
}

func (c *Chain) emitSnapshot(reason string) bool {
	if c.snapshotSink == nil {
		return false
	}
	s := c.ExportSnapshot()
	s.Header.Reason = reason
	select {
	case c.snapshotSink <- s:
		return true
	default:
		return false
	}
}
