package chain

import (
	"errors"
	"fmt"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/bids"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/evaluation"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/fulfillment"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/tenders"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/vendors"
)

var ErrSnapshotDigest = errors.New("restored state does not match snapshot digest")

// Restore builds a chain from cfg and loads s into it: registries, admins, deployments,
// clock, receipt seq and reset epoch. Component admins come from the snapshot, not cfg.
// When the snapshot carries a digest the restored state must reproduce it.
func Restore(cfg Config, s snapshot.SnapshotV1) (*Chain, error) {
	if s.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Header.Version)
	}
	if cfg.ID != "" && s.Header.ChainID != "" && cfg.ID != s.Header.ChainID {
		return nil, fmt.Errorf("snapshot chain %q does not match config chain %q", s.Header.ChainID, cfg.ID)
	}
	if s.GenesisHeight != 0 {
		cfg.GenesisHeight = s.GenesisHeight
	}
	c := New(cfg)

	for _, cv := range s.Components {
		comp, ok := protocol.ParseComponent(cv.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, cv.Name)
		}
		c.resetComponent(comp, protocol.Principal(cv.Admin))
		if cv.Deployed {
			c.deployed[comp] = true
		}
	}

	vs := make([]vendors.Entry, 0, len(s.Vendors))
	for _, v := range s.Vendors {
		vs = append(vs, vendors.Entry{ID: v.ID, Vendor: vendors.Vendor{
			Principal:    protocol.Principal(v.Principal),
			Name:         v.Name,
			Category:     v.Category,
			RegisteredAt: v.RegisteredAt,
			Active:       v.Active,
		}})
	}
	c.vendors.Import(vs)

	ts := make([]tenders.Entry, 0, len(s.Tenders))
	for _, t := range s.Tenders {
		ts = append(ts, tenders.Entry{ID: t.ID, Tender: tenders.Tender{
			Title:       t.Title,
			Description: t.Description,
			Deadline:    t.Deadline,
			Active:      t.Active,
			CreatedBy:   protocol.Principal(t.CreatedBy),
		}})
	}
	c.tenders.Import(ts)

	bs := make([]bids.Entry, 0, len(s.Bids))
	for _, b := range s.Bids {
		bs = append(bs, bids.Entry{
			Key: bids.Key{TenderID: b.TenderID, Bidder: protocol.Principal(b.Bidder)},
			Bid: bids.Bid{
				Amount:       b.Amount,
				ProposalHash: b.ProposalHash,
				SubmittedAt:  b.SubmittedAt,
				Status:       bids.Status(b.Status),
			},
		})
	}
	c.bids.Import(bs)

	cs := make([]fulfillment.Entry, 0, len(s.Contracts))
	for _, cv := range s.Contracts {
		ct := fulfillment.Contract{
			TenderID:  cv.TenderID,
			Vendor:    protocol.Principal(cv.Vendor),
			Value:     cv.Value,
			EndHeight: cv.EndHeight,
			CreatedBy: protocol.Principal(cv.CreatedBy),
		}
		for _, m := range cv.Milestones {
			ct.Milestones = append(ct.Milestones, fulfillment.Milestone{
				Number:      m.Number,
				Description: m.Description,
				Amount:      m.Amount,
				DueHeight:   m.DueHeight,
				Completed:   m.Completed,
				CompletedAt: m.CompletedAt,
			})
		}
		cs = append(cs, fulfillment.Entry{ID: cv.ID, Contract: ct})
	}
	c.contracts.Import(cs)

	scores := make([]evaluation.ScoreEntry, 0, len(s.Evaluations))
	for _, e := range s.Evaluations {
		scores = append(scores, evaluation.ScoreEntry{
			Key:   bids.Key{TenderID: e.TenderID, Bidder: protocol.Principal(e.Bidder)},
			Score: evaluation.Score{Score: e.Score, EvaluatedBy: protocol.Principal(e.EvaluatedBy), EvaluatedAt: e.EvaluatedAt},
		})
	}
	awards := make([]evaluation.AwardEntry, 0, len(s.Awards))
	for _, a := range s.Awards {
		awards = append(awards, evaluation.AwardEntry{
			TenderID: a.TenderID,
			Award:    evaluation.Award{Winner: protocol.Principal(a.Winner), Amount: a.Amount, AwardedAt: a.AwardedAt},
		})
	}
	c.evaluation.Import(scores, awards)

	c.height.Store(s.Header.Height)
	c.seq = s.Header.Seq
	c.stats.resets = s.Header.Epoch

	if s.Header.Digest != "" {
		if got := c.StateDigest(); got != s.Header.Digest {
			return nil, fmt.Errorf("%w: got %s want %s", ErrSnapshotDigest, got, s.Header.Digest)
		}
	}
	c.publishMetrics()
	return c, nil
}
