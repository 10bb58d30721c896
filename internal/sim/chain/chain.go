// Package chain is the simulated execution environment: one clock, the deployable
// procurement components, and the loop that owns them.
package chain

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/bids"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/evaluation"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/fulfillment"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/tenders"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain/feature/vendors"
)

const (
	DefaultGenesisHeight uint64             = 10000
	DefaultAdmin         protocol.Principal = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
)

var (
	ErrUnknownComponent = errors.New("unknown component")
	ErrHeightOverflow   = errors.New("height overflow")
)

type Config struct {
	ID            string
	GenesisHeight uint64
	DefaultAdmin  protocol.Principal
	// Admins overrides DefaultAdmin per component.
	Admins map[protocol.Component]protocol.Principal

	StrictAwardCheck bool

	// BlockInterval > 0 advances the clock by one height per interval inside Run.
	BlockInterval        time.Duration
	SnapshotEveryHeights uint64
	InboxSize            int
}

func (c Config) withDefaults() Config {
	if c.ID == "" {
		c.ID = "procure-1"
	}
	if c.GenesisHeight == 0 {
		c.GenesisHeight = DefaultGenesisHeight
	}
	if c.DefaultAdmin == "" {
		c.DefaultAdmin = DefaultAdmin
	}
	if c.InboxSize <= 0 {
		c.InboxSize = 1024
	}
	return c
}

// Chain holds every registry and the execution clock.
// Registry state must be accessed only from the goroutine that owns the chain
// (Run, or the test calling Execute directly).
type Chain struct {
	cfg Config

	height   atomic.Uint64
	deployed map[protocol.Component]bool

	vendors    *vendors.Registry
	tenders    *tenders.Board
	bids       *bids.Ledger
	contracts  *fulfillment.Tracker
	evaluation *evaluation.Panel

	inbox    chan execReq
	deploy   chan deployReq
	reset    chan resetReq
	advance  chan advanceReq
	snapshot chan snapshotReq
	stop     chan struct{}

	seq uint64

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	receiptLogger ReceiptLogger
	auditLogger   AuditLogger

	// Optional snapshot sink (may be nil). Writing happens off the chain goroutine.
	snapshotSink chan<- snapshot.SnapshotV1

	metrics atomic.Value
	stats   counters
}

type ReceiptLogger interface {
	WriteReceipt(entry Receipt) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// Receipt kinds.
const (
	KindExec    = "EXEC"
	KindDeploy  = "DEPLOY"
	KindReset   = "RESET"
	KindAdvance = "ADVANCE"
)

// Receipt records one state transition attempt together with the state digest after it.
// Receipts are the input of replay.
type Receipt struct {
	Seq       uint64             `json:"seq"`
	Height    uint64             `json:"height"`
	Kind      string             `json:"kind"`
	Component string             `json:"component,omitempty"`
	Method    string             `json:"method,omitempty"`
	Args      []string           `json:"args,omitempty"`
	Sender    protocol.Principal `json:"sender,omitempty"`
	Blocks    uint64             `json:"blocks,omitempty"`
	Success   bool               `json:"success"`
	Error     *protocol.Code     `json:"error,omitempty"`
	Digest    string             `json:"digest"`
}

// AuditEntry is written once per successful mutation.
type AuditEntry struct {
	Height    uint64             `json:"height"`
	Actor     protocol.Principal `json:"actor"`
	Component protocol.Component `json:"component"`
	Action    string             `json:"action"`
	Target    string             `json:"target"`
	Args      []string           `json:"args,omitempty"`
}

func New(cfg Config) *Chain {
	cfg = cfg.withDefaults()
	c := &Chain{
		cfg:      cfg,
		deployed: map[protocol.Component]bool{},
		inbox:    make(chan execReq, cfg.InboxSize),
		deploy:   make(chan deployReq, 16),
		reset:    make(chan resetReq, 16),
		advance:  make(chan advanceReq, 16),
		snapshot: make(chan snapshotReq, 16),
		stop:     make(chan struct{}),
	}
	c.vendors = vendors.New(cfg.adminFor(protocol.VendorRegistry))
	c.tenders = tenders.New(cfg.adminFor(protocol.TenderBoard))
	c.bids = bids.New(cfg.adminFor(protocol.BidLedger), c.tenders)
	c.evaluation = evaluation.New(cfg.adminFor(protocol.Evaluation), c.tenders, c.bids)
	var verifier fulfillment.AwardVerifier = fulfillment.TrustCaller{}
	if cfg.StrictAwardCheck {
		verifier = c.evaluation
	}
	c.contracts = fulfillment.New(cfg.adminFor(protocol.FulfillmentTracker), verifier)
	c.height.Store(cfg.GenesisHeight)
	c.publishMetrics()
	return c
}

func (c Config) adminFor(comp protocol.Component) protocol.Principal {
	if p, ok := c.Admins[comp]; ok && p != "" {
		return p
	}
	return c.DefaultAdmin
}

func (c *Chain) SetReceiptLogger(l ReceiptLogger)               { c.receiptLogger = l }
func (c *Chain) SetAuditLogger(l AuditLogger)                   { c.auditLogger = l }
func (c *Chain) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { c.snapshotSink = ch }

func (c *Chain) ID() string { return c.cfg.ID }

// Height is safe to call from any goroutine.
func (c *Chain) Height() uint64 { return c.height.Load() }

func (c *Chain) GenesisHeight() uint64 { return c.cfg.GenesisHeight }

func (c *Chain) Deployed(comp protocol.Component) bool { return c.deployed[comp] }

// Deploy (re)installs the components named by comp, a canonical name or a legacy alias.
// Each one gets the configured admin and empty maps, and is recorded under its canonical name.
func (c *Chain) Deploy(comp protocol.Component) error {
	targets, ok := protocol.DeployTargets(string(comp))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownComponent, comp)
	}
	for _, t := range targets {
		admin := c.cfg.adminFor(t)
		c.resetComponent(t, admin)
		c.deployed[t] = true
		c.record(Receipt{Kind: KindDeploy, Component: string(t), Success: true})
		c.audit(AuditEntry{Actor: admin, Component: t, Action: KindDeploy, Target: string(t)})
	}
	c.publishMetrics()
	return nil
}

func (c *Chain) resetComponent(comp protocol.Component, admin protocol.Principal) {
	switch comp {
	case protocol.VendorRegistry:
		c.vendors.Reset(admin)
	case protocol.TenderBoard:
		c.tenders.Reset(admin)
	case protocol.BidLedger:
		c.bids.Reset(admin)
	case protocol.FulfillmentTracker:
		c.contracts.Reset(admin)
	case protocol.Evaluation:
		c.evaluation.Reset(admin)
	}
}

// DeployAll deploys every component in protocol.Components order.
func (c *Chain) DeployAll() error {
	for _, comp := range protocol.Components {
		if err := c.Deploy(comp); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears every component, every deployment, and rewinds the clock to genesis.
// The state being discarded is offered to the snapshot sink first.
func (c *Chain) Reset() {
	c.emitSnapshot(snapshot.ReasonReset)
	c.vendors.Reset(c.cfg.adminFor(protocol.VendorRegistry))
	c.tenders.Reset(c.cfg.adminFor(protocol.TenderBoard))
	c.bids.Reset(c.cfg.adminFor(protocol.BidLedger))
	c.contracts.Reset(c.cfg.adminFor(protocol.FulfillmentTracker))
	c.evaluation.Reset(c.cfg.adminFor(protocol.Evaluation))
	c.deployed = map[protocol.Component]bool{}
	c.height.Store(c.cfg.GenesisHeight)
	c.stats.resets++
	c.record(Receipt{Kind: KindReset, Success: true})
	c.publishMetrics()
}

// Advance moves the clock forward by blocks and returns the new height.
// A step that would wrap the height is rejected and leaves the clock unchanged.
func (c *Chain) Advance(blocks uint64) (uint64, error) {
	prev := c.height.Load()
	if blocks == 0 {
		return prev, nil
	}
	if prev+blocks < prev {
		return prev, fmt.Errorf("%w: %d + %d", ErrHeightOverflow, prev, blocks)
	}
	h := c.height.Add(blocks)
	c.record(Receipt{Kind: KindAdvance, Blocks: blocks, Success: true})
	if every := c.cfg.SnapshotEveryHeights; every > 0 && prev/every != h/every {
		c.emitSnapshot(snapshot.ReasonPeriodic)
	}
	c.publishMetrics()
	return h, nil
}

func (c *Chain) record(r Receipt) {
	c.seq++
	r.Seq = c.seq
	r.Height = c.height.Load()
	if c.receiptLogger == nil {
		return
	}
	r.Digest = c.StateDigest()
	_ = c.receiptLogger.WriteReceipt(r)
}

func (c *Chain) audit(e AuditEntry) {
	if c.auditLogger == nil {
		return
	}
	e.Height = c.height.Load()
	_ = c.auditLogger.WriteAudit(e)
}
