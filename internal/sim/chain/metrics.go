package chain

import (
	"sort"
	"time"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

// ChainMetrics is a thread-safe read-only view of the chain.
// It is updated from the chain goroutine and read from HTTP handlers/tests.
type ChainMetrics struct {
	ChainID string `json:"chain_id"`
	Height  uint64 `json:"height"`

	Components []ComponentMetrics `json:"components"`

	RequestsTotal uint64          `json:"requests_total"`
	Failures      []FailureMetric `json:"failures,omitempty"`
	ResetTotal    uint64          `json:"reset_total"`

	QueueDepths QueueDepths `json:"queue_depths"`

	LastExecMS float64 `json:"last_exec_ms"`
}

type ComponentMetrics struct {
	Name     protocol.Component `json:"name"`
	Deployed bool               `json:"deployed"`
	Admin    protocol.Principal `json:"admin"`
	Records  int                `json:"records"`
}

type FailureMetric struct {
	Component protocol.Component `json:"component"`
	Code      protocol.Code      `json:"code"`
	Count     uint64             `json:"count"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Admin int `json:"admin"`
}

type failureKey struct {
	component protocol.Component
	code      protocol.Code
}

type counters struct {
	requests uint64
	resets   uint64
	failures map[failureKey]uint64
	lastExec time.Duration
}

func (c *Chain) Metrics() ChainMetrics {
	if c == nil {
		return ChainMetrics{}
	}
	v := c.metrics.Load()
	if v == nil {
		return ChainMetrics{}
	}
	m, ok := v.(ChainMetrics)
	if !ok {
		return ChainMetrics{}
	}
	return m
}

// ComponentInfo reports deployment state for WELCOME messages.
func (m ChainMetrics) ComponentInfo() []protocol.ComponentInfo {
	out := make([]protocol.ComponentInfo, 0, len(m.Components))
	for _, cm := range m.Components {
		out = append(out, protocol.ComponentInfo{Name: cm.Name, Deployed: cm.Deployed, Admin: cm.Admin})
	}
	return out
}

func (c *Chain) publishMetrics() {
	if c.stats.failures == nil {
		c.stats.failures = map[failureKey]uint64{}
	}
	comps := make([]ComponentMetrics, 0, len(protocol.Components))
	for _, comp := range protocol.Components {
		comps = append(comps, ComponentMetrics{
			Name:     comp,
			Deployed: c.deployed[comp],
			Admin:    c.adminOf(comp),
			Records:  c.records(comp),
		})
	}
	failures := make([]FailureMetric, 0, len(c.stats.failures))
	for k, n := range c.stats.failures {
		failures = append(failures, FailureMetric{Component: k.component, Code: k.code, Count: n})
	}
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].Component != failures[j].Component {
			return failures[i].Component < failures[j].Component
		}
		return failures[i].Code < failures[j].Code
	})
	c.metrics.Store(ChainMetrics{
		ChainID:       c.cfg.ID,
		Height:        c.height.Load(),
		Components:    comps,
		RequestsTotal: c.stats.requests,
		Failures:      failures,
		ResetTotal:    c.stats.resets,
		QueueDepths: QueueDepths{
			Inbox: len(c.inbox),
			Admin: len(c.deploy) + len(c.reset) + len(c.advance) + len(c.snapshot),
		},
		LastExecMS: float64(c.stats.lastExec.Microseconds()) / 1000,
	})
}

func (c *Chain) adminOf(comp protocol.Component) protocol.Principal {
	switch comp {
	case protocol.VendorRegistry:
		return c.vendors.Admin()
	case protocol.TenderBoard:
		return c.tenders.Admin()
	case protocol.BidLedger:
		return c.bids.Admin()
	case protocol.FulfillmentTracker:
		return c.contracts.Admin()
	case protocol.Evaluation:
		return c.evaluation.Admin()
	}
	return ""
}

func (c *Chain) records(comp protocol.Component) int {
	switch comp {
	case protocol.VendorRegistry:
		return c.vendors.Len()
	case protocol.TenderBoard:
		return c.tenders.Len()
	case protocol.BidLedger:
		return c.bids.Len()
	case protocol.FulfillmentTracker:
		return c.contracts.Len()
	case protocol.Evaluation:
		return c.evaluation.Len()
	}
	return 0
}
