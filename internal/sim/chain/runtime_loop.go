package chain

import (
	"context"
	"time"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
)

// Run owns the chain until ctx is cancelled or Stop is called. Requests are applied one at a
// time in arrival order; the clock only moves on advance requests or the block ticker.
func (c *Chain) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if c.cfg.BlockInterval > 0 {
		ticker := time.NewTicker(c.cfg.BlockInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		case req := <-c.inbox:
			resp := c.Execute(req.Req)
			reply(req.Resp, execResp{Height: c.height.Load(), Resp: resp})
		case req := <-c.deploy:
			c.handleDeploy(req)
		case req := <-c.reset:
			c.Reset()
			reply(req.Resp, adminResp{Height: c.height.Load()})
		case req := <-c.advance:
			h, err := c.Advance(req.Blocks)
			reply(req.Resp, adminResp{Height: h, Err: err})
		case req := <-c.snapshot:
			c.handleSnapshot(req)
		case <-tick:
			_, _ = c.Advance(1)
		}
	}
}

func (c *Chain) Stop() { close(c.stop) }

func (c *Chain) handleDeploy(req deployReq) {
	resp := adminResp{Height: c.height.Load()}
	if err := c.Deploy(req.Component); err != nil {
		resp.Err = err
	}
	reply(req.Resp, resp)
}

func (c *Chain) handleSnapshot(req snapshotReq) {
	resp := adminResp{Height: c.height.Load()}
	switch {
	case c.snapshotSink == nil:
		resp.Err = ErrNoSnapshotSink
	case !c.emitSnapshot(snapshot.ReasonRequested):
		resp.Err = ErrSnapshotBackpressure
	}
	reply(req.Resp, resp)
}

func reply[T any](ch chan T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}
