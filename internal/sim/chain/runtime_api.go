package chain

import (
	"context"
	"errors"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

type execReq struct {
	Req  protocol.ExecRequest
	Resp chan execResp
}

type execResp struct {
	Height uint64
	Resp   protocol.ExecResponse
}

type deployReq struct {
	Component protocol.Component
	Resp      chan adminResp
}

type resetReq struct {
	Resp chan adminResp
}

type advanceReq struct {
	Blocks uint64
	Resp   chan adminResp
}

type snapshotReq struct {
	Resp chan adminResp
}

type adminResp struct {
	Height uint64
	Err    error
}

var (
	ErrNotRunning           = errors.New("chain loop not available")
	ErrNoSnapshotSink       = errors.New("snapshot sink not configured")
	ErrSnapshotBackpressure = errors.New("snapshot sink backpressure")
)

// Submit hands req to the chain loop and waits for its response.
// It is safe to call from other goroutines (e.g. transport handlers).
func (c *Chain) Submit(ctx context.Context, req protocol.ExecRequest) (protocol.ExecResponse, uint64, error) {
	if c == nil || c.inbox == nil {
		return protocol.ExecResponse{}, 0, ErrNotRunning
	}
	resp := make(chan execResp, 1)
	select {
	case c.inbox <- execReq{Req: req, Resp: resp}:
	case <-ctx.Done():
		return protocol.ExecResponse{}, 0, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.Resp, r.Height, nil
	case <-ctx.Done():
		return protocol.ExecResponse{}, 0, ctx.Err()
	}
}

// RequestDeploy asks the chain loop to deploy (or redeploy) comp.
func (c *Chain) RequestDeploy(ctx context.Context, comp protocol.Component) (uint64, error) {
	if c == nil || c.deploy == nil {
		return 0, ErrNotRunning
	}
	resp := make(chan adminResp, 1)
	return awaitAdmin(ctx, c.deploy, deployReq{Component: comp, Resp: resp}, resp)
}

// RequestReset asks the chain loop to clear every component and rewind the clock.
func (c *Chain) RequestReset(ctx context.Context) (uint64, error) {
	if c == nil || c.reset == nil {
		return 0, ErrNotRunning
	}
	resp := make(chan adminResp, 1)
	return awaitAdmin(ctx, c.reset, resetReq{Resp: resp}, resp)
}

// RequestAdvance asks the chain loop to move the clock forward by blocks.
func (c *Chain) RequestAdvance(ctx context.Context, blocks uint64) (uint64, error) {
	if c == nil || c.advance == nil {
		return 0, ErrNotRunning
	}
	resp := make(chan adminResp, 1)
	return awaitAdmin(ctx, c.advance, advanceReq{Blocks: blocks, Resp: resp}, resp)
}

// RequestSnapshot asks the chain loop to export a snapshot to the configured sink.
func (c *Chain) RequestSnapshot(ctx context.Context) (uint64, error) {
	if c == nil || c.snapshot == nil {
		return 0, ErrNotRunning
	}
	resp := make(chan adminResp, 1)
	return awaitAdmin(ctx, c.snapshot, snapshotReq{Resp: resp}, resp)
}

func awaitAdmin[T any](ctx context.Context, ch chan T, req T, resp chan adminResp) (uint64, error) {
	select {
	case ch <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.Height, r.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
