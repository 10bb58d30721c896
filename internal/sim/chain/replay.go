package chain

import (
	"fmt"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

// Apply re-runs one recorded receipt against c and returns the resulting code.
// It is used to replay receipt logs on a fresh chain built from the same config.
func Apply(c *Chain, r Receipt) (protocol.Code, error) {
	switch r.Kind {
	case KindExec:
		resp := c.Execute(protocol.ExecRequest{
			Component: r.Component,
			Method:    r.Method,
			Args:      r.Args,
			Sender:    r.Sender,
		})
		return resp.Code(), nil
	case KindDeploy:
		if err := c.Deploy(protocol.Component(r.Component)); err != nil {
			return protocol.CodeUnknownComponent, err
		}
		return protocol.OK, nil
	case KindReset:
		c.Reset()
		return protocol.OK, nil
	case KindAdvance:
		if _, err := c.Advance(r.Blocks); err != nil {
			return protocol.OK, err
		}
		return protocol.OK, nil
	default:
		return protocol.OK, fmt.Errorf("unknown receipt kind %q", r.Kind)
	}
}
