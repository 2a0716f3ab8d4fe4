package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runStatus(ctx context.Context) error {
	stats, err := c.engine.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	return statusTmpl.Execute(c.io, stats)
}

func (c *Cli) runTopology() error {
	return topologyTmpl.Execute(c.io, c.engine.GetTopology())
}
