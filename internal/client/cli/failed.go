package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runFailed(ctx context.Context) error {
	ops, err := c.engine.ListFailed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list failed operations: %w", err)
	}
	return failedTmpl.Execute(c.io, ops)
}

// runRetry: retry <op-id>
func (c *Cli) runRetry(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: retry <op-id>", ErrUsage)
	}

	if err := c.engine.RetryFailed(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to retry operation: %w", err)
	}

	c.io.Printf("✓ Operation %s requeued\n", args[0])
	return nil
}

// runPromote: promote <device-id>
func (c *Cli) runPromote(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: promote <device-id>", ErrUsage)
	}

	if err := c.engine.PromotePrimary(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to promote device: %w", err)
	}

	topology := c.engine.GetTopology()
	c.io.Printf("✓ Primary is now %s (epoch %d)\n", topology.Primary, topology.Epoch)
	return nil
}
