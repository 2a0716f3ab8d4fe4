package cli

import (
	"context"
	"fmt"
)

// Run выполняет команду; args не включают имя команды
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "run":
		return c.runSync(ctx)
	case "submit":
		return c.runSubmit(ctx, args)
	case "get":
		return c.runGet(ctx, args)
	case "status":
		return c.runStatus(ctx)
	case "topology":
		return c.runTopology()
	case "conflicts":
		return c.runConflicts(ctx, args)
	case "resolve":
		return c.runResolve(ctx, args)
	case "failed":
		return c.runFailed(ctx)
	case "retry":
		return c.runRetry(ctx, args)
	case "promote":
		return c.runPromote(ctx, args)
	case "relay":
		return c.runRelay(ctx, args)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("Sync started. Press Ctrl+C to stop.")
	if err := c.engine.Run(ctx); err != nil {
		return fmt.Errorf("sync stopped: %w", err)
	}
	c.io.Println("Sync stopped.")
	return nil
}
