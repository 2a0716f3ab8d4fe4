package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/iudanet/meshsync/internal/client/engine"
)

// runConflicts: conflicts [-all]
func (c *Cli) runConflicts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("conflicts", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	all := fs.Bool("all", false, "Include resolved conflicts")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	records, err := c.engine.ListConflicts(ctx, !*all)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}
	return conflictsTmpl.Execute(c.io, records)
}

// runResolve: resolve [-payload JSON|-delete] [-notes TEXT] <conflict-id> [winner-op-id]
func (c *Cli) runResolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	payload := fs.String("payload", "", "Replacement JSON content")
	del := fs.Bool("delete", false, "Resolve by deleting the document")
	notes := fs.String("notes", "", "Resolution notes")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	rest := fs.Args()
	if len(rest) < 1 || len(rest) > 2 {
		return fmt.Errorf("%w: usage: resolve [-payload JSON|-delete] [-notes TEXT] <conflict-id> [winner-op-id]", ErrUsage)
	}

	d := engine.Decision{Notes: *notes, Delete: *del}
	if len(rest) == 2 {
		d.WinnerOperationID = rest[1]
	}
	if *payload != "" {
		if !json.Valid([]byte(*payload)) {
			return fmt.Errorf("%w: payload is not valid JSON", ErrUsage)
		}
		d.Payload = []byte(*payload)
	}

	choices := 0
	for _, set := range []bool{d.WinnerOperationID != "", d.Payload != nil, d.Delete} {
		if set {
			choices++
		}
	}
	if choices != 1 {
		return fmt.Errorf("%w: specify exactly one of winner-op-id, -payload or -delete", ErrUsage)
	}

	opID, err := c.engine.ResolveConflict(ctx, rest[0], d)
	if err != nil {
		return fmt.Errorf("failed to resolve conflict: %w", err)
	}

	c.io.Printf("✓ Conflict %s resolved by operation %s\n", rest[0], opID)
	return nil
}
