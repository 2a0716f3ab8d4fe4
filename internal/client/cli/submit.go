package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/iudanet/meshsync/internal/client/recordstore"
	"github.com/iudanet/meshsync/internal/models"
)

// runSubmit: submit [-priority P] <create|update|delete> <collection> <doc-id> [json]
func (c *Cli) runSubmit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	priority := fs.String("priority", "", "Priority lane (critical, high, medium, low)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	rest := fs.Args()
	if len(rest) < 3 {
		return fmt.Errorf("%w: usage: submit [-priority P] <create|update|delete> <collection> <doc-id> [json]", ErrUsage)
	}

	kind := models.OperationKind(rest[0])
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown operation kind %q", ErrUsage, rest[0])
	}
	collection, documentID := rest[1], rest[2]

	var lane models.Priority
	if *priority != "" {
		p, err := models.ParsePriority(*priority)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUsage, err)
		}
		lane = p
	}

	var payload []byte
	switch {
	case kind == models.KindDelete:
		if len(rest) > 3 {
			return fmt.Errorf("%w: delete takes no payload", ErrUsage)
		}
	case len(rest) != 4:
		return fmt.Errorf("%w: %s requires a JSON payload", ErrUsage, kind)
	default:
		payload = []byte(rest[3])
		if !json.Valid(payload) {
			return fmt.Errorf("%w: payload is not valid JSON", ErrUsage)
		}
	}

	id, err := c.engine.Submit(ctx, kind, collection, documentID, payload, lane)
	if err != nil {
		return fmt.Errorf("failed to submit operation: %w", err)
	}

	c.io.Printf("✓ Operation %s queued (%s %s/%s)\n", id, kind, collection, documentID)
	return nil
}

// runGet: get <collection> <doc-id>
func (c *Cli) runGet(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: usage: get <collection> <doc-id>", ErrUsage)
	}

	payload, err := c.engine.Get(ctx, args[0], args[1])
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return fmt.Errorf("document %s/%s not found", args[0], args[1])
		}
		return fmt.Errorf("failed to get document: %w", err)
	}

	if _, err := c.io.Write(payload); err != nil {
		return err
	}
	c.io.Println()
	return nil
}
