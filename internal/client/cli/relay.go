package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/iudanet/meshsync/pkg/api"
)

type relayView struct {
	Health  *api.HealthResponse
	Devices []api.DeviceInfo
	Frames  []api.FrameInfo
}

// runRelay: relay [-frames N]
func (c *Cli) runRelay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	frames := fs.Int("frames", 0, "Number of recent frames to show")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *frames < 0 {
		return fmt.Errorf("%w: -frames must not be negative", ErrUsage)
	}

	if c.relay == nil {
		return ErrNoRelayAPI
	}

	health, err := c.relay.Health(ctx)
	if err != nil {
		return err
	}
	devices, err := c.relay.Devices(ctx)
	if err != nil {
		return err
	}

	view := relayView{Health: health, Devices: devices.Devices}
	if *frames > 0 {
		resp, err := c.relay.Frames(ctx, *frames)
		if err != nil {
			return err
		}
		view.Frames = resp.Frames
	}

	return relayTmpl.Execute(c.io, view)
}
