package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"fleetgrid/warden/pkg/event"
	"fleetgrid/warden/pkg/warden"
)

// maxEventLine bounds a single intake line.
const maxEventLine = 1 << 20

// submitEvents reads newline-delimited JSON events from r and submits each
// one through the service facade. Malformed lines and per-event failures are
// logged and skipped so one bad record cannot stall the stream. Returns when
// r is drained, the scanner fails, or the context is cancelled.
func submitEvents(ctx context.Context, svc *warden.Service, r io.Reader) error {
	logger := slog.Default().With("component", "intake")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev event.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			logger.Error("skipping malformed event", "error", err)
			continue
		}

		verdicts, err := svc.SubmitEvent(ctx, &ev)
		if err != nil {
			logger.Error("event submission failed",
				"event_id", ev.ID,
				"tenant_id", ev.TenantID,
				"error", err,
			)
			continue
		}
		logger.Info("event processed",
			"event_id", ev.ID,
			"tenant_id", ev.TenantID,
			"domain", ev.Domain,
			"verdicts", len(verdicts),
		)
	}
	return scanner.Err()
}
