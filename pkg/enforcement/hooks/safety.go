package hooks

import (
	"context"
	"log/slog"

	"fleetgrid/warden/pkg/enforcement"
	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/policy/ast"
)

// SafetyHook enforces safety-domain actions: speed limiting, driver alerts,
// vehicle lockout. Critical violations are never settled autonomously;
// anything touching a vehicle's drivability beyond a soft limit escalates.
type SafetyHook struct {
	logger *slog.Logger
}

// NewSafetyHook creates the safety-domain hook.
func NewSafetyHook() *SafetyHook {
	return &SafetyHook{logger: slog.Default().With("component", "hooks.safety")}
}

// Apply decides one safety action.
func (h *SafetyHook) Apply(ctx context.Context, action ast.Action, hctx *enforcement.Context) (ledger.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Critical severity always goes to a human.
	if hctx.Policy.Severity == ast.SeverityCritical {
		return ledger.OutcomeEscalated, nil
	}

	switch action.Type {
	case "limit_speed", "alert_driver", "log_incident":
		h.logger.Info("safety action applied",
			"action", action.Type,
			"entity_id", hctx.Event.EntityID,
		)
		return ledger.OutcomeAllowed, nil

	case "disable_vehicle", "force_stop":
		// Taking a vehicle off the road autonomously is off the table.
		return ledger.OutcomeEscalated, nil

	default:
		return ledger.OutcomeEscalated, nil
	}
}

var _ enforcement.Hook = (*SafetyHook)(nil)
