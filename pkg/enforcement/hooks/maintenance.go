package hooks

import (
	"context"
	"log/slog"

	"fleetgrid/warden/pkg/enforcement"
	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/policy/ast"
)

// repeatOffenseThreshold is the number of open violations on an entity
// above which the maintenance hook stops acting autonomously.
const repeatOffenseThreshold = 3

// MaintenanceHook enforces maintenance-domain actions. A vehicle piling up
// open violations is a pattern, not a scheduling problem, so repeat
// offenders escalate.
type MaintenanceHook struct {
	logger *slog.Logger
}

// NewMaintenanceHook creates the maintenance-domain hook.
func NewMaintenanceHook() *MaintenanceHook {
	return &MaintenanceHook{logger: slog.Default().With("component", "hooks.maintenance")}
}

// Apply decides one maintenance action.
func (h *MaintenanceHook) Apply(ctx context.Context, action ast.Action, hctx *enforcement.Context) (ledger.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if hctx.Ledger != nil {
		open, err := hctx.Ledger.ListViolations(ctx, &ledger.Query{
			TenantID: hctx.Event.TenantID,
			EntityID: hctx.Event.EntityID,
			Domain:   hctx.Event.Domain,
			Status:   ledger.StatusOpen,
		})
		if err != nil {
			return "", err
		}
		if len(open) > repeatOffenseThreshold {
			h.logger.Warn("repeat offender, escalating",
				"entity_id", hctx.Event.EntityID,
				"open_violations", len(open),
			)
			return ledger.OutcomeEscalated, nil
		}
	}

	switch action.Type {
	case "schedule_service", "flag_inspection":
		h.logger.Info("maintenance action applied",
			"action", action.Type,
			"entity_id", hctx.Event.EntityID,
		)
		return ledger.OutcomeAllowed, nil

	case "ground_vehicle":
		return ledger.OutcomeEscalated, nil

	default:
		return ledger.OutcomeEscalated, nil
	}
}

var _ enforcement.Hook = (*MaintenanceHook)(nil)
