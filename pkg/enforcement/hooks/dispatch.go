package hooks

import (
	"context"
	"log/slog"

	"fleetgrid/warden/pkg/enforcement"
	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/policy/ast"
)

// DispatchHook enforces dispatch-domain actions: holding or reassigning
// work. Enforcement against a driver requires that the driver acknowledged
// the policy version being enforced; otherwise the decision escalates.
type DispatchHook struct {
	logger *slog.Logger
}

// NewDispatchHook creates the dispatch-domain hook.
func NewDispatchHook() *DispatchHook {
	return &DispatchHook{logger: slog.Default().With("component", "hooks.dispatch")}
}

// Apply decides one dispatch action.
func (h *DispatchHook) Apply(ctx context.Context, action ast.Action, hctx *enforcement.Context) (ledger.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	driverID, _ := hctx.Event.Field("driver_id")
	driver, ok := driverID.(string)
	if !ok || driver == "" {
		// No identifiable driver: nothing to hold accountable.
		return ledger.OutcomeEscalated, nil
	}

	if hctx.Acks != nil {
		acked, err := hctx.Acks.Has(ctx, hctx.Policy.TenantID, hctx.Policy.ID, hctx.Policy.Version, driver)
		if err != nil {
			return "", err
		}
		if !acked {
			h.logger.Info("driver has not acknowledged policy, escalating",
				"driver_id", driver,
				"policy_id", hctx.Policy.ID,
				"policy_version", hctx.Policy.Version,
			)
			return ledger.OutcomeEscalated, nil
		}
	}

	switch action.Type {
	case "hold_dispatch", "require_rest":
		h.logger.Info("dispatch action applied",
			"action", action.Type,
			"driver_id", driver,
		)
		return ledger.OutcomeBlocked, nil

	case "reassign_route":
		return ledger.OutcomeAllowed, nil

	default:
		return ledger.OutcomeEscalated, nil
	}
}

var _ enforcement.Hook = (*DispatchHook)(nil)
