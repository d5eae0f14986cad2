package pipeline

import (
	"context"
	"log/slog"
)

// Handler is the contract every feature author implements. The pipeline is
// the sole caller; params are the validated, extracted request parameters.
type Handler interface {
	Execute(ctx context.Context, params map[string]string) (*HandlerResult, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, params map[string]string) (*HandlerResult, error)

func (f HandlerFunc) Execute(ctx context.Context, params map[string]string) (*HandlerResult, error) {
	return f(ctx, params)
}

// HandlerResult is what a feature computes. The pipeline wraps it into the
// envelope; a handler never sees or builds the envelope itself.
type HandlerResult struct {
	Data    any
	Message string
	Intent  string
	Actions []Action
}

// ActionType tags an action for the UI-side dispatcher. The set is closed;
// anything else is Unknown and passed through, never dropped.
type ActionType string

const (
	ActionTrade   ActionType = "trade"
	ActionAlert   ActionType = "alert"
	ActionUnknown ActionType = "unknown"
)

// Action is one tagged item in a feature's action list. The host passes the
// list through to the UI collaborator unmodified.
type Action struct {
	Type    ActionType `json:"type"`
	Payload any        `json:"payload,omitempty"`

	// RawType preserves the original tag when Type is ActionUnknown.
	RawType string `json:"rawType,omitempty"`
}

// normalizeActions resolves unrecognized tags to ActionUnknown, logging each
// one so misbehaving features are visible without breaking their output.
func normalizeActions(logger *slog.Logger, featureID string, actions []Action) []Action {
	for i, a := range actions {
		switch a.Type {
		case ActionTrade, ActionAlert:
		default:
			logger.Warn("unknown action type passed through",
				"feature_id", featureID, "action_type", string(a.Type))
			actions[i].RawType = string(a.Type)
			actions[i].Type = ActionUnknown
		}
	}
	return actions
}

// hasTradeAction reports whether the result attempts a trade, via either the
// intent field or a trade-tagged action.
func hasTradeAction(res *HandlerResult) bool {
	if res.Intent == "trade" {
		return true
	}
	for _, a := range res.Actions {
		if a.Type == ActionTrade {
			return true
		}
	}
	return false
}
