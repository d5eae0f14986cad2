// Package dcabot is a built-in trading feature that schedules dollar-cost
// averaging orders. It exercises the wallet requirement and the executeTrade
// permission path.
package dcabot

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"

	"featurehost/internal/manifest"
	"featurehost/internal/pipeline"
)

//go:embed manifest.json
var manifestJSON []byte

// Manifest parses the embedded feature manifest.
func Manifest() (*manifest.Manifest, error) {
	return manifest.Parse(manifestJSON)
}

// Handler builds DCA schedule proposals as trade actions for the UI to
// confirm and dispatch.
type Handler struct{}

func New() *Handler {
	return &Handler{}
}

// Execute implements pipeline.Handler.
func (h *Handler) Execute(_ context.Context, params map[string]string) (*pipeline.HandlerResult, error) {
	tokenSymbol := params["token"]
	frequency := params["frequency"]

	amount, err := strconv.ParseFloat(params["amount"], 64)
	if err != nil || amount <= 0 {
		return nil, fmt.Errorf("amount must be a positive number")
	}

	schedule := map[string]any{
		"token":     tokenSymbol,
		"amount":    amount,
		"frequency": frequency,
		"slippage":  0.5,
	}
	return &pipeline.HandlerResult{
		Data:    schedule,
		Message: fmt.Sprintf("DCA schedule prepared: %s %v %s", frequency, amount, tokenSymbol),
		Intent:  "trade",
		Actions: []pipeline.Action{
			{Type: pipeline.ActionTrade, Payload: schedule},
		},
	}, nil
}
