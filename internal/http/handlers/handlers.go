package handlers

import "github.com/autobot/go-bot-gateway/internal/services"

// Handlers bundles the HTTP endpoints with their injected dependencies.
type Handlers struct {
	gateway *services.GatewayOrchestrator
}

// New constructs the handler set around the gateway pipeline.
func New(gateway *services.GatewayOrchestrator) *Handlers {
	return &Handlers{gateway: gateway}
}
