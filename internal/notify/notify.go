// Package notify fans readiness alerts out to chat platforms. When a
// workflow's readiness changes — an agent fleet degrading under it or
// recovering — operators hear about it without watching the dashboard.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/ferrova/agentdeck/internal/readiness"
	"go.uber.org/zap"
)

// Alert describes one workflow readiness change.
type Alert struct {
	WorkflowID   string          `json:"workflow_id"`
	WorkflowName string          `json:"workflow_name"`
	From         readiness.State `json:"from"`
	To           readiness.State `json:"to"`
	Detail       string          `json:"detail,omitempty"`
}

// Text renders the alert as a single chat-friendly line.
func (a *Alert) Text() string {
	return fmt.Sprintf("Workflow %q: %s → %s%s", a.WorkflowName, a.From, a.To, a.suffix())
}

func (a *Alert) suffix() string {
	if a.Detail == "" {
		return ""
	}
	return " (" + a.Detail + ")"
}

// Notifier is a platform adapter that can deliver an alert.
type Notifier interface {
	Platform() string
	Notify(ctx context.Context, alert *Alert) error
	Close() error
}

// Hub manages all platform notifiers and fans alerts out to them.
type Hub struct {
	notifiers map[string]Notifier
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewHub creates a notifier hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		notifiers: make(map[string]Notifier),
		logger:    logger,
	}
}

// Register adds a platform notifier.
func (h *Hub) Register(n Notifier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifiers[n.Platform()] = n
	h.logger.Info("registered notifier", zap.String("platform", n.Platform()))
}

// Notify delivers the alert to every registered platform. A platform
// failing only logs; alerts are best-effort.
func (h *Hub) Notify(ctx context.Context, alert *Alert) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for platform, n := range h.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			h.logger.Warn("alert delivery failed",
				zap.String("platform", platform),
				zap.String("workflow", alert.WorkflowName),
				zap.Error(err))
		}
	}
}

// Platforms returns the registered platform names.
func (h *Hub) Platforms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.notifiers))
	for p := range h.notifiers {
		names = append(names, p)
	}
	return names
}

// Close shuts down all notifiers.
func (h *Hub) Close() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for platform, n := range h.notifiers {
		if err := n.Close(); err != nil {
			h.logger.Error("notifier close failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
	return nil
}
