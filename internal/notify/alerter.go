package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/ferrova/agentdeck/internal/readiness"
	"github.com/ferrova/agentdeck/internal/registry"
	"github.com/ferrova/agentdeck/internal/workflow"
	"go.uber.org/zap"
)

// Alerter watches for workflow readiness changes. It keeps the last state
// it reported per workflow; on each recheck it recomputes readiness from a
// fresh registry snapshot and alerts only the workflows whose state moved.
// The readiness computation itself stays pure — this memo exists solely to
// suppress duplicate alerts, never to answer status queries.
type Alerter struct {
	catalog *workflow.Catalog
	reg     *registry.Registry
	hub     *Hub
	last    map[string]readiness.State
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewAlerter creates an alerter over the catalog and registry.
func NewAlerter(catalog *workflow.Catalog, reg *registry.Registry, hub *Hub, logger *zap.Logger) *Alerter {
	return &Alerter{
		catalog: catalog,
		reg:     reg,
		hub:     hub,
		last:    make(map[string]readiness.State),
		logger:  logger,
	}
}

// Recheck recomputes every workflow's readiness and alerts the changes.
// The first observation of a workflow only records a baseline; a service
// coming up must not replay the entire catalog as "changes". The lock only
// covers the state memo — delivery happens after release so a slow chat
// platform cannot stall the next recheck.
func (a *Alerter) Recheck(ctx context.Context) {
	snapshot := a.reg.List()

	var alerts []*Alert
	a.mu.Lock()
	for _, item := range a.catalog.List() {
		state, reqs := readiness.Status(item.Definition, item.Activated, snapshot)

		prev, seen := a.last[item.ID]
		a.last[item.ID] = state
		if !seen || prev == state {
			continue
		}

		alerts = append(alerts, &Alert{
			WorkflowID:   item.ID,
			WorkflowName: item.Name,
			From:         prev,
			To:           state,
			Detail:       describe(reqs),
		})
	}
	a.mu.Unlock()

	for _, alert := range alerts {
		a.logger.Info("workflow readiness changed",
			zap.String("workflow", alert.WorkflowName),
			zap.String("from", string(alert.From)),
			zap.String("to", string(alert.To)))
		a.hub.Notify(ctx, alert)
	}
}

func describe(reqs []readiness.Requirement) string {
	online := 0
	for _, r := range reqs {
		if r.Online {
			online++
		}
	}
	return fmt.Sprintf("%d/%d required agents online", online, len(reqs))
}
