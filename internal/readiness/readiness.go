// Package readiness reduces a workflow's resolved agent dependencies to a
// single status. The computation is a pure function over a registry
// snapshot plus the user's activation flag; nothing here blocks, mutates,
// or remembers previous results.
package readiness

import (
	"github.com/ferrova/agentdeck/internal/registry"
	"github.com/ferrova/agentdeck/internal/resolve"
	"github.com/ferrova/agentdeck/internal/workflow"
)

// State is the verdict for one workflow.
type State string

const (
	// Ready means every required agent resolved and is online (or the
	// workflow has no agent dependency to verify).
	Ready State = "ready"
	// Partial means some, but not all, required agents are online.
	Partial State = "partial"
	// Unavailable means no required agent is online.
	Unavailable State = "unavailable"
	// Disabled means the user has not activated the workflow; agent state is
	// irrelevant.
	Disabled State = "disabled"
)

// Requirement is one unique agent dependency of a workflow together with
// how it resolved against the snapshot. An unresolved dependency is not an
// error — it simply counts as offline.
type Requirement struct {
	AgentName    string `json:"agentName"`
	Resolved     bool   `json:"resolved"`
	ResolvedName string `json:"resolvedName,omitempty"`
	Online       bool   `json:"online"`
}

// Status computes the readiness of a workflow against a registry snapshot.
// Identical inputs always produce identical output.
func Status(def workflow.Definition, activated bool, agents []registry.AgentStatus) (State, []Requirement) {
	reqs := Requirements(def, agents)
	if !activated {
		return Disabled, reqs
	}
	if len(reqs) == 0 {
		return Ready, reqs
	}

	online := 0
	for _, r := range reqs {
		if r.Online {
			online++
		}
	}
	switch {
	case online == len(reqs):
		return Ready, reqs
	case online == 0:
		return Unavailable, reqs
	default:
		return Partial, reqs
	}
}

// Requirements resolves each unique agent name a workflow references.
func Requirements(def workflow.Definition, agents []registry.AgentStatus) []Requirement {
	names := def.AgentNames()
	reqs := make([]Requirement, 0, len(names))
	for _, name := range names {
		req := Requirement{AgentName: name}
		if match, ok := resolve.Resolve(name, agents); ok {
			req.Resolved = true
			req.ResolvedName = match.Descriptor.Name
			req.Online = match.Online()
		}
		reqs = append(reqs, req)
	}
	return reqs
}
