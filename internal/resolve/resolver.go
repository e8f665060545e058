// Package resolve maps a workflow step's declared agent name to a concrete
// registered agent. Workflow authors write loose references ("deep_search")
// while agents announce display names ("Deep Search Agent"); resolution
// bridges the two without requiring exact identity.
package resolve

import (
	"strings"

	"github.com/ferrova/agentdeck/internal/registry"
)

var separators = strings.NewReplacer("_", " ", "-", " ")

// fold normalizes a name for comparison: lower case, separator characters
// collapsed to spaces, surrounding whitespace trimmed.
func fold(name string) string {
	return strings.TrimSpace(separators.Replace(strings.ToLower(name)))
}

// Resolve finds the registered agent a declared step name refers to.
// Matching rules, first hit wins:
//
//  1. case-insensitive exact equality
//  2. case-insensitive containment, in either direction
//
// Rule 2 scans agents in registry iteration order, so when several
// registered names overlap the declared name the earliest-registered one is
// chosen. No match is not an error: the caller treats the dependency as
// offline.
func Resolve(declared string, agents []registry.AgentStatus) (registry.AgentStatus, bool) {
	want := fold(declared)
	if want == "" {
		return registry.AgentStatus{}, false
	}

	for _, a := range agents {
		if fold(a.Descriptor.Name) == want {
			return a, true
		}
	}

	for _, a := range agents {
		have := fold(a.Descriptor.Name)
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return a, true
		}
	}

	return registry.AgentStatus{}, false
}
