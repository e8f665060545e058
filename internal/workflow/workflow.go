package workflow

// Step is a single stage in a workflow: which agent to call and what to ask
// of it. AgentName is a free-text reference resolved against the registry at
// read time, not a hard identity.
type Step struct {
	AgentName string `json:"agentName"`
	Task      string `json:"task"`
}

// Definition describes a multi-step workflow. Definitions are owned by the
// workflow store; the readiness engine only ever reads them.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	IsCustom    bool   `json:"isCustom"`
	Steps       []Step `json:"steps"`
}

// AgentNames returns the unique agent names referenced by the workflow's
// steps, in first-appearance order.
func (d Definition) AgentNames() []string {
	seen := make(map[string]struct{}, len(d.Steps))
	var names []string
	for _, s := range d.Steps {
		if _, ok := seen[s.AgentName]; ok {
			continue
		}
		seen[s.AgentName] = struct{}{}
		names = append(names, s.AgentName)
	}
	return names
}
