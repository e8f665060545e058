package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDescriptor indicates a registration payload is missing required fields.
var ErrInvalidDescriptor = errors.New("invalid agent descriptor")

// Capabilities lists the feature flags an agent advertises.
type Capabilities struct {
	Streaming bool `json:"streaming,omitempty"`
}

// AgentProvider carries organization metadata about who operates the agent.
type AgentProvider struct {
	Organization string `json:"organization,omitempty"`
}

// AgentDescriptor is the agent card a worker agent publishes when it
// registers itself. The wire shape matches what remote agents POST to
// /agents/register.
type AgentDescriptor struct {
	Name         string        `json:"name"`
	BaseURL      string        `json:"baseUrl"`
	Description  string        `json:"description,omitempty"`
	Capabilities Capabilities  `json:"capabilities,omitempty"`
	Provider     AgentProvider `json:"provider,omitempty"`
	IconURL      string        `json:"iconUrl,omitempty"`
}

// Key identifies a registry entry. Two registrations with the same name and
// base URL supersede each other; different base URLs are distinct agents.
func (d AgentDescriptor) Key() string {
	return d.Name + "|" + d.BaseURL
}

// Validate checks the required registration fields.
func (d AgentDescriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if strings.TrimSpace(d.BaseURL) == "" {
		return fmt.Errorf("%w: baseUrl is required", ErrInvalidDescriptor)
	}
	return nil
}
