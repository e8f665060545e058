package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrWorkflowNotFound indicates the requested workflow is not in the catalog.
var ErrWorkflowNotFound = errors.New("workflow not found")

// Persister is the optional storage backend behind the catalog. When nil,
// definitions and activation flags live only in memory.
type Persister interface {
	SaveWorkflow(ctx context.Context, def Definition, activated bool) error
	SetActivated(ctx context.Context, id string, activated bool) error
}

// Item is a catalog entry: a definition plus its user-controlled activation
// flag.
type Item struct {
	Definition
	Activated bool `json:"activated"`
}

type record struct {
	def       Definition
	activated bool
}

// Catalog holds all known workflow definitions and their activation flags.
// Built-in definitions come from a JSON seed file; custom ones arrive over
// the API. The catalog never computes readiness — that stays a pure
// function over a registry snapshot.
type Catalog struct {
	records   map[string]*record
	order     []string
	persister Persister
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog(logger *zap.Logger) *Catalog {
	return &Catalog{
		records: make(map[string]*record),
		logger:  logger,
	}
}

// SetPersister attaches a storage backend. Subsequent Add and SetActivated
// calls write through to it.
func (c *Catalog) SetPersister(p Persister) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persister = p
}

// LoadSeed reads built-in workflow definitions from a JSON file. Seed
// workflows start deactivated; the user opts in per workflow.
func (c *Catalog) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read workflow seed %s: %w", path, err)
	}

	var defs []Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("parse workflow seed %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, def := range defs {
		if def.ID == "" {
			def.ID = uuid.New().String()
		}
		c.put(def, false)
	}
	c.logger.Info("workflow seed loaded",
		zap.String("path", path),
		zap.Int("count", len(defs)))
	return nil
}

// Restore places a persisted workflow into the catalog without writing back
// to the persister. Used at startup to merge stored state over the seed.
func (c *Catalog) Restore(def Definition, activated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(def, activated)
}

// Add registers a workflow definition, minting an ID for custom workflows
// that lack one. Same-ID definitions are superseded.
func (c *Catalog) Add(ctx context.Context, def Definition) (Definition, error) {
	if def.Name == "" {
		return Definition{}, errors.New("workflow name is required")
	}
	if def.ID == "" {
		def.ID = uuid.New().String()
	}

	c.mu.Lock()
	c.put(def, false)
	p := c.persister
	c.mu.Unlock()

	if p != nil {
		if err := p.SaveWorkflow(ctx, def, false); err != nil {
			c.logger.Warn("workflow not persisted",
				zap.String("id", def.ID), zap.Error(err))
		}
	}
	c.logger.Info("workflow added",
		zap.String("id", def.ID),
		zap.String("name", def.Name),
		zap.Bool("custom", def.IsCustom))
	return def, nil
}

// SetActivated flips a workflow's activation flag.
func (c *Catalog) SetActivated(ctx context.Context, id string, activated bool) error {
	c.mu.Lock()
	rec, ok := c.records[id]
	if !ok {
		c.mu.Unlock()
		return ErrWorkflowNotFound
	}
	rec.activated = activated
	p := c.persister
	c.mu.Unlock()

	if p != nil {
		if err := p.SetActivated(ctx, id, activated); err != nil {
			c.logger.Warn("activation flag not persisted",
				zap.String("id", id), zap.Error(err))
		}
	}
	return nil
}

// Get returns one catalog item by ID.
func (c *Catalog) Get(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	if !ok {
		return Item{}, false
	}
	return Item{Definition: rec.def, Activated: rec.activated}, true
}

// List returns all catalog items in insertion order.
func (c *Catalog) List() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		if rec, ok := c.records[id]; ok {
			out = append(out, Item{Definition: rec.def, Activated: rec.activated})
		}
	}
	return out
}

// put assumes the caller holds the write lock.
func (c *Catalog) put(def Definition, activated bool) {
	if _, exists := c.records[def.ID]; !exists {
		c.order = append(c.order, def.ID)
	}
	c.records[def.ID] = &record{def: def, activated: activated}
}
