package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ferrova/agentdeck/internal/probe"
	"github.com/ferrova/agentdeck/internal/readiness"
	"github.com/ferrova/agentdeck/internal/registry"
	"github.com/ferrova/agentdeck/internal/workflow"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	reg     *registry.Registry
	catalog *workflow.Catalog
	prober  *probe.Prober
	logger  *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(reg *registry.Registry, catalog *workflow.Catalog, prober *probe.Prober, logger *zap.Logger) *Handler {
	return &Handler{
		reg:     reg,
		catalog: catalog,
		prober:  prober,
		logger:  logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.healthCheck)
	r.Get("/status", h.dashboardStatus)
	r.Post("/probe", h.triggerProbe)

	r.Post("/agents/register", h.registerAgent)
	r.Get("/agents", h.listAgents)
	r.Get("/agents/{name}", h.getAgent)

	r.Get("/workflows", h.listWorkflows)
	r.Post("/workflows", h.createWorkflow)
	r.Get("/workflows/{id}/readiness", h.workflowReadiness)
	r.Post("/workflows/{id}/activate", h.activateWorkflow)
	r.Post("/workflows/{id}/deactivate", h.deactivateWorkflow)

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "agentdeck"})
}

func (h *Handler) registerAgent(w http.ResponseWriter, r *http.Request) {
	var d registry.AgentDescriptor
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.reg.Register(d); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, registry.ErrInvalidDescriptor) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"status":  "registered",
		"name":    d.Name,
		"baseUrl": d.BaseURL,
	})
}

// agentView is the registry export shape consumed by the dashboard.
type agentView struct {
	Name         string                 `json:"name"`
	Status       string                 `json:"status"`
	Description  string                 `json:"description,omitempty"`
	Capabilities registry.Capabilities  `json:"capabilities"`
	Provider     registry.AgentProvider `json:"provider"`
	IconURL      string                 `json:"iconUrl,omitempty"`
}

func exportAgent(a registry.AgentStatus) agentView {
	status := "offline"
	if a.Online() {
		status = "online"
	}
	return agentView{
		Name:         a.Descriptor.Name,
		Status:       status,
		Description:  a.Descriptor.Description,
		Capabilities: a.Descriptor.Capabilities,
		Provider:     a.Descriptor.Provider,
		IconURL:      a.Descriptor.IconURL,
	}
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.reg.List()
	out := make([]agentView, 0, len(agents))
	for _, a := range agents {
		out = append(out, exportAgent(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := h.reg.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, exportAgent(a))
}

// workflowView pairs a catalog item with its freshly computed readiness.
// Readiness is never stored; every GET recomputes it from the snapshot.
type workflowView struct {
	workflow.Item
	Readiness readiness.State         `json:"readiness"`
	Agents    []readiness.Requirement `json:"agents"`
}

func (h *Handler) listWorkflows(w http.ResponseWriter, r *http.Request) {
	snapshot := h.reg.List()
	items := h.catalog.List()
	out := make([]workflowView, 0, len(items))
	for _, item := range items {
		state, reqs := readiness.Status(item.Definition, item.Activated, snapshot)
		out = append(out, workflowView{Item: item, Readiness: state, Agents: reqs})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var def workflow.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if def.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	def.ID = ""
	def.IsCustom = true
	created, err := h.catalog.Add(r.Context(), def)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) workflowReadiness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, ok := h.catalog.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workflow not found"})
		return
	}
	state, reqs := readiness.Status(item.Definition, item.Activated, h.reg.List())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"workflowId": item.ID,
		"readiness":  state,
		"agents":     reqs,
	})
}

func (h *Handler) activateWorkflow(w http.ResponseWriter, r *http.Request) {
	h.setActivation(w, r, true)
}

func (h *Handler) deactivateWorkflow(w http.ResponseWriter, r *http.Request) {
	h.setActivation(w, r, false)
}

func (h *Handler) setActivation(w http.ResponseWriter, r *http.Request, activated bool) {
	id := chi.URLParam(r, "id")
	if err := h.catalog.SetActivated(r.Context(), id, activated); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, workflow.ErrWorkflowNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "activated": activated})
}

func (h *Handler) dashboardStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := h.reg.List()
	online := 0
	for _, a := range snapshot {
		if a.Online() {
			online++
		}
	}

	byState := map[readiness.State]int{}
	for _, item := range h.catalog.List() {
		state, _ := readiness.Status(item.Definition, item.Activated, snapshot)
		byState[state]++
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": map[string]int{
			"total":   len(snapshot),
			"online":  online,
			"offline": len(snapshot) - online,
		},
		"workflows": map[string]int{
			"ready":       byState[readiness.Ready],
			"partial":     byState[readiness.Partial],
			"unavailable": byState[readiness.Unavailable],
			"disabled":    byState[readiness.Disabled],
		},
	})
}

func (h *Handler) triggerProbe(w http.ResponseWriter, r *http.Request) {
	if h.prober == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "prober not initialized"})
		return
	}
	probed := h.prober.Sweep(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "probed",
		"agents_probed": probed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
