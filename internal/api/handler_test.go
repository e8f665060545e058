package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ferrova/agentdeck/internal/probe"
	"github.com/ferrova/agentdeck/internal/registry"
	"github.com/ferrova/agentdeck/internal/workflow"
	"go.uber.org/zap"
)

// newTestHandler creates a Handler wired with in-memory deps (no Postgres/Redis).
func newTestHandler(t *testing.T) (*Handler, http.Handler, *registry.Registry, *workflow.Catalog) {
	t.Helper()
	logger := zap.NewNop()
	reg := registry.New(1, logger)
	catalog := workflow.NewCatalog(logger)
	prober := probe.New(reg, time.Minute, time.Second, 4, logger)
	h := NewHandler(reg, catalog, prober, logger)
	return h, h.Router(), reg, catalog
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func getJSON(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	_, router, _, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getJSON(t, ts, "/health")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestRegisterAgent(t *testing.T) {
	_, router, _, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := postJSON(t, ts, "/agents/register", map[string]interface{}{
		"name":    "Stripe",
		"baseUrl": "http://localhost:8001",
		"capabilities": map[string]bool{
			"streaming": true,
		},
		"provider": map[string]string{"organization": "acme"},
		"iconUrl":  "http://localhost:8001/icon.png",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "registered" || body["name"] != "Stripe" {
		t.Errorf("unexpected register response %v", body)
	}

	// Export shape and optimistic online status.
	resp = getJSON(t, ts, "/agents")
	var agents []map[string]interface{}
	decodeJSON(t, resp, &agents)
	if len(agents) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(agents))
	}
	a := agents[0]
	if a["status"] != "online" {
		t.Errorf("expected optimistic online, got %v", a["status"])
	}
	caps, ok := a["capabilities"].(map[string]interface{})
	if !ok || caps["streaming"] != true {
		t.Errorf("capabilities not exported: %v", a["capabilities"])
	}
}

func TestRegisterAgentRejected(t *testing.T) {
	_, router, reg, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := postJSON(t, ts, "/agents/register", map[string]string{
		"baseUrl": "http://localhost:8001",
	})
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for missing name, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["error"] == "" {
		t.Error("rejection must carry a reason")
	}
	if len(reg.List()) != 0 {
		t.Error("rejected registration mutated the registry")
	}
}

func TestGetAgent(t *testing.T) {
	_, router, reg, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	reg.Register(registry.AgentDescriptor{Name: "Twilio", BaseURL: "http://localhost:8002"})

	resp := getJSON(t, ts, "/agents/Twilio")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, ts, "/agents/nope")
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for missing agent, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateAndListWorkflows(t *testing.T) {
	_, router, reg, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	reg.Register(registry.AgentDescriptor{Name: "Stripe", BaseURL: "http://localhost:8001"})

	resp := postJSON(t, ts, "/workflows", map[string]interface{}{
		"name":     "Balance to SMS",
		"category": "finance",
		"steps": []map[string]string{
			{"agentName": "stripe", "task": "fetch balance"},
			{"agentName": "twilio", "task": "send SMS"},
		},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create workflow: expected 201, got %d", resp.StatusCode)
	}
	var created workflow.Definition
	decodeJSON(t, resp, &created)
	if created.ID == "" {
		t.Fatal("expected minted workflow ID")
	}
	if !created.IsCustom {
		t.Error("API-created workflows must be custom")
	}

	resp = getJSON(t, ts, "/workflows")
	var list []map[string]interface{}
	decodeJSON(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 workflow, got %d", len(list))
	}
	// Not activated yet, so readiness is disabled regardless of agents.
	if list[0]["readiness"] != "disabled" {
		t.Errorf("expected disabled before activation, got %v", list[0]["readiness"])
	}
}

func TestCreateWorkflowRequiresName(t *testing.T) {
	_, router, _, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := postJSON(t, ts, "/workflows", map[string]interface{}{
		"steps": []map[string]string{{"agentName": "stripe", "task": "x"}},
	})
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestActivationAndReadinessFlow(t *testing.T) {
	_, router, reg, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	stripe := registry.AgentDescriptor{Name: "Stripe", BaseURL: "http://localhost:8001"}
	twilio := registry.AgentDescriptor{Name: "Twilio SMS Agent", BaseURL: "http://localhost:8002"}
	reg.Register(stripe)
	reg.Register(twilio)
	// Threshold is 1: one failed probe flips twilio offline.
	reg.RecordProbe(twilio.Key(), false, time.Now())

	resp := postJSON(t, ts, "/workflows", map[string]interface{}{
		"name": "Balance to SMS",
		"steps": []map[string]string{
			{"agentName": "stripe", "task": "fetch balance"},
			{"agentName": "twilio", "task": "send SMS"},
		},
	})
	var created workflow.Definition
	decodeJSON(t, resp, &created)

	// Activate.
	resp = postJSON(t, ts, "/workflows/"+created.ID+"/activate", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("activate: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// stripe online, twilio offline → partial.
	resp = getJSON(t, ts, "/workflows/"+created.ID+"/readiness")
	var rd map[string]interface{}
	decodeJSON(t, resp, &rd)
	if rd["readiness"] != "partial" {
		t.Errorf("expected partial, got %v", rd["readiness"])
	}
	agents, _ := rd["agents"].([]interface{})
	if len(agents) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(agents))
	}

	// Deactivate → disabled no matter the fleet.
	resp = postJSON(t, ts, "/workflows/"+created.ID+"/deactivate", nil)
	resp.Body.Close()
	resp = getJSON(t, ts, "/workflows/"+created.ID+"/readiness")
	decodeJSON(t, resp, &rd)
	if rd["readiness"] != "disabled" {
		t.Errorf("expected disabled, got %v", rd["readiness"])
	}
}

func TestActivateUnknownWorkflow(t *testing.T) {
	_, router, _, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := postJSON(t, ts, "/workflows/nope/activate", nil)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDashboardStatus(t *testing.T) {
	_, router, reg, catalog := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	stripe := registry.AgentDescriptor{Name: "Stripe", BaseURL: "http://localhost:8001"}
	twilio := registry.AgentDescriptor{Name: "Twilio", BaseURL: "http://localhost:8002"}
	reg.Register(stripe)
	reg.Register(twilio)
	reg.RecordProbe(twilio.Key(), false, time.Now())

	def, _ := catalog.Add(t.Context(), workflow.Definition{
		Name:  "flow",
		Steps: []workflow.Step{{AgentName: "stripe", Task: "x"}},
	})
	catalog.SetActivated(t.Context(), def.ID, true)

	resp := getJSON(t, ts, "/status")
	var body struct {
		Agents    map[string]int `json:"agents"`
		Workflows map[string]int `json:"workflows"`
	}
	decodeJSON(t, resp, &body)
	if body.Agents["total"] != 2 || body.Agents["online"] != 1 || body.Agents["offline"] != 1 {
		t.Errorf("unexpected agent counts %v", body.Agents)
	}
	if body.Workflows["ready"] != 1 {
		t.Errorf("unexpected workflow counts %v", body.Workflows)
	}
}

func TestTriggerProbe(t *testing.T) {
	_, router, _, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := postJSON(t, ts, "/probe", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	if body["status"] != "probed" {
		t.Errorf("unexpected body %v", body)
	}
}
