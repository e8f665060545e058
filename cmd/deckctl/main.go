package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "AgentDeck server URL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "agents":
		listAgents(*server)
	case "workflows":
		listWorkflows(*server)
	case "status":
		showStatus(*server)
	case "probe":
		triggerProbe(*server)
	case "activate", "deactivate":
		if len(args) < 2 {
			printError("usage: deckctl %s <workflow-id>", args[0])
			os.Exit(2)
		}
		setActivation(*server, args[1], args[0])
	case "readiness":
		if len(args) < 2 {
			printError("usage: deckctl readiness <workflow-id>")
			os.Exit(2)
		}
		showReadiness(*server, args[1])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("deckctl — AgentDeck control CLI")
	fmt.Println("Usage: deckctl [-server URL] <command>")
	fmt.Println("Commands:")
	fmt.Println("  agents                  list registered agents and liveness")
	fmt.Println("  workflows               list workflows with readiness")
	fmt.Println("  readiness <id>          per-agent readiness detail for one workflow")
	fmt.Println("  activate <id>           activate a workflow")
	fmt.Println("  deactivate <id>         deactivate a workflow")
	fmt.Println("  status                  fleet and workflow summary")
	fmt.Println("  probe                   force a health sweep now")
}

var client = &http.Client{Timeout: 30 * time.Second}

func listAgents(server string) {
	var agents []struct {
		Name     string `json:"name"`
		Status   string `json:"status"`
		Provider struct {
			Organization string `json:"organization"`
		} `json:"provider"`
	}
	if !getInto(server+"/agents", &agents) {
		return
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered yet.")
		return
	}
	fmt.Println("Registered agents:")
	for _, a := range agents {
		icon := "\033[31m✗\033[0m"
		if a.Status == "online" {
			icon = "\033[32m✓\033[0m"
		}
		fmt.Printf("  %s %s", icon, a.Name)
		if a.Provider.Organization != "" {
			fmt.Printf(" (%s)", a.Provider.Organization)
		}
		fmt.Println()
	}
}

func listWorkflows(server string) {
	var workflows []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Category  string `json:"category,omitempty"`
		IsCustom  bool   `json:"isCustom"`
		Readiness string `json:"readiness"`
	}
	if !getInto(server+"/workflows", &workflows) {
		return
	}
	if len(workflows) == 0 {
		fmt.Println("No workflows in the catalog.")
		return
	}
	fmt.Println("Workflows:")
	for _, w := range workflows {
		tag := ""
		if w.IsCustom {
			tag = " [custom]"
		}
		fmt.Printf("  %s %s%s\n    %s\n", readinessIcon(w.Readiness), w.Name, tag, w.ID)
	}
}

func showReadiness(server, id string) {
	var rd struct {
		Readiness string `json:"readiness"`
		Agents    []struct {
			AgentName    string `json:"agentName"`
			Resolved     bool   `json:"resolved"`
			ResolvedName string `json:"resolvedName,omitempty"`
			Online       bool   `json:"online"`
		} `json:"agents"`
	}
	if !getInto(server+"/workflows/"+id+"/readiness", &rd) {
		return
	}
	fmt.Printf("Readiness: %s %s\n", readinessIcon(rd.Readiness), rd.Readiness)
	for _, a := range rd.Agents {
		icon := "\033[31m✗\033[0m"
		note := "offline"
		switch {
		case !a.Resolved:
			note = "no matching agent registered"
		case a.Online:
			icon = "\033[32m✓\033[0m"
			note = "online"
		}
		fmt.Printf("  %s %s", icon, a.AgentName)
		if a.ResolvedName != "" && a.ResolvedName != a.AgentName {
			fmt.Printf(" → %s", a.ResolvedName)
		}
		fmt.Printf(" (%s)\n", note)
	}
}

func showStatus(server string) {
	var st struct {
		Agents    map[string]int `json:"agents"`
		Workflows map[string]int `json:"workflows"`
	}
	if !getInto(server+"/status", &st) {
		return
	}
	fmt.Printf("Agents: %d total, \033[32m%d online\033[0m, \033[31m%d offline\033[0m\n",
		st.Agents["total"], st.Agents["online"], st.Agents["offline"])
	fmt.Printf("Workflows: %d ready, %d partial, %d unavailable, %d disabled\n",
		st.Workflows["ready"], st.Workflows["partial"], st.Workflows["unavailable"], st.Workflows["disabled"])
}

func triggerProbe(server string) {
	var out struct {
		AgentsProbed int `json:"agents_probed"`
	}
	if !postInto(server+"/probe", nil, &out) {
		return
	}
	fmt.Printf("Probed %d agents.\n", out.AgentsProbed)
}

func setActivation(server, id, action string) {
	var out struct {
		Activated bool `json:"activated"`
	}
	if !postInto(server+"/workflows/"+id+"/"+action, nil, &out) {
		return
	}
	if out.Activated {
		fmt.Printf("Workflow %s activated.\n", id)
	} else {
		fmt.Printf("Workflow %s deactivated.\n", id)
	}
}

func getInto(url string, v interface{}) bool {
	resp, err := client.Get(url)
	if err != nil {
		printError("Request failed: %v", err)
		return false
	}
	return decode(resp, v)
}

func postInto(url string, body interface{}, v interface{}) bool {
	data, _ := json.Marshal(body)
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		printError("Request failed: %v", err)
		return false
	}
	return decode(resp, v)
}

func decode(resp *http.Response, v interface{}) bool {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		printError("Failed to parse response: %v", err)
		return false
	}
	return true
}

func readinessIcon(state string) string {
	switch state {
	case "ready":
		return "\033[32m●\033[0m"
	case "partial":
		return "\033[33m●\033[0m"
	case "unavailable":
		return "\033[31m●\033[0m"
	default:
		return "\033[90m●\033[0m"
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
