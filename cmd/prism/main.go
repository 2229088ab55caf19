package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kmiyata/prism/internal/feedback"
	"github.com/kmiyata/prism/internal/ipc"
	"github.com/kmiyata/prism/internal/model"
	"github.com/kmiyata/prism/internal/notify"
	"github.com/kmiyata/prism/internal/service"
	"github.com/kmiyata/prism/internal/setup"
	"github.com/kmiyata/prism/internal/store"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "setup":
		runSetup(os.Args[2:])
	case "daemon":
		runDaemon(os.Args[2:])
	case "analyze":
		runAnalyze(os.Args[2:])
	case "suggestions":
		runSuggestions(os.Args[2:])
	case "feedback":
		runFeedback(os.Args[2:])
	case "visibility":
		runVisibility(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "stop":
		runStop(os.Args[2:])
	case "notify":
		runNotify(os.Args[2:])
	case "version":
		fmt.Printf("prism %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runSetup(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: prism setup <project_dir>")
		os.Exit(1)
	}
	if err := setup.Run(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "setup: %v\n", err)
		os.Exit(1)
	}
	absDir, _ := filepath.Abs(args[0])
	fmt.Printf("Initialized .prism/ in %s\n", absDir)
}

func runDaemon(_ []string) {
	prismDir, cfg := mustLoadConfig()
	d, err := service.New(prismDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create daemon: %v\n", err)
		os.Exit(1)
	}
	if err := d.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "daemon: %v\n", err)
		os.Exit(1)
	}
}

func runAnalyze(args []string) {
	jsonOutput := parseJSONFlag(args, "prism analyze [--json]")
	resp := mustSend(ipc.CmdAnalyze, nil)

	if jsonOutput {
		printJSON(resp.Data)
		return
	}

	var data struct {
		Summary            model.AnalysisSummary `json:"summary"`
		CorrectionsApplied int                   `json:"corrections_applied"`
		CorrectionsPending int                   `json:"corrections_pending"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("issues: %d (critical: %d)\n", data.Summary.TotalIssues, data.Summary.CriticalCount)
	fmt.Printf("suggestions: %d\n", data.Summary.SuggestionsCount)
	fmt.Printf("corrections applied: %d, awaiting confirmation: %d\n", data.CorrectionsApplied, data.CorrectionsPending)
}

func runSuggestions(args []string) {
	jsonOutput := parseJSONFlag(args, "prism suggestions [--json]")
	resp := mustSend(ipc.CmdSuggestions, nil)

	if jsonOutput {
		printJSON(resp.Data)
		return
	}

	var data struct {
		Suggestions []model.SuggestionPayload `json:"suggestions"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		fmt.Fprintf(os.Stderr, "suggestions: %v\n", err)
		os.Exit(1)
	}
	if len(data.Suggestions) == 0 {
		fmt.Println("no suggestions")
		return
	}
	for _, s := range data.Suggestions {
		fmt.Printf("%-36s %-10s %3d%%  %s\n", s.ID, s.Priority, s.Confidence, s.Title)
	}
}

func runFeedback(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: prism feedback <suggestion_id> <accepted|dismissed|customized> [details]")
		os.Exit(1)
	}
	if !feedback.ValidOutcome(args[1]) {
		fmt.Fprintf(os.Stderr, "invalid outcome: %s (want accepted, dismissed, or customized)\n", args[1])
		os.Exit(1)
	}
	details := ""
	if len(args) > 2 {
		details = args[2]
	}
	mustSend(ipc.CmdFeedback, map[string]string{
		"suggestion_id": args[0],
		"outcome":       args[1],
		"details":       details,
	})
	fmt.Println("feedback recorded")
}

func runVisibility(args []string) {
	if len(args) < 1 || (args[0] != "visible" && args[0] != "hidden") {
		fmt.Fprintln(os.Stderr, "usage: prism visibility <visible|hidden>")
		os.Exit(1)
	}
	mustSend(ipc.CmdVisibility, map[string]bool{"visible": args[0] == "visible"})
	fmt.Printf("workspace marked %s\n", args[0])
}

func runStatus(args []string) {
	jsonOutput := parseJSONFlag(args, "prism status [--json]")
	resp := mustSend(ipc.CmdStatus, nil)

	if jsonOutput {
		printJSON(resp.Data)
		return
	}

	var data struct {
		PID         int    `json:"pid"`
		Workspace   string `json:"workspace"`
		EngineState string `json:"engine_state"`
		Visible     bool   `json:"visible"`
		Suggestions int    `json:"suggestions"`
		Analyses    int    `json:"analyses"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		fmt.Fprintf(os.Stderr, "status: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("daemon pid %d serving %s\n", data.PID, data.Workspace)
	fmt.Printf("engine: %s (visible: %v)\n", data.EngineState, data.Visible)
	fmt.Printf("suggestions: %d, analyses: %d\n", data.Suggestions, data.Analyses)
}

func runStop(_ []string) {
	mustSend(ipc.CmdShutdown, nil)
	fmt.Println("shutdown requested")
}

func runNotify(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: prism notify <title> <message>")
		os.Exit(1)
	}
	if err := notify.New().Send(args[0], args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "notify: %v\n", err)
		os.Exit(1)
	}
}

func parseJSONFlag(args []string, usage string) bool {
	jsonOutput := false
	for _, a := range args {
		switch a {
		case "--json":
			jsonOutput = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: %s\n", a, usage)
			os.Exit(1)
		}
	}
	return jsonOutput
}

func printJSON(data json.RawMessage) {
	var buf any
	if err := json.Unmarshal(data, &buf); err == nil {
		pretty, _ := json.MarshalIndent(buf, "", "  ")
		fmt.Println(string(pretty))
		return
	}
	fmt.Println(string(data))
}

func mustLoadConfig() (string, model.Config) {
	prismDir := setup.Find()
	if prismDir == "" {
		fmt.Fprintln(os.Stderr, "error: .prism/ directory not found. Run 'prism setup <dir>' first.")
		os.Exit(1)
	}
	cfg, err := store.LoadConfig(filepath.Join(prismDir, "prism.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if !filepath.IsAbs(cfg.Workspace.Path) {
		cfg.Workspace.Path = filepath.Join(filepath.Dir(prismDir), cfg.Workspace.Path)
	}
	return prismDir, cfg
}

func mustSend(command string, params any) *ipc.Response {
	prismDir, cfg := mustLoadConfig()
	client := ipc.NewClient(filepath.Join(prismDir, cfg.Daemon.SocketName))
	resp, err := client.SendCommand(command, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if !resp.Success {
		if resp.Error != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", resp.Error.Code, resp.Error.Message)
		} else {
			fmt.Fprintln(os.Stderr, "command failed")
		}
		os.Exit(1)
	}
	return resp
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `prism %s - workspace intelligence engine

Usage: prism <command> [options]

Project:
  setup <dir>        Initialize .prism/ next to a workspace
  daemon             Run the analysis daemon
  stop               Ask the daemon to shut down
  status [--json]    Show daemon and engine status

Analysis:
  analyze [--json]       Run a full analysis now
  suggestions [--json]   List current suggestions
  feedback <id> <outcome> [details]
                         Record what you did with a suggestion
  visibility <visible|hidden>
                         Gate background scanning

Utilities:
  notify <title> <msg>   macOS notification
  version                Show version
  help                   Show this help

`, version)
}
