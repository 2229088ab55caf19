// Package service runs the prism daemon: the background engine, the IPC
// server the CLI talks to, and a watcher that re-scans when the workspace
// file changes out from under us.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kmiyata/prism/internal/correct"
	"github.com/kmiyata/prism/internal/engine"
	"github.com/kmiyata/prism/internal/events"
	"github.com/kmiyata/prism/internal/feedback"
	"github.com/kmiyata/prism/internal/ipc"
	"github.com/kmiyata/prism/internal/lock"
	"github.com/kmiyata/prism/internal/model"
	"github.com/kmiyata/prism/internal/notify"
	"github.com/kmiyata/prism/internal/store"
)

// Daemon is the long-running prism process.
type Daemon struct {
	dataDir  string
	config   model.Config
	logLevel engine.LogLevel
	logger   *log.Logger
	logFile  io.Closer

	pidLock  *lock.PIDLock
	server   *ipc.Server
	watcher  *fsnotify.Watcher
	bus      *events.Bus
	ws       *store.WorkspaceStore
	eng      *engine.Engine
	recorder *feedback.Recorder
	unwatch  func()

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once

	forceExit atomic.Bool
}

// New creates a daemon logging into dataDir/logs/daemon.log.
func New(dataDir string, cfg model.Config) (*Daemon, error) {
	logPath := filepath.Join(dataDir, "logs", "daemon.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open daemon log: %w", err)
	}
	return newDaemon(dataDir, cfg, logFile, logFile), nil
}

// newDaemon is the internal constructor for testing.
func newDaemon(dataDir string, cfg model.Config, w io.Writer, closer io.Closer) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	logger := log.New(w, "", 0)

	d := &Daemon{
		dataDir:  dataDir,
		config:   cfg,
		logLevel: engine.ParseLogLevel(cfg.Logging.Level),
		logger:   logger,
		logFile:  closer,
		pidLock:  lock.NewPIDLock(filepath.Join(dataDir, "prism.lock")),
		server:   ipc.NewServer(filepath.Join(dataDir, cfg.Daemon.SocketName), logger),
		bus:      events.NewBus(64),
		ctx:      ctx,
		cancel:   cancel,
	}
	d.ws = store.Open(cfg.Workspace.Path, dataDir, logger)
	d.recorder = feedback.NewRecorder(d.bus, logger)
	d.eng = engine.New(cfg.Engine, d.ws, engine.DefaultActionHandlers(d.ws), d.bus, logger, cfg.Logging.Level)
	return d
}

// SocketPath returns the path the IPC server listens on.
func (d *Daemon) SocketPath() string {
	return filepath.Join(d.dataDir, d.config.Daemon.SocketName)
}

// Run starts everything and blocks until shutdown completes.
func (d *Daemon) Run() error {
	if err := d.pidLock.Acquire(); err != nil {
		return fmt.Errorf("daemon lock: %w", err)
	}
	d.log(engine.LogLevelInfo, "daemon starting pid=%d workspace=%s", os.Getpid(), d.config.Workspace.Path)

	if err := d.startWatcher(); err != nil {
		d.cleanup()
		return err
	}

	if d.config.Daemon.NotifyCritical {
		d.unwatch = notify.New().WatchCritical(d.bus)
	}

	d.registerHandlers()
	if err := d.server.Start(); err != nil {
		d.cleanup()
		return fmt.Errorf("start IPC server: %w", err)
	}
	d.log(engine.LogLevelInfo, "IPC server listening on %s", d.SocketPath())

	d.wg.Add(1)
	go d.fsnotifyLoop()

	d.eng.Start()
	d.log(engine.LogLevelInfo, "daemon ready")

	d.waitSignals()
	return nil
}

// startWatcher watches the directory holding the workspace file; fsnotify
// tracks directories more reliably than single files across editors that
// replace-on-save.
func (d *Daemon) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(d.config.Workspace.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return fmt.Errorf("ensure workspace dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	d.watcher = watcher
	return nil
}

func (d *Daemon) registerHandlers() {
	d.server.Handle(ipc.CmdPing, func(req *ipc.Request) *ipc.Response {
		return ipc.SuccessResponse(map[string]string{"status": "ok"})
	})

	d.server.Handle(ipc.CmdStatus, d.handleStatus)
	d.server.Handle(ipc.CmdAnalyze, d.handleAnalyze)
	d.server.Handle(ipc.CmdSuggestions, d.handleSuggestions)
	d.server.Handle(ipc.CmdFeedback, d.handleFeedback)
	d.server.Handle(ipc.CmdVisibility, d.handleVisibility)

	d.server.Handle(ipc.CmdShutdown, func(req *ipc.Request) *ipc.Response {
		d.log(engine.LogLevelInfo, "shutdown requested via IPC")
		go d.Shutdown()
		return ipc.SuccessResponse(map[string]string{"status": "shutdown_accepted"})
	})
}

func (d *Daemon) handleStatus(req *ipc.Request) *ipc.Response {
	snap, err := d.ws.Snapshot()
	if err != nil {
		return ipc.ErrorResponse(ipc.ErrCodeInternal, err.Error())
	}
	return ipc.SuccessResponse(map[string]any{
		"pid":          os.Getpid(),
		"workspace":    d.config.Workspace.Path,
		"engine_state": d.eng.State().String(),
		"visible":      d.eng.Visible(),
		"suggestions":  len(snap.Suggestions),
		"analyses":     len(snap.Analyses),
	})
}

// handleAnalyze runs the full orchestrator, persists the result, and
// applies the corrections that do not need user confirmation.
func (d *Daemon) handleAnalyze(req *ipc.Request) *ipc.Response {
	result, err := d.eng.AnalyzeNow()
	if err != nil {
		return ipc.ErrorResponse(ipc.ErrCodeInternal, err.Error())
	}
	if err := d.ws.AppendAnalysis(result); err != nil {
		return ipc.ErrorResponse(ipc.ErrCodeInternal, err.Error())
	}

	var unattended []model.AutoCorrection
	for _, c := range result.AutoCorrections {
		if !c.RequiresConfirmation {
			unattended = append(unattended, c)
		}
	}
	applied := correct.ApplyAll(unattended, d.ws.Callbacks())
	if applied.Applied > 0 {
		d.bus.Publish(events.EventCorrectionApplied, map[string]any{
			"applied": applied.Applied,
			"failed":  applied.Failed,
		})
	}
	d.log(engine.LogLevelInfo, "analyze conflicts=%d suggestions=%d corrections_applied=%d",
		len(result.Conflicts), len(result.Optimizations), applied.Applied)

	return ipc.SuccessResponse(map[string]any{
		"summary":             result.Summary,
		"conflicts":           result.Conflicts,
		"optimizations":       suggestionPayloads(result.Optimizations),
		"corrections_applied": applied.Applied,
		"corrections_failed":  applied.Failed,
		"corrections_pending": len(result.AutoCorrections) - len(unattended),
	})
}

func (d *Daemon) handleSuggestions(req *ipc.Request) *ipc.Response {
	snap, err := d.ws.Snapshot()
	if err != nil {
		return ipc.ErrorResponse(ipc.ErrCodeInternal, err.Error())
	}
	return ipc.SuccessResponse(map[string]any{
		"suggestions": suggestionPayloads(snap.Suggestions),
	})
}

func (d *Daemon) handleFeedback(req *ipc.Request) *ipc.Response {
	var params struct {
		SuggestionID string `json:"suggestion_id"`
		Outcome      string `json:"outcome"`
		Details      string `json:"details"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return ipc.ErrorResponse(ipc.ErrCodeValidation, err.Error())
	}
	if params.SuggestionID == "" || !feedback.ValidOutcome(params.Outcome) {
		return ipc.ErrorResponse(ipc.ErrCodeValidation, "suggestion_id and a valid outcome are required")
	}

	if params.Outcome != feedback.OutcomeCustomized {
		removed, err := d.ws.RemoveSuggestion(params.SuggestionID)
		if err != nil {
			return ipc.ErrorResponse(ipc.ErrCodeInternal, err.Error())
		}
		if !removed {
			return ipc.ErrorResponse(ipc.ErrCodeNotFound, fmt.Sprintf("suggestion %s not found", params.SuggestionID))
		}
	}
	d.recorder.Submit(params.SuggestionID, params.Outcome, params.Details)
	return ipc.SuccessResponse(map[string]string{"status": "recorded"})
}

func (d *Daemon) handleVisibility(req *ipc.Request) *ipc.Response {
	var params struct {
		Visible bool `json:"visible"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return ipc.ErrorResponse(ipc.ErrCodeValidation, err.Error())
	}
	d.eng.SetVisible(params.Visible)
	return ipc.SuccessResponse(map[string]any{"visible": params.Visible})
}

// fsnotifyLoop re-scans when the workspace file changes. The engine's own
// writes also land here; id-based dedup makes the follow-up scan a no-op,
// so the loop settles instead of feeding itself.
func (d *Daemon) fsnotifyLoop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(d.config.Workspace.Path) {
				continue
			}
			d.log(engine.LogLevelDebug, "workspace changed op=%s", event.Op)
			d.eng.RunOnce("file_change")
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log(engine.LogLevelError, "fsnotify error=%v", err)
		}
	}
}

func (d *Daemon) waitSignals() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	d.log(engine.LogLevelInfo, "received signal=%s, initiating graceful shutdown", sig)

	// Second signal means the user is done waiting.
	go func() {
		<-sigCh
		d.log(engine.LogLevelWarn, "received second signal, forcing exit")
		d.forceExit.Store(true)
		os.Exit(1)
	}()

	d.Shutdown()
}

// Shutdown tears everything down once, draining with a timeout.
func (d *Daemon) Shutdown() {
	d.shutdown.Do(func() {
		d.log(engine.LogLevelInfo, "shutdown started")

		d.cancel()
		d.eng.Stop()
		if d.watcher != nil {
			d.watcher.Close()
		}
		if d.server != nil {
			d.server.Stop()
		}
		if d.unwatch != nil {
			d.unwatch()
		}

		timeout := d.config.Daemon.ShutdownTimeoutSec
		if timeout <= 0 {
			timeout = 30
		}
		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			d.log(engine.LogLevelInfo, "all goroutines drained")
		case <-time.After(time.Duration(timeout) * time.Second):
			d.log(engine.LogLevelWarn, "shutdown timeout after %ds, some operations may be incomplete", timeout)
		}

		d.bus.Close()
		d.cleanup()
		d.log(engine.LogLevelInfo, "daemon stopped")
	})
}

func (d *Daemon) cleanup() {
	os.Remove(d.SocketPath())
	d.pidLock.Release()
	if d.logFile != nil {
		d.logFile.Close()
	}
}

func suggestionPayloads(suggestions []model.Suggestion) []model.SuggestionPayload {
	out := make([]model.SuggestionPayload, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, s.Payload())
	}
	return out
}

func (d *Daemon) log(level engine.LogLevel, format string, args ...any) {
	if level < d.logLevel {
		return
	}
	levelStr := "INFO"
	switch level {
	case engine.LogLevelDebug:
		levelStr = "DEBUG"
	case engine.LogLevelWarn:
		levelStr = "WARN"
	case engine.LogLevelError:
		levelStr = "ERROR"
	}
	d.logger.Printf("%s %s daemon: %s", time.Now().Format(time.RFC3339), levelStr, fmt.Sprintf(format, args...))
}
