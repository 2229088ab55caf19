package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kmiyata/prism/internal/analyze"
	"github.com/kmiyata/prism/internal/events"
	"github.com/kmiyata/prism/internal/model"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ScanState is the per-tick state machine: Idle → Scanning →
// {PatternsDetected | ErrorReported} → Idle. There is no cancelled state;
// an in-flight scan always runs to completion or reports an error.
type ScanState int32

const (
	StateIdle ScanState = iota
	StateScanning
	StatePatternsDetected
	StateErrorReported
)

func (s ScanState) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StatePatternsDetected:
		return "patterns_detected"
	case StateErrorReported:
		return "error_reported"
	default:
		return "idle"
	}
}

// Store is the external workspace store the engine reads snapshots from
// and inserts suggestions into. InsertSuggestion returns false when a
// suggestion with the same id already exists; id equality is the sole
// deduplication mechanism.
type Store interface {
	Snapshot() (model.WorkspaceSnapshot, error)
	InsertSuggestion(s model.Suggestion) (bool, error)
}

// workerFrame carries one encoded request into the execution context and
// the channel its encoded response comes back on.
type workerFrame struct {
	data  []byte
	reply chan []byte
}

// Engine is the background execution driver. It owns an isolated worker
// goroutine (the execution context), a periodic ticker, and the
// visibility gate.
type Engine struct {
	cfg      model.EngineConfig
	store    Store
	handlers ActionHandlers
	bus      *events.Bus
	logger   *log.Logger
	logLevel LogLevel

	requests chan workerFrame
	ticker   *time.Ticker
	visible  atomic.Bool
	state    atomic.Int32
	group    singleflight.Group
	now      func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  atomic.Bool
	shutdown sync.Once
}

// New creates an engine. The workspace starts visible; callers gate ticks
// via SetVisible.
func New(cfg model.EngineConfig, store Store, handlers ActionHandlers, bus *events.Bus, logger *log.Logger, logLevel string) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:      cfg,
		store:    store,
		handlers: handlers,
		bus:      bus,
		logger:   logger,
		logLevel: ParseLogLevel(logLevel),
		requests: make(chan workerFrame, 4),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	e.visible.Store(true)
	return e
}

// SetNow overrides the clock for testing.
func (e *Engine) SetNow(now func() time.Time) {
	e.now = now
}

// Start launches the execution context and the periodic ticker, then runs
// one immediate scan. A disabled engine is a silent no-op: background
// analysis is a feature the host can live without.
func (e *Engine) Start() {
	if e.cfg.Disabled {
		e.log(LogLevelInfo, "background analysis disabled")
		return
	}
	e.started.Store(true)
	e.ticker = time.NewTicker(e.cfg.ScanInterval())

	e.wg.Add(2)
	go e.worker()
	go e.tickerLoop()

	e.runScan("startup")
	e.log(LogLevelInfo, "engine started interval=%s", e.cfg.ScanInterval())
}

// Stop sends the stop signal, tears down the execution context, and
// cancels the ticker. Idempotent.
func (e *Engine) Stop() {
	e.shutdown.Do(func() {
		if !e.started.Load() {
			return
		}
		if stopFrame, err := encodeFrame(Request{Type: MsgStop}); err == nil {
			select {
			case e.requests <- workerFrame{data: stopFrame}:
			default:
			}
		}
		e.cancel()
		e.ticker.Stop()
		e.wg.Wait()
		e.log(LogLevelInfo, "engine stopped")
	})
}

// State reports the current position in the per-tick state machine.
func (e *Engine) State() ScanState {
	return ScanState(e.state.Load())
}

// Visible reports the current visibility gate.
func (e *Engine) Visible() bool {
	return e.visible.Load()
}

// SetVisible updates the visibility gate. A hidden→visible transition
// triggers an immediate extra scan, mirroring a visibility-change
// listener.
func (e *Engine) SetVisible(visible bool) {
	was := e.visible.Swap(visible)
	if visible && !was && e.started.Load() {
		go e.runScan("visibility")
	}
}

// tickerLoop drives periodic scans, skipping ticks while hidden.
func (e *Engine) tickerLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.ticker.C:
			if !e.visible.Load() {
				e.log(LogLevelDebug, "tick skipped, workspace not visible")
				continue
			}
			e.runScan("tick")
		}
	}
}

// worker is the isolated execution context. It processes frames strictly
// sequentially and terminates on STOP or context cancellation; a request
// submitted while another is in flight simply waits its turn.
func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case frame := <-e.requests:
			var req Request
			if err := decodeFrame(frame.data, &req); err != nil {
				e.replyTo(frame, Response{Type: MsgError, Error: err.Error()})
				continue
			}
			switch req.Type {
			case MsgStop:
				return
			case MsgDetectPatterns:
				e.replyTo(frame, e.scan(req))
			default:
				e.replyTo(frame, Response{Type: MsgError, Error: fmt.Sprintf("unknown message type %q", req.Type)})
			}
		}
	}
}

func (e *Engine) replyTo(frame workerFrame, resp Response) {
	if frame.reply == nil {
		return
	}
	data, err := encodeFrame(resp)
	if err != nil {
		data, _ = encodeFrame(Response{Type: MsgError, Error: err.Error()})
	}
	frame.reply <- data
}

// scan runs pattern detection over the request's snapshot. A panicking
// detector is caught at the boundary and reported as an error response;
// the engine does not retry.
func (e *Engine) scan(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Response{Type: MsgError, Error: fmt.Sprintf("scan panicked: %v", r)}
		}
	}()
	if req.Data == nil {
		return Response{Type: MsgError, Error: "detect request carries no snapshot"}
	}
	suggestions := analyze.DetectAllPatterns(*req.Data, e.now())
	payloads := make([]model.SuggestionPayload, 0, len(suggestions))
	for _, s := range suggestions {
		payloads = append(payloads, s.Payload())
	}
	return Response{Type: MsgPatternsDetected, Patterns: payloads}
}

// runScan performs one full tick: snapshot, round trip through the
// execution context, rehydration, and deduplicated insertion. The
// singleflight group guarantees at most one scan in flight even if ticker,
// visibility, and on-demand triggers coincide.
func (e *Engine) runScan(trigger string) {
	e.group.Do("scan", func() (any, error) {
		e.state.Store(int32(StateScanning))
		defer e.state.Store(int32(StateIdle))

		snap, err := e.store.Snapshot()
		if err != nil {
			e.state.Store(int32(StateErrorReported))
			e.log(LogLevelError, "scan_failed trigger=%s error=%v", trigger, err)
			return nil, nil
		}

		frame, err := encodeFrame(Request{Type: MsgDetectPatterns, Data: &snap})
		if err != nil {
			e.state.Store(int32(StateErrorReported))
			e.log(LogLevelError, "scan_failed trigger=%s error=%v", trigger, err)
			return nil, nil
		}

		reply := make(chan []byte, 1)
		select {
		case e.requests <- workerFrame{data: frame, reply: reply}:
		case <-e.ctx.Done():
			return nil, nil
		}

		var respData []byte
		select {
		case respData = <-reply:
		case <-e.ctx.Done():
			return nil, nil
		}

		var resp Response
		if err := decodeFrame(respData, &resp); err != nil {
			e.state.Store(int32(StateErrorReported))
			e.log(LogLevelError, "scan_failed trigger=%s error=%v", trigger, err)
			return nil, nil
		}

		switch resp.Type {
		case MsgPatternsDetected:
			e.state.Store(int32(StatePatternsDetected))
			inserted := e.ingest(resp.Patterns)
			e.log(LogLevelInfo, "scan_complete trigger=%s patterns=%d inserted=%d", trigger, len(resp.Patterns), inserted)
		case MsgError:
			e.state.Store(int32(StateErrorReported))
			e.log(LogLevelError, "scan_error trigger=%s error=%s", trigger, resp.Error)
		default:
			e.state.Store(int32(StateErrorReported))
			e.log(LogLevelError, "scan_error trigger=%s error=unknown response type %q", trigger, resp.Type)
		}
		return nil, nil
	})
}

// ingest rehydrates wire-form suggestions and inserts the ones whose id is
// not already present. Returns the number inserted.
func (e *Engine) ingest(patterns []model.SuggestionPayload) int {
	inserted := 0
	for _, p := range patterns {
		s := Rehydrate(p, e.handlers, e.logger)
		ok, err := e.store.InsertSuggestion(s)
		if err != nil {
			e.log(LogLevelWarn, "insert_suggestion_failed id=%s error=%v", s.ID, err)
			continue
		}
		if !ok {
			continue
		}
		inserted++
		if e.bus != nil {
			e.bus.Publish(events.EventSuggestionCreated, map[string]any{
				"suggestion_id": s.ID,
				"type":          string(s.Type),
				"priority":      string(s.Priority),
				"confidence":    s.Confidence,
			})
		}
	}
	return inserted
}

// RunOnce triggers a synchronous scan outside the ticker, used by the
// on-demand flow and by file-change triggers.
func (e *Engine) RunOnce(trigger string) {
	if !e.started.Load() {
		return
	}
	e.runScan(trigger)
}

// AnalyzeNow runs the full orchestrator synchronously in the caller's
// context: conflicts, suggestions, and auto-corrections. Used by the
// on-demand "analyze" flow; the result is for the caller to persist.
func (e *Engine) AnalyzeNow() (model.AnalysisResult, error) {
	snap, err := e.store.Snapshot()
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("load snapshot: %w", err)
	}
	result := analyze.Analyze(snap, e.now())
	if e.bus != nil {
		for _, c := range result.Conflicts {
			e.bus.Publish(events.EventConflictDetected, map[string]any{
				"conflict_id": c.ID,
				"type":        string(c.Type),
				"severity":    string(c.Severity),
			})
		}
		e.bus.Publish(events.EventAnalysisCompleted, map[string]any{
			"total_issues":   result.Summary.TotalIssues,
			"critical_count": result.Summary.CriticalCount,
			"suggestions":    result.Summary.SuggestionsCount,
		})
	}
	return result, nil
}

func (e *Engine) log(level LogLevel, format string, args ...any) {
	if e.logger == nil || level < e.logLevel {
		return
	}
	levelStr := "INFO"
	switch level {
	case LogLevelDebug:
		levelStr = "DEBUG"
	case LogLevelWarn:
		levelStr = "WARN"
	case LogLevelError:
		levelStr = "ERROR"
	}
	msg := fmt.Sprintf(format, args...)
	e.logger.Printf("%s %s engine: %s", time.Now().Format(time.RFC3339), levelStr, msg)
}
