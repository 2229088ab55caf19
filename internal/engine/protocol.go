// Package engine runs the analysis orchestrator in an isolated execution
// context on a fixed interval, gated on workspace visibility, and passes
// serializable payloads across the isolation boundary.
package engine

import (
	"encoding/json"
	"fmt"

	"github.com/kmiyata/prism/internal/model"
)

// Message types crossing the isolation boundary. One DETECT_PATTERNS
// request yields exactly one PATTERNS_DETECTED or ERROR response; STOP
// terminates the execution context outright.
const (
	MsgDetectPatterns   = "DETECT_PATTERNS"
	MsgStop             = "STOP"
	MsgPatternsDetected = "PATTERNS_DETECTED"
	MsgError            = "ERROR"
)

// Request is the inbound message for the execution context. Data carries
// the workspace snapshot for DETECT_PATTERNS and is absent for STOP.
type Request struct {
	Type string                    `json:"type"`
	Data *model.WorkspaceSnapshot  `json:"data,omitempty"`
}

// Response is the outbound message from the execution context. Patterns
// carry wire-form suggestions: callables never cross the boundary.
type Response struct {
	Type     string                    `json:"type"`
	Patterns []model.SuggestionPayload `json:"patterns,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// encodeFrame and decodeFrame enforce the serializability contract on
// everything crossing the boundary: a payload that cannot survive a JSON
// round trip is rejected at the sender, not silently truncated.
func encodeFrame(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

func decodeFrame(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return nil
}
