package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeTranscriptSegment MessageType = "transcript_segment"
	TypeTrackerResult     MessageType = "tracker_result"
	TypeErrorEvent        MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// TranscriptSegment is one transcribed utterance pushed by the device.
type TranscriptSegment struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	UID       string      `json:"uid,omitempty"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

// TrackerResult carries the tracker's response for one segment.
type TrackerResult struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Response  string      `json:"response,omitempty"`
	Data      any         `json:"data,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

// ParseClientMessage decodes and validates an inbound websocket payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeTranscriptSegment:
		var msg TranscriptSegment
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid transcript_segment: empty text")
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}
}
