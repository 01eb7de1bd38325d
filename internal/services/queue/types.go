package queue

import (
	"encoding/json"
	"fmt"

	"github.com/phambaophuc/product-studio/internal/models"
)

// RunEventMessage is the body of every published message.
type RunEventMessage struct {
	SessionID string       `json:"session_id"`
	Event     models.Event `json:"event"`
}

func encodeMessage(msg RunEventMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run event: %w", err)
	}
	return body, nil
}

func decodeMessage(body []byte) (RunEventMessage, error) {
	var msg RunEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return RunEventMessage{}, fmt.Errorf("failed to unmarshal run event: %w", err)
	}
	if msg.Event.Type == "" {
		return RunEventMessage{}, fmt.Errorf("run event has no type")
	}
	return msg, nil
}
