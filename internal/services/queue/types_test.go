package queue

import (
	"testing"
	"time"

	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCodec(t *testing.T) {
	msg := RunEventMessage{
		SessionID: "session-1",
		Event: models.Event{
			Type:     models.EventItemSucceeded,
			RunID:    "run-1",
			Index:    2,
			Total:    3,
			Filename: "shoe.jpg",
			Time:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}

	body, err := encodeMessage(msg)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"type":"item_succeeded"`)

	decoded, err := decodeMessage(body)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestDecodeMessageRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"missing type", `{"session_id":"s","event":{"run_id":"r"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeMessage([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
