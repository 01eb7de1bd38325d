package models

import (
	"fmt"
	"time"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// RunState is the orchestrator's externally visible state. Current is
// 1-based and only meaningful while running.
type RunState struct {
	Phase    Phase  `json:"phase"`
	RunID    string `json:"run_id,omitempty"`
	Preset   string `json:"preset,omitempty"`
	Current  int    `json:"current,omitempty"`
	Total    int    `json:"total,omitempty"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s RunState) Running() bool {
	return s.Phase == PhaseRunning
}

// ProgressText is the line shown while an item is in flight.
func (s RunState) ProgressText() string {
	if s.Phase != PhaseRunning || s.Current == 0 {
		return ""
	}
	return fmt.Sprintf("Processing image %d of %d...", s.Current, s.Total)
}

type EventType string

const (
	EventRunStarted      EventType = "run_started"
	EventItemStarted     EventType = "item_started"
	EventItemSucceeded   EventType = "item_succeeded"
	EventRunCompleted    EventType = "run_completed"
	EventRunFailed       EventType = "run_failed"
	EventUpgradeRequired EventType = "upgrade_required"
	EventReset           EventType = "reset"
)

// Event is one observation emitted by the orchestrator.
type Event struct {
	Type     EventType `json:"type"`
	RunID    string    `json:"run_id,omitempty"`
	Preset   string    `json:"preset,omitempty"`
	Index    int       `json:"index,omitempty"`
	Total    int       `json:"total,omitempty"`
	Filename string    `json:"filename,omitempty"`
	Error    string    `json:"error,omitempty"`
	Current  int       `json:"current,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Time     time.Time `json:"time"`
}
