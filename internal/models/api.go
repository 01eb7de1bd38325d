package models

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// UpgradePrompt is returned when a batch exceeds the plan's ceiling.
type UpgradePrompt struct {
	Message string `json:"message"`
	Current int    `json:"current"`
	Limit   int    `json:"limit"`
}

type PlanLimits struct {
	UploadLimit int `json:"upload_limit"`
	BatchLimit  int `json:"batch_limit"`
}

type StartRunRequest struct {
	Preset string `json:"preset" binding:"required"`
}

type IntakeResponse struct {
	Images   []UploadedImage `json:"images"`
	Rejected []Rejection     `json:"rejected,omitempty"`
}

type SessionView struct {
	ID           string          `json:"id"`
	State        RunState        `json:"state"`
	ProgressText string          `json:"progress_text,omitempty"`
	Images       []UploadedImage `json:"images"`
	Processed    []string        `json:"processed"`
	AllProcessed bool            `json:"all_processed"`
	Limits       PlanLimits      `json:"limits"`
}
