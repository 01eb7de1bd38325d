package models

// InstructionFunc builds the edit instruction for one image.
type InstructionFunc func(image UploadedImage) string

type Preset struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Instruction InstructionFunc `json:"-"`
}
