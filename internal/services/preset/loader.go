package preset

import (
	"fmt"
	"os"
	"strings"

	"github.com/phambaophuc/product-studio/internal/models"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk form of extra presets:
//
//	presets:
//	  - id: studio-white
//	    name: Studio White
//	    description: Pure white seamless backdrop.
//	    instruction: Replace the background with a seamless pure white studio backdrop.
type catalogFile struct {
	Presets []presetEntry `yaml:"presets"`
}

type presetEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Instruction string `yaml:"instruction"`
}

// LoadFile registers every preset listed in a YAML catalog file.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read preset file: %w", err)
	}
	return c.Load(data)
}

// Load registers every preset in a YAML document. Nothing is registered
// when any entry is invalid.
func (c *Catalog) Load(data []byte) error {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse preset file: %w", err)
	}

	presets := make([]models.Preset, 0, len(file.Presets))
	for i, entry := range file.Presets {
		instruction := strings.TrimSpace(entry.Instruction)
		if entry.ID == "" || instruction == "" {
			return fmt.Errorf("preset %d: id and instruction are required", i)
		}
		presets = append(presets, models.Preset{
			ID:          entry.ID,
			Name:        entry.Name,
			Description: entry.Description,
			Instruction: Static(instruction),
		})
	}

	for _, p := range presets {
		if err := c.Register(p); err != nil {
			return err
		}
	}
	return nil
}
