package preset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/phambaophuc/product-studio/internal/models"
)

const (
	AmazonReady = "amazon-ready"
	AutoEnhance = "auto-enhance"
	DropShadow  = "drop-shadow"
)

var ErrUnknownPreset = errors.New("unknown preset")

const (
	amazonReadyInstruction = `Remove the background from this product image. Requirements: Identify the main product object, create clean edges with anti-aliasing, remove ALL background elements, preserve product shadows if natural, return transparent PNG, ensure high precision around complex edges (fur, hair, transparent objects).`
	autoEnhanceInstruction = `Optimize this product photo for e-commerce: Adjust white balance, increase sharpness by 20%, boost saturation slightly (10-15%), enhance lighting evenly, remove color casts, maintain natural product colors. Output: High-quality, e-commerce ready image.`
	dropShadowInstruction  = `Identify the main product in this image, remove the background, and then add a subtle, realistic drop shadow to the product. The final image must have a transparent background.`
)

// Catalog maps action identifiers to presets. It is filled at startup and
// read-only afterwards.
type Catalog struct {
	presets map[string]models.Preset
	order   []string
}

// Static returns an instruction function ignoring the image.
func Static(instruction string) models.InstructionFunc {
	return func(models.UploadedImage) string { return instruction }
}

// NewCatalog returns a catalog holding the three default presets.
func NewCatalog() *Catalog {
	c := &Catalog{presets: make(map[string]models.Preset)}

	c.mustRegister(models.Preset{
		ID:          AmazonReady,
		Name:        "Amazon Ready",
		Description: "Removes background for a pure white result.",
		Instruction: Static(amazonReadyInstruction),
	})
	c.mustRegister(models.Preset{
		ID:          AutoEnhance,
		Name:        "Auto-Enhance",
		Description: "Optimizes color, sharpness, and lighting.",
		Instruction: Static(autoEnhanceInstruction),
	})
	c.mustRegister(models.Preset{
		ID:          DropShadow,
		Name:        "Add Drop Shadow",
		Description: "Adds a soft, realistic shadow for depth.",
		Instruction: Static(dropShadowInstruction),
	})

	return c
}

// Register adds a preset, replacing any entry with the same ID.
func (c *Catalog) Register(p models.Preset) error {
	if p.ID == "" {
		return fmt.Errorf("preset id is required")
	}
	if p.Instruction == nil {
		return fmt.Errorf("preset %q has no instruction", p.ID)
	}
	if p.Name == "" {
		p.Name = p.ID
	}

	if _, exists := c.presets[p.ID]; !exists {
		c.order = append(c.order, p.ID)
	}
	c.presets[p.ID] = p
	return nil
}

func (c *Catalog) mustRegister(p models.Preset) {
	if err := c.Register(p); err != nil {
		panic(err)
	}
}

func (c *Catalog) Get(id string) (models.Preset, error) {
	p, ok := c.presets[id]
	if !ok {
		return models.Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
	}
	return p, nil
}

// Instruction resolves the instruction of preset id for one image.
func (c *Catalog) Instruction(id string, image models.UploadedImage) (string, error) {
	p, err := c.Get(id)
	if err != nil {
		return "", err
	}
	return p.Instruction(image), nil
}

// List returns presets in registration order.
func (c *Catalog) List() []models.Preset {
	list := make([]models.Preset, 0, len(c.order))
	for _, id := range c.order {
		list = append(list, c.presets[id])
	}
	return list
}

// IDs returns the preset identifiers sorted alphabetically.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}
