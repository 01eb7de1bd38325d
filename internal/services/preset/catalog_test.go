package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := NewCatalog()

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, AmazonReady, list[0].ID)
	assert.Equal(t, AutoEnhance, list[1].ID)
	assert.Equal(t, DropShadow, list[2].ID)

	img := models.UploadedImage{Name: "shoe.jpg"}
	for _, p := range list {
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Instruction(img))
	}

	instruction, err := c.Instruction(AmazonReady, img)
	require.NoError(t, err)
	assert.Contains(t, instruction, "return transparent PNG")
}

func TestInstructionIsFixedPerPreset(t *testing.T) {
	c := NewCatalog()

	a, err := c.Instruction(AutoEnhance, models.UploadedImage{Name: "a.jpg"})
	require.NoError(t, err)
	b, err := c.Instruction(AutoEnhance, models.UploadedImage{Name: "b.png"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestUnknownPreset(t *testing.T) {
	_, err := NewCatalog().Get("sepia")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestRegister(t *testing.T) {
	c := NewCatalog()

	err := c.Register(models.Preset{
		ID: "caption",
		Instruction: func(img models.UploadedImage) string {
			return "Add a caption reading " + img.Name
		},
	})
	require.NoError(t, err)

	p, err := c.Get("caption")
	require.NoError(t, err)
	assert.Equal(t, "caption", p.Name)
	assert.Equal(t, "Add a caption reading cup.png", p.Instruction(models.UploadedImage{Name: "cup.png"}))
	assert.Len(t, c.List(), 4)

	assert.Error(t, c.Register(models.Preset{ID: "empty"}))
	assert.Error(t, c.Register(models.Preset{Instruction: Static("x")}))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	doc := `presets:
  - id: studio-white
    name: Studio White
    description: Pure white seamless backdrop.
    instruction: Replace the background with a seamless pure white studio backdrop.
  - id: auto-enhance
    name: Gentle Enhance
    instruction: Slightly brighten the product.
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c := NewCatalog()
	require.NoError(t, c.LoadFile(path))

	assert.Equal(t, []string{AmazonReady, AutoEnhance, DropShadow, "studio-white"}, listIDs(c))

	p, err := c.Get(AutoEnhance)
	require.NoError(t, err)
	assert.Equal(t, "Gentle Enhance", p.Name)
	assert.Equal(t, "Slightly brighten the product.", p.Instruction(models.UploadedImage{}))
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	c := NewCatalog()

	err := c.Load([]byte("presets:\n  - id: ok\n    instruction: fine\n  - id: broken\n"))
	assert.ErrorContains(t, err, "preset 1")
	assert.Len(t, c.List(), 3)

	assert.Error(t, c.Load([]byte("presets: [")))
	assert.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func listIDs(c *Catalog) []string {
	var ids []string
	for _, p := range c.List() {
		ids = append(ids, p.ID)
	}
	return ids
}
