package storage

import (
	"strings"
	"testing"

	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCacheKey(t *testing.T) {
	req := models.EditRequest{Data: []byte("img"), MIMEType: "image/png", Instruction: "enhance"}

	key := GenerateCacheKey(req)
	assert.True(t, strings.HasPrefix(key, CacheKeyPrefix))
	assert.Len(t, key, len(CacheKeyPrefix)+64)
	assert.Equal(t, key, GenerateCacheKey(req))

	other := req
	other.Instruction = "shadow"
	assert.NotEqual(t, key, GenerateCacheKey(other))

	// Moving bytes across field boundaries must change the key.
	shifted := models.EditRequest{Data: []byte("im"), MIMEType: "gimage/png", Instruction: "enhance"}
	assert.NotEqual(t, key, GenerateCacheKey(shifted))
}

func TestEditCodec(t *testing.T) {
	img := &models.EditedImage{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}

	data, err := encodeEdit(img)
	require.NoError(t, err)

	decoded, err := decodeEdit(data)
	require.NoError(t, err)
	assert.Equal(t, img, decoded)

	_, err = decodeEdit([]byte{0xff, 0x00})
	assert.Error(t, err)

	empty, err := encodeEdit(&models.EditedImage{MIMEType: "image/png"})
	require.NoError(t, err)
	_, err = decodeEdit(empty)
	assert.ErrorContains(t, err, "empty")
}
