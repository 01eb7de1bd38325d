package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURLRoundTrip(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}

	data, mimeType, err := DecodeDataURL(EncodeDataURL("image/png", payload))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "image/png", mimeType)
}

func TestDecodeDataURLMalformed(t *testing.T) {
	for _, input := range []string{
		"",
		"data:image/png;base64,",
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,!!!not-base64!!!",
	} {
		t.Run(input, func(t *testing.T) {
			_, _, err := DecodeDataURL(input)
			assert.ErrorIs(t, err, ErrInvalidDataURL)
		})
	}
}

func TestEditedFilename(t *testing.T) {
	tests := map[string]string{
		"shoe.jpg":           "shoe_edited.png",
		"my.product.webp":    "my.product_edited.png",
		"noextension":        "noextension_edited.png",
		"dir/nested/cup.PNG": "cup_edited.png",
	}
	for in, want := range tests {
		assert.Equal(t, want, EditedFilename(in, "png"), in)
	}
}

func TestIsValidImageType(t *testing.T) {
	allowed := []string{"image/jpeg", "image/png", "image/webp"}

	assert.True(t, IsValidImageType("image/jpeg", allowed))
	assert.True(t, IsValidImageType("IMAGE/PNG; charset=binary", allowed))
	assert.False(t, IsValidImageType("image/gif", allowed))
	assert.False(t, IsValidImageType("", allowed))
}

func TestFormatLabels(t *testing.T) {
	assert.Equal(t, "JPG, PNG, or WEBP", FormatLabels([]string{"image/jpeg", "image/png", "image/webp"}))
	assert.Equal(t, "PNG or WEBP", FormatLabels([]string{"image/png", "image/webp"}))
	assert.Equal(t, "PNG", FormatLabels([]string{"image/png"}))
}
