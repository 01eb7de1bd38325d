package processor

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/phambaophuc/product-studio/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, img, nil))
	return buf.Bytes()
}

func TestPreview(t *testing.T) {
	p := NewImageProcessor(32)

	preview, err := p.Preview(encodeJPEG(t, solidImage(128, 64)))
	require.NoError(t, err)

	assert.Equal(t, 128, preview.Width)
	assert.Equal(t, 64, preview.Height)

	thumb, mimeType, err := utils.DecodeDataURL(preview.Thumbnail)
	require.NoError(t, err)
	assert.Equal(t, MIMETypePNG, mimeType)

	cfg, err := png.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
}

func TestPreviewRejectsGarbage(t *testing.T) {
	_, err := NewImageProcessor(0).Preview([]byte("definitely not an image"))
	assert.ErrorContains(t, err, "failed to decode image")
}

func TestNormalizePNG(t *testing.T) {
	p := NewImageProcessor(0)

	t.Run("png passes through", func(t *testing.T) {
		in := []byte("already png")
		out, err := p.NormalizePNG(in, "image/png")
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("jpeg is re-encoded", func(t *testing.T) {
		out, err := p.NormalizePNG(encodeJPEG(t, solidImage(8, 8)), "image/jpeg")
		require.NoError(t, err)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, 8, cfg.Width)
	})

	t.Run("undecodable output", func(t *testing.T) {
		_, err := p.NormalizePNG([]byte{1, 2, 3}, "image/jpeg")
		assert.Error(t, err)
	})
}
