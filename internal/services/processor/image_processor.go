package processor

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/product-studio/pkg/utils"
	_ "golang.org/x/image/webp"
)

const (
	DefaultThumbnailSize = 256
	MIMETypePNG          = "image/png"
)

// Preview is the decoded, addressable form of an uploaded image.
type Preview struct {
	Width     int
	Height    int
	Thumbnail string
}

type ImageProcessor struct {
	thumbnailSize int
}

func NewImageProcessor(thumbnailSize int) *ImageProcessor {
	if thumbnailSize <= 0 {
		thumbnailSize = DefaultThumbnailSize
	}
	return &ImageProcessor{thumbnailSize: thumbnailSize}
}

// Preview decodes data and renders a PNG thumbnail as a data URL.
func (p *ImageProcessor) Preview(data []byte) (*Preview, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	thumb := imaging.Fit(img, p.thumbnailSize, p.thumbnailSize, imaging.Lanczos)

	buffer := &bytes.Buffer{}
	if err := encodePNG(buffer, thumb); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return &Preview{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Thumbnail: utils.EncodeDataURL(MIMETypePNG, buffer.Bytes()),
	}, nil
}

// NormalizePNG returns data re-encoded as PNG unless it already is PNG.
func (p *ImageProcessor) NormalizePNG(data []byte, mimeType string) ([]byte, error) {
	if utils.NormalizeContentType(mimeType) == MIMETypePNG {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	buffer := &bytes.Buffer{}
	if err := encodePNG(buffer, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buffer.Bytes(), nil
}

func encodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}
