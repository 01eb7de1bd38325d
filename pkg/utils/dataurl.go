package utils

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid image data format")

// EncodeDataURL wraps data in a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL strips the data URL prefix and decodes the base64 payload.
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	header, payload, found := strings.Cut(dataURL, ",")
	if !found || payload == "" || !strings.HasPrefix(header, "data:") {
		return nil, "", ErrInvalidDataURL
	}

	mimeType, encoding, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	if encoding != "base64" {
		return nil, "", fmt.Errorf("%w: unsupported encoding %q", ErrInvalidDataURL, encoding)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}

	return data, mimeType, nil
}
