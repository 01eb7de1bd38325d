package models

import "github.com/phambaophuc/product-studio/pkg/utils"

// UploadedImage is one accepted file of a batch. The filename is its
// identity within the batch.
type UploadedImage struct {
	Name      string `json:"name"`
	MIMEType  string `json:"mime_type"`
	Size      int64  `json:"size"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	DataURL   string `json:"-"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Payload returns the raw bytes carried by the image's data URL.
func (i UploadedImage) Payload() ([]byte, error) {
	data, _, err := utils.DecodeDataURL(i.DataURL)
	return data, err
}

// Rejection describes a file skipped during intake.
type Rejection struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// BatchRequest pairs the image sequence with the preset applied to it.
type BatchRequest struct {
	Images []UploadedImage
	Preset Preset
}
