package utils

import (
	"path/filepath"
	"strings"
)

// NormalizeContentType lowercases a media type and drops its parameters.
func NormalizeContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsValidImageType checks a declared media type against an allow-list.
func IsValidImageType(contentType string, allowed []string) bool {
	ct := NormalizeContentType(contentType)
	for _, validType := range allowed {
		if ct == validType {
			return true
		}
	}
	return false
}

// EditedFilename replaces the extension of an original filename with
// "_edited.<format>".
func EditedFilename(originalFilename, format string) string {
	base := filepath.Base(originalFilename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_edited." + format
}

// FormatLabels renders allowed media types the way upload hints show them,
// e.g. "JPG, PNG, or WEBP".
func FormatLabels(allowed []string) string {
	labels := make([]string, 0, len(allowed))
	for _, t := range allowed {
		label := strings.ToUpper(strings.TrimPrefix(t, "image/"))
		if label == "JPEG" {
			label = "JPG"
		}
		labels = append(labels, label)
	}

	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	case 2:
		return labels[0] + " or " + labels[1]
	}
	return strings.Join(labels[:len(labels)-1], ", ") + ", or " + labels[len(labels)-1]
}
