// Package imagedata decodes images submitted as base64 data URLs
// ("data:image/png;base64,....").
package imagedata

import (
	"encoding/base64"
	"strings"

	"foodgram/domain"
)

// Image is a decoded upload. Ext includes the leading dot.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var ErrInvalidImage = domain.NewValidationError("image", "must be a base64 encoded data URL of a png, jpeg, gif or webp image")

func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// Decode parses a data URL. Only the declared media type is checked; the
// bytes themselves are not inspected.
func Decode(s string) (Image, error) {
	if !IsDataURL(s) {
		return Image{}, ErrInvalidImage
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return Image{}, ErrInvalidImage
	}
	contentType, encoding, ok := strings.Cut(header, ";")
	if !ok || encoding != "base64" {
		return Image{}, ErrInvalidImage
	}
	contentType = strings.ToLower(contentType)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return Image{}, ErrInvalidImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return Image{}, ErrInvalidImage
	}
	return Image{Data: data, ContentType: contentType, Ext: ext}, nil
}
