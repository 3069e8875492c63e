package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// ImageStore hosts book cover images. Upload returns the public URL the
// stored book record carries; Delete removes a previously uploaded image by
// that URL.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, imageURL string) error
}

// Image is a decoded data-URI payload.
type Image struct {
	ContentType string
	Data        []byte
}

// Ext returns the file extension matching the image content type.
func (i Image) Ext() string {
	switch i.ContentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// ParseDataURI decodes an RFC 2397 "data:image/...;base64," payload, the
// format clients submit cover images in.
func ParseDataURI(uri string) (Image, error) {
	if !strings.HasPrefix(uri, "data:image/") {
		return Image{}, fmt.Errorf("not an image data URI")
	}
	rest := strings.TrimPrefix(uri, "data:")

	sep := strings.Index(rest, ",")
	if sep < 0 {
		return Image{}, fmt.Errorf("malformed data URI")
	}
	meta, payload := rest[:sep], rest[sep+1:]

	if !strings.HasSuffix(meta, ";base64") {
		return Image{}, fmt.Errorf("data URI must be base64 encoded")
	}
	contentType := strings.TrimSuffix(meta, ";base64")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode data URI payload: %w", err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("empty image payload")
	}

	return Image{ContentType: contentType, Data: data}, nil
}

// IsDataURI reports whether s looks like an inline image payload rather
// than an already-hosted URL.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:image/")
}
