// Package storage persists uploaded recipe images.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ImageStore saves an image under name and returns the URL it is served from.
// Delete removes what Save stored under name. A missing object is not an error.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, name string) error
}

var ErrInvalidDataURI = errors.New("image must be a base64 data URI")

// maxImageBytes bounds a decoded upload.
const maxImageBytes = 10 << 20

var allowedImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Image is a decoded data URI.
type Image struct {
	ContentType string
	Ext         string
	Data        []byte
}

// IsDataURI reports whether s looks like an inline upload rather than a stored URL.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// DecodeDataURI parses data:image/<type>;base64,<payload>.
func DecodeDataURI(s string) (*Image, error) {
	if !IsDataURI(s) {
		return nil, ErrInvalidDataURI
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, ErrInvalidDataURI
	}
	contentType, encoding, ok := strings.Cut(header, ";")
	if !ok || encoding != "base64" {
		return nil, ErrInvalidDataURI
	}
	ext, ok := allowedImageTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidDataURI, contentType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: image larger than %d bytes", ErrInvalidDataURI, maxImageBytes)
	}
	return &Image{ContentType: contentType, Ext: ext, Data: data}, nil
}

// NewObjectName returns a unique key for a recipe image.
func NewObjectName(ext string) string {
	return fmt.Sprintf("recipes/%s.%s", uuid.NewString(), ext)
}
