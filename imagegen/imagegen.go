// Package imagegen adapts external image and copywriting APIs to the studio.
//
// Every adapter returns generated images as data URLs so callers can persist
// them without a second fetch.
package imagegen

import (
	"context"
	"errors"

	"thumbnail_studio/core"
)

// Reference is an optional guide image sent with the prompt.
type Reference struct {
	Data     []byte
	MimeType string
}

// ImageRequest is a single call to an image backend.
type ImageRequest struct {
	Prompt      string
	Model       core.ImageModel
	AspectRatio string
	Count       int
	Reference   *Reference
}

// ImageGenerator produces Count images for a prompt.
//
// Implementations must honour ctx cancellation and return data URLs
// ("data:image/png;base64,...").
type ImageGenerator interface {
	GenerateImages(ctx context.Context, req ImageRequest) ([]string, error)
}

var (
	// ErrEmptyPrompt is returned when the request prompt is blank.
	ErrEmptyPrompt = errors.New("imagegen: prompt cannot be empty")
	// ErrNoImages is returned when the backend answered without any image.
	ErrNoImages = errors.New("imagegen: backend returned no images")
	// ErrUnsupportedModel is returned by the router for models without a provider.
	ErrUnsupportedModel = errors.New("imagegen: no provider for model")
)

func normalizeCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > core.MaxImagesPerRequest {
		return core.MaxImagesPerRequest
	}
	return n
}
