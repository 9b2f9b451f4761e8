package core

import (
	"context"
	"encoding/json"
	"time"
)

// ContentRequest asks a generator for structured content.
type ContentRequest struct {
	// Stage names the pipeline stage issuing the request, for logging
	// and provider-side attribution.
	Stage string
	// Prompt is the full instruction text.
	Prompt string
	// Schema, when non-nil, is a JSON Schema the response must satisfy.
	Schema json.RawMessage
	// Temperature overrides the provider default when > 0.
	Temperature float64
}

// ContentResult is a generator's raw structured response.
type ContentResult struct {
	// Raw is the response body, expected to be valid JSON when a
	// schema was supplied.
	Raw []byte
	// Model identifies the model that produced the response.
	Model string
	// Duration is how long the provider call took.
	Duration time.Duration
}

// ContentGenerator produces structured game content. Implementations
// must be safe for concurrent use.
type ContentGenerator interface {
	// Name returns a stable identifier for this generator.
	Name() string
	// Generate produces content for the request. Errors should be
	// DomainErrors so callers can distinguish retryable failures.
	Generate(ctx context.Context, req ContentRequest) (*ContentResult, error)
	// IsAvailable reports whether the generator's backing tool or
	// credentials are usable in this environment.
	IsAvailable(ctx context.Context) bool
}

// ImageRequest asks a generator for one portrait.
type ImageRequest struct {
	// Subject names who the portrait depicts, for logging.
	Subject string
	// Prompt is the full image prompt including style directives.
	Prompt string
	// OutputPath is where the image file must be written.
	OutputPath string
}

// ImageGenerator produces portrait images. Implementations must be
// safe for concurrent use; the batch runner calls Generate from
// multiple workers.
type ImageGenerator interface {
	Name() string
	Generate(ctx context.Context, req ImageRequest) error
	IsAvailable(ctx context.Context) bool
}
