package llm

import (
	"context"
)

// ImagePart is one inline image attached to a vision request.
type ImagePart struct {
	MIMEType string
	Data     []byte
}

// Schema constrains the model's response to a JSON object holding a single
// array property of objects with string-typed fields. Providers with native
// structured output enforce it server-side; the rest receive it through the
// prompt contract.
type Schema struct {
	ArrayProperty string
	Fields        []string
	Required      []string
}

// Request is one structured vision inference call: ordered image parts
// followed by a text instruction, plus the output schema.
type Request struct {
	Images []ImagePart
	Prompt string
	Schema *Schema
}

// VisionClient performs a single round-trip to a multimodal inference
// endpoint. A successful call with no text content returns ("", nil); the
// caller decides whether that is an error.
type VisionClient interface {
	Generate(ctx context.Context, req Request) (string, error)
}
