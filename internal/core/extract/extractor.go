package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/cardscan/internal/core/common"
	"github.com/agenthands/cardscan/internal/core/model"
	"github.com/agenthands/cardscan/internal/llm"
)

var (
	// ErrNoCredential means no usable API credential was available at call
	// time. Checked before any network IO is attempted.
	ErrNoCredential = errors.New("no API credential configured")

	// ErrEmptyResponse means the endpoint returned no text content.
	ErrEmptyResponse = errors.New("empty response from extraction endpoint")

	// ErrMalformedResponse means the response text could not be parsed
	// against the contacts schema.
	ErrMalformedResponse = errors.New("malformed extraction response")
)

// Prompt is the fixed instruction sent with every extraction request. Each
// image may hold several cards or people; the model must emit one entry per
// distinct person and empty strings for anything it cannot read.
const Prompt = `Extract all contact information from these business card images.
Analyze the visual details carefully. Each image may contain multiple
distinct business cards or people; return one entry per distinct person.
Return a JSON object with a "contacts" array.
For each person found, include:
- name (Full Name)
- title (Job Position)
- company (Company)
- email (Email)
- phone (Phone)
- website (URL)
- address (Address)
- linkedin (LinkedIn)
- notes (Extra info like slogans or certifications)

Return ONLY valid JSON. Use empty strings for missing fields.`

// ResponseSchema is the structured-output contract: an object with a
// "contacts" array of nine string fields, name required.
func ResponseSchema() *llm.Schema {
	return &llm.Schema{
		ArrayProperty: "contacts",
		Fields:        model.FieldNames,
		Required:      []string{"name"},
	}
}

// Extractor turns normalized card images into Contact-shaped field sets via
// one round-trip to the extraction endpoint. It never retries and never
// caches; retry policy belongs to the caller.
type Extractor struct {
	client llm.VisionClient
}

// New builds an Extractor. A nil client is allowed: it models the
// not-yet-provisioned credential state, and every Extract call reports
// ErrNoCredential until SetClient provides one.
func New(client llm.VisionClient) *Extractor {
	return &Extractor{client: client}
}

// SetClient swaps in a client once a credential becomes available.
func (e *Extractor) SetClient(client llm.VisionClient) {
	e.client = client
}

// Ready reports whether a credential-bearing client is configured.
func (e *Extractor) Ready() bool {
	return e.client != nil
}

type contactsEnvelope struct {
	Contacts []map[string]any `json:"contacts"`
}

// Extract sends all payloads in order plus the instruction prompt, parses
// the schema-constrained response, and returns one coerced field set per
// detected person. A response without a "contacts" array yields zero
// results, not an error.
func (e *Extractor) Extract(ctx context.Context, payloads []model.ImagePayload) ([]model.ContactFields, error) {
	if e.client == nil {
		return nil, ErrNoCredential
	}

	images := make([]llm.ImagePart, len(payloads))
	for i, p := range payloads {
		images[i] = llm.ImagePart{MIMEType: p.MIMEType, Data: p.Data}
	}

	raw, err := e.client.Generate(ctx, llm.Request{
		Images: images,
		Prompt: Prompt,
		Schema: ResponseSchema(),
	})
	if err != nil {
		return nil, err
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	envelope, err := common.ParseJSON[contactsEnvelope](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	fields := make([]model.ContactFields, len(envelope.Contacts))
	for i, record := range envelope.Contacts {
		fields[i] = model.CoerceFields(record)
	}
	return fields, nil
}
