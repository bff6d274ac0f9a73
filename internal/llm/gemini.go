package llm

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey string, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0) // deterministic structured output
	if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = geminiSchema(req.Schema)
	}

	parts := make([]genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
	}
	parts = append(parts, genai.Text(req.Prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return "", transportFromStatus(gerr.Code, err)
		}
		return "", transportFromStatus(0, err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				return string(txt), nil
			}
		}
	}

	return "", nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func geminiSchema(s *Schema) *genai.Schema {
	item := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{},
		Required:   s.Required,
	}
	for _, field := range s.Fields {
		item.Properties[field] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			s.ArrayProperty: {Type: genai.TypeArray, Items: item},
		},
	}
}
