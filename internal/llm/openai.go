package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey string, model string, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAIClient{
		client: client,
		model:  model,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", img.MIMEType,
					base64.StdEncoding.EncodeToString(img.Data)),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
	}
	if req.Schema != nil {
		// OpenAI JSON mode guarantees well-formed JSON; the field contract
		// rides in the prompt.
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", transportFromStatus(apiErr.HTTPStatusCode, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", transportFromStatus(reqErr.HTTPStatusCode, err)
		}
		return "", transportFromStatus(0, err)
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, nil
	}
	return "", nil
}
