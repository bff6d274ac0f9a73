package llm

import (
	"context"
	"errors"

	"github.com/liushuangls/go-anthropic/v2"
)

type ClaudeClient struct {
	client *anthropic.Client
	model  string
}

func NewClaudeClient(apiKey string, model string, baseURL string) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(apiKey, opts...)

	return &ClaudeClient{
		client: client,
		model:  model,
	}
}

func (c *ClaudeClient) Generate(ctx context.Context, req Request) (string, error) {
	content := make([]anthropic.MessageContent, 0, len(req.Images)+1)
	for _, img := range req.Images {
		content = append(content, anthropic.NewImageMessageContent(
			anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64, img.MIMEType, img.Data)))
	}
	content = append(content, anthropic.NewTextMessageContent(req.Prompt))

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: content,
			},
		},
		MaxTokens: 4096,
	})
	if err != nil {
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.IsAuthenticationErr() || apiErr.IsPermissionErr():
				return "", &TransportError{Reason: ReasonUnauthorized, Err: err}
			case apiErr.IsRateLimitErr() || apiErr.IsOverloadedErr():
				return "", &TransportError{Reason: ReasonRateLimited, Err: err}
			case apiErr.IsTooLargeErr():
				return "", &TransportError{Reason: ReasonPayloadTooLarge, Err: err}
			}
		}
		return "", transportFromStatus(0, err)
	}

	return resp.GetFirstContentText(), nil
}
