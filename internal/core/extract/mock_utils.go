package extract

import (
	"context"

	"github.com/agenthands/cardscan/internal/llm"
)

type MockVisionClient struct {
	Response string
	Err      error
	LastReq  llm.Request
}

func (m *MockVisionClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.LastReq = req
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
