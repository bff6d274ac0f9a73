package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON cleans and unmarshals a JSON string into a type T.
// It handles common LLM quirks like markdown fences or extra prose around
// the object.
func ParseJSON[T any](response string) (T, error) {
	var zero T
	jsonStr := strings.TrimSpace(response)

	if strings.HasPrefix(jsonStr, "```") {
		jsonStr = strings.TrimPrefix(jsonStr, "```json")
		jsonStr = strings.TrimPrefix(jsonStr, "```")
		jsonStr = strings.TrimSuffix(strings.TrimSpace(jsonStr), "```")
	}

	// Find first '{' and last '}'
	start := strings.IndexByte(jsonStr, '{')
	end := strings.LastIndexByte(jsonStr, '}')

	if start == -1 || end == -1 || start > end {
		return zero, fmt.Errorf("no JSON object found in response")
	}
	jsonStr = jsonStr[start : end+1]

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return result, nil
}
