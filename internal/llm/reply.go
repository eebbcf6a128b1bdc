package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoObject = errors.New("no JSON object in reply")

// DecodeReply extracts the outermost JSON object from a model reply, tolerating
// code fences and prose around it.
func DecodeReply[T any](reply string) (T, error) {
	var out T
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end < start {
		return out, ErrNoObject
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &out); err != nil {
		return out, fmt.Errorf("failed to decode reply: %w", err)
	}
	return out, nil
}
