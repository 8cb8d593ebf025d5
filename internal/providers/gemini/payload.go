package gemini

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrEmptyPayload is returned when the model text holds no JSON fragment.
var ErrEmptyPayload = errors.New("empty payload")

// DecodePayload extracts the JSON fragment from model text (code fences and
// chatter around it are dropped) and decodes it into T. Syntax errors get one
// repair attempt before giving up.
func DecodePayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, ErrEmptyPayload
	}
	var decoded T
	err := json.Unmarshal([]byte(cleaned), &decoded)
	if err == nil {
		return decoded, nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return zero, err
	}
	fixed, repairErr := jsonrepair.JSONRepair(cleaned)
	if repairErr != nil {
		return zero, err
	}
	decoded = *new(T)
	if err := json.Unmarshal([]byte(fixed), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	end := strings.LastIndexAny(text, "]}")
	if end >= start {
		text = text[start : end+1]
	} else {
		text = text[start:]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// NormalizeList trims entries, drops empties and case-insensitive duplicates,
// and keeps at most limit entries (no limit when limit <= 0).
func NormalizeList(items []string, limit int) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, item)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}
