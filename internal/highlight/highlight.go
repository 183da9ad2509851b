package highlight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Window is a time range worth clipping
type Window struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Description string `json:"description"`
}

// Oracle identifies highlight windows in a transcript. It may fail or return
// an empty result; callers fall back to FallbackWindows.
type Oracle interface {
	Highlights(ctx context.Context, transcript string) ([]Window, error)
}

// FallbackWindows returns three fixed windows used when the oracle yields
// nothing usable. Fixed rather than proportional to media duration, which the
// data model does not track; this guarantees the pipeline always has work.
func FallbackWindows() []Window {
	return []Window{
		{Start: 30, End: 60, Description: "Introduction"},
		{Start: 60, End: 120, Description: "Main content part 1"},
		{Start: 120, End: 180, Description: "Main content part 2"},
	}
}

// ParseWindows decodes an oracle response into windows, dropping any whose
// range is not strictly increasing
func ParseWindows(text string) ([]Window, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var windows []Window
	if err := json.Unmarshal([]byte(cleaned), &windows); err != nil {
		return nil, fmt.Errorf("parse highlight windows: %w", err)
	}

	valid := windows[:0]
	for _, w := range windows {
		if w.End > w.Start && w.Start >= 0 {
			valid = append(valid, w)
		}
	}

	return valid, nil
}
