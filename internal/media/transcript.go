package media

import (
	"context"
	"fmt"
)

// SimulatedTranscript stands in for a real speech-to-text service upstream of
// highlight detection.
type SimulatedTranscript struct{}

// NewSimulatedTranscript creates a new SimulatedTranscript
func NewSimulatedTranscript() *SimulatedTranscript {
	return &SimulatedTranscript{}
}

// Transcript returns a deterministic placeholder transcript for the video
func (s *SimulatedTranscript) Transcript(ctx context.Context, videoID string) (string, error) {
	return fmt.Sprintf(`This is a simulated transcript for video %s.
Key segments include: Introduction at 30 seconds, main content from 60-180 seconds,
conclusion at 200 seconds. Important highlights are at 45s, 120s, and 180s.`, videoID), nil
}
