package media

import "context"

// Fetcher downloads source media to a local path
type Fetcher interface {
	Fetch(ctx context.Context, videoID, destPath string) error
}

// AudioExtractor produces an audio file from downloaded media
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// ClipCutter cuts a window out of downloaded media
type ClipCutter interface {
	CutClip(ctx context.Context, videoPath, clipPath string, startSeconds, durationSeconds int) error
}

// TranscriptSource provides a transcript for a video
type TranscriptSource interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}
