package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"
)

var youtubeIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`)

// ExtractVideoID pulls the 11-character video ID out of a YouTube URL.
// Returns "" when the text is not a recognizable YouTube reference.
func ExtractVideoID(text string) string {
	matches := youtubeIDPattern.FindStringSubmatch(text)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// YouTubeFetcher downloads YouTube videos
type YouTubeFetcher struct {
	client youtube.Client
}

// NewYouTubeFetcher creates a new YouTubeFetcher
func NewYouTubeFetcher() *YouTubeFetcher {
	return &YouTubeFetcher{
		client: youtube.Client{},
	}
}

// Fetch downloads the video to destPath, picking the smallest mp4 format
// that carries an audio track
func (f *YouTubeFetcher) Fetch(ctx context.Context, videoID, destPath string) error {
	video, err := f.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return fmt.Errorf("failed to get video info: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return fmt.Errorf("no formats with audio found")
	}

	var selectedFormat *youtube.Format
	for i := range formats {
		if !strings.Contains(formats[i].MimeType, "video/mp4") {
			continue
		}
		if selectedFormat == nil || formats[i].ContentLength < selectedFormat.ContentLength {
			selectedFormat = &formats[i]
		}
	}
	if selectedFormat == nil {
		selectedFormat = &formats[0]
	}

	stream, _, err := f.client.GetStreamContext(ctx, video, selectedFormat)
	if err != nil {
		return fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create media file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, stream); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to download video: %w", err)
	}

	return nil
}
