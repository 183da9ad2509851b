package media

import (
	"context"
	"fmt"
	"strconv"

	"github.com/artur/clipforge/pkg/executor"
)

// FFmpeg runs audio extraction and clip cutting through the ffmpeg binary
type FFmpeg struct {
	exec executor.Executor
}

// NewFFmpeg creates a new FFmpeg wrapper
func NewFFmpeg(exec executor.Executor) *FFmpeg {
	return &FFmpeg{exec: exec}
}

// ExtractAudio produces an mp3 audio file from the video
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	args := []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-f", "mp3",
		"-y",
		audioPath,
	}

	if _, err := f.exec.Execute(ctx, "ffmpeg", args...); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}

	return nil
}

// CutClip cuts durationSeconds of video starting at startSeconds into clipPath
func (f *FFmpeg) CutClip(ctx context.Context, videoPath, clipPath string, startSeconds, durationSeconds int) error {
	args := []string{
		"-ss", strconv.Itoa(startSeconds),
		"-i", videoPath,
		"-t", strconv.Itoa(durationSeconds),
		"-c", "copy",
		"-y",
		clipPath,
	}

	if _, err := f.exec.Execute(ctx, "ffmpeg", args...); err != nil {
		return fmt.Errorf("ffmpeg cut clip: %w", err)
	}

	return nil
}
