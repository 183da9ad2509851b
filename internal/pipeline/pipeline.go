package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/artur/clipforge/internal/database/models"
	"github.com/artur/clipforge/internal/highlight"
	"github.com/artur/clipforge/internal/lifecycle"
	"github.com/artur/clipforge/internal/logger"
	"github.com/artur/clipforge/internal/media"
)

// Pipeline turns one video into a set of clips: fetch, extract audio, detect
// highlights, cut. A run either returns a non-empty clip list or a single
// aggregated error; there are no retries and no partial successes.
type Pipeline struct {
	fetcher     media.Fetcher
	audio       media.AudioExtractor
	cutter      media.ClipCutter
	transcripts media.TranscriptSource
	oracle      highlight.Oracle
	files       *lifecycle.Manager
	logger      logger.Logger
}

// New creates a Pipeline
func New(
	fetcher media.Fetcher,
	audio media.AudioExtractor,
	cutter media.ClipCutter,
	transcripts media.TranscriptSource,
	oracle highlight.Oracle,
	files *lifecycle.Manager,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		audio:       audio,
		cutter:      cutter,
		transcripts: transcripts,
		oracle:      oracle,
		files:       files,
		logger:      log,
	}
}

// Run processes the video with the given ID and returns its clips
func (p *Pipeline) Run(ctx context.Context, videoID string) ([]models.Clip, error) {
	startTime := time.Now()

	paths, err := p.files.NewRunPaths()
	if err != nil {
		return nil, fmt.Errorf("video processing failed: allocate scratch: %w", err)
	}

	p.logger.Info(ctx, "Starting pipeline for video %s", videoID)

	// Stage 1: fetch
	p.logger.Info(ctx, "Downloading video %s", videoID)
	if err := p.fetcher.Fetch(ctx, videoID, paths.Video); err != nil {
		return nil, p.failRun(ctx, paths, "fetch media", err)
	}

	// Stage 2: audio extraction
	p.logger.Info(ctx, "Extracting audio for video %s", videoID)
	if err := p.audio.ExtractAudio(ctx, paths.Video, paths.Audio); err != nil {
		return nil, p.failRun(ctx, paths, "extract audio", err)
	}

	// Stage 3: highlight detection, never fatal
	windows := p.detectHighlights(ctx, videoID)

	// Stage 4: concurrent clip cutting
	p.logger.Info(ctx, "Cutting %d clips for video %s", len(windows), videoID)
	clips, err := p.cutClips(ctx, paths, windows)

	// Stage 5: scratch media and audio go away regardless of stage 4's outcome
	p.files.CleanupFile(ctx, paths.Video)
	p.files.CleanupFile(ctx, paths.Audio)

	if err != nil {
		p.files.CleanupDir(ctx, paths.ClipsDir)
		return nil, fmt.Errorf("video processing failed: %w", err)
	}

	p.logger.Info(ctx, "Pipeline for video %s produced %d clips in %s",
		videoID, len(clips), time.Since(startTime))

	return clips, nil
}

// detectHighlights obtains a transcript and asks the oracle for windows.
// Any failure or empty result substitutes the fixed fallback windows.
func (p *Pipeline) detectHighlights(ctx context.Context, videoID string) []highlight.Window {
	transcript, err := p.transcripts.Transcript(ctx, videoID)
	if err != nil {
		p.logger.Warn(ctx, "Transcript unavailable for video %s, using fallback windows: %v", videoID, err)
		return highlight.FallbackWindows()
	}

	windows, err := p.oracle.Highlights(ctx, transcript)
	if err != nil {
		p.logger.Warn(ctx, "Highlight detection failed for video %s, using fallback windows: %v", videoID, err)
		return highlight.FallbackWindows()
	}
	if len(windows) == 0 {
		p.logger.Warn(ctx, "Highlight detection returned no windows for video %s, using fallback windows", videoID)
		return highlight.FallbackWindows()
	}

	return windows
}

// cutClips cuts one clip per window concurrently and fails the whole batch if
// any single cut fails
func (p *Pipeline) cutClips(ctx context.Context, paths lifecycle.RunPaths, windows []highlight.Window) ([]models.Clip, error) {
	clips := make([]models.Clip, len(windows))
	errs := make([]error, len(windows))

	var wg sync.WaitGroup
	for i, window := range windows {
		wg.Add(1)
		go func(i int, window highlight.Window) {
			defer wg.Done()

			filename := fmt.Sprintf("clip-%d.mp4", i+1)
			clipPath := filepath.Join(paths.ClipsDir, filename)
			duration := window.End - window.Start

			if err := p.cutter.CutClip(ctx, paths.Video, clipPath, window.Start, duration); err != nil {
				errs[i] = fmt.Errorf("cut clip %d: %w", i+1, err)
				return
			}

			clips[i] = models.Clip{
				Position:    i + 1,
				Filename:    filename,
				Path:        clipPath,
				Duration:    duration,
				Description: window.Description,
				CreatedAt:   time.Now(),
			}
			p.logger.Debug(ctx, "Clip %d created: %s", i+1, clipPath)
		}(i, window)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return clips, nil
}

func (p *Pipeline) failRun(ctx context.Context, paths lifecycle.RunPaths, stage string, cause error) error {
	p.files.CleanupFile(ctx, paths.Video)
	p.files.CleanupFile(ctx, paths.Audio)
	p.files.CleanupDir(ctx, paths.ClipsDir)
	return fmt.Errorf("video processing failed: %s: %w", stage, cause)
}
