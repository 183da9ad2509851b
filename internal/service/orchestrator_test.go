package service_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/artur/clipforge/internal/database"
	"github.com/artur/clipforge/internal/database/models"
	"github.com/artur/clipforge/internal/database/repository"
	"github.com/artur/clipforge/internal/lifecycle"
	"github.com/artur/clipforge/internal/logger"
	"github.com/artur/clipforge/internal/quota"
	"github.com/artur/clipforge/internal/service"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fakePipeline struct {
	mu   sync.Mutex
	runs int
	fn   func(ctx context.Context, videoID string) ([]models.Clip, error)
}

func (p *fakePipeline) Run(ctx context.Context, videoID string) ([]models.Clip, error) {
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()
	return p.fn(ctx, videoID)
}

func (p *fakePipeline) runCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

type testEnv struct {
	orchestrator *service.Orchestrator
	accounts     *repository.AccountRepository
	usage        *repository.UsageRepository
	pipeline     *fakePipeline
	clipsRoot    string
}

func newTestEnv(t *testing.T, pipe *fakePipeline) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	dbWrapper := &database.DB{DB: db}
	if err := dbWrapper.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	accounts := repository.NewAccountRepository(db)
	jobs := repository.NewJobRepository(db)
	usage := repository.NewUsageRepository(db)

	root := t.TempDir()
	log := logger.New("error")
	files := lifecycle.New(filepath.Join(root, "scratch"), filepath.Join(root, "clips"), log)
	if err := files.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}

	orchestrator := service.New(
		accounts,
		jobs,
		usage,
		quota.New(accounts),
		pipe,
		files,
		nil,
		log,
		service.Options{Workers: 2},
	)
	t.Cleanup(orchestrator.Close)

	return &testEnv{
		orchestrator: orchestrator,
		accounts:     accounts,
		usage:        usage,
		pipeline:     pipe,
		clipsRoot:    filepath.Join(root, "clips"),
	}
}

func (e *testEnv) createAccount(t *testing.T, id string, tier models.Tier, processed int64) {
	t.Helper()
	account := &models.Account{
		ID:              id,
		Email:           id + "@example.com",
		Tier:            tier,
		VideosProcessed: processed,
		WindowStart:     time.Now(),
		CreatedAt:       time.Now(),
	}
	if err := e.accounts.Create(account); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
}

// makeClips writes real clip files so delivery can stream and delete them
func (e *testEnv) makeClips(t *testing.T, n int) []models.Clip {
	t.Helper()
	clips := make([]models.Clip, n)
	for i := range clips {
		filename := fmt.Sprintf("clip-%d.mp4", i+1)
		path := filepath.Join(e.clipsRoot, filename)
		if err := os.WriteFile(path, []byte("clip content "+filename), 0644); err != nil {
			t.Fatalf("Failed to write clip file: %v", err)
		}
		clips[i] = models.Clip{
			Position:    i + 1,
			Filename:    filename,
			Path:        path,
			Duration:    30,
			Description: "Highlight",
			CreatedAt:   time.Now(),
		}
	}
	return clips
}

func (e *testEnv) waitForTerminal(t *testing.T, jobID, accountID string) *models.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := e.orchestrator.Status(context.Background(), jobID, accountID)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if job.State != models.JobStateProcessing {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Job never reached a terminal state")
	return nil
}

func TestOrchestrator_Submit_InvalidURL(t *testing.T) {
	pipe := &fakePipeline{fn: func(ctx context.Context, videoID string) ([]models.Clip, error) {
		return nil, errors.New("should not run")
	}}
	env := newTestEnv(t, pipe)
	env.createAccount(t, "acc-1", models.TierFree, 0)

	tests := []string{
		"https://vimeo.com/123456",
		"not a url at all",
		"",
	}

	for _, url := range tests {
		_, err := env.orchestrator.Submit(context.Background(), "acc-1", url)
		if !errors.Is(err, service.ErrInvalidSource) {
			t.Errorf("Submit(%q) error = %v, want ErrInvalidSource", url, err)
		}
	}

	if pipe.runCount() != 0 {
		t.Errorf("Expected no pipeline runs, got %d", pipe.runCount())
	}
	events, _ := env.usage.ListByAccount("acc-1", 50)
	if len(events) != 0 {
		t.Errorf("Expected no usage events, got %d", len(events))
	}
	account, _ := env.accounts.GetByID("acc-1")
	if account.VideosProcessed != 0 {
		t.Errorf("Expected counter untouched, got %d", account.VideosProcessed)
	}
}

func TestOrchestrator_Submit_UnknownAccount(t *testing.T) {
	pipe := &fakePipeline{fn: func(ctx context.Context, videoID string) ([]models.Clip, error) {
		return nil, errors.New("should not run")
	}}
	env := newTestEnv(t, pipe)

	_, err := env.orchestrator.Submit(context.Background(), "ghost", testURL)
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Submit error = %v, want ErrNotFound", err)
	}
}

func TestOrchestrator_Submit_Success(t *testing.T) {
	var env *testEnv
	pipe := &fakePipeline{fn: func(ctx context.Context, videoID string) ([]models.Clip, error) {
		return env.makeClips(t, 2), nil
	}}
	env = newTestEnv(t, pipe)
	env.createAccount(t, "acc-1", models.TierFree, 0)

	jobID, err := env.orchestrator.Submit(context.Background(), "acc-1", testURL)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if jobID == "" {
		t.Fatal("Expected a job ID")
	}

	job := env.waitForTerminal(t, jobID, "acc-1")
	if job.State != models.JobStateCompleted {
		t.Fatalf("Expected completed job, got %s (%s)", job.State, job.ErrorMessage)
	}
	if len(job.Clips) != 2 {
		t.Errorf("Expected 2 clips, got %d", len(job.Clips))
	}
	if job.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}

	account, _ := env.accounts.GetByID("acc-1")
	if account.VideosProcessed != 1 {
		t.Errorf("Expected counter incremented once, got %d", account.VideosProcessed)
	}

	events, _ := env.usage.ListByAccount("acc-1", 50)
	if len(events) != 1 {
		t.Fatalf("Expected 1 usage event, got %d", len(events))
	}
	if events[0].Action != models.ActionVideoProcessed {
		t.Errorf("Expected video_processed event, got %s", events[0].Action)
	}
	var detail map[string]interface{}
	if err := json.Unmarshal([]byte(events[0].Detail), &detail); err != nil {
		t.Fatalf("Failed to parse event detail: %v", err)
	}
	if detail["clips"] != float64(2) {
		t.Errorf("Expected clips=2 in detail, got %v", detail["clips"])
	}
}

func TestOrchestrator_Submit_PipelineFailure(t *testing.T) {
	pipe := &fakePipeline{fn: func(ctx context.Context, videoID string) ([]models.Clip, error) {
		return nil, errors.New("video processing failed: fetch media: gone")
	}}
	env := newTestEnv(t, pipe)
	env.createAccount(t, "acc-1", models.TierFree, 0)

	jobID, err := env.orchestrator.Submit(context.Background(), "acc-1", testURL)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	job := env.waitForTerminal(t, jobID, "acc-1")
	if job.State != models.JobStateFailed {
		t.Fatalf("Expected failed job, got %s", job.State)
	}
	if job.ErrorMessage == "" {
		t.Error("Expected error message to be recorded")
	}
	if len(job.Clips) != 0 {
		t.Errorf("Expected no persisted clips, got %d", len(job.Clips))
	}

	account, _ := env.accounts.GetByID("acc-1")
	if account.VideosProcessed != 0 {
		t.Errorf("Expected counter untouched on failure, got %d", account.VideosProcessed)
	}

	events, _ := env.usage.ListByAccount("acc-1", 50)
	if len(events) != 1 {
		t.Fatalf("Expected 1 usage event, got %d", len(events))
	}
	var detail map[string]interface{}
	json.Unmarshal([]byte(events[0].Detail), &detail)
	if detail["error"] == nil {
		t.Error("Expected error in failure event detail")
	}
}

func TestOrchestrator_Submit_QuotaExceeded(t *testing.T) {
	pipe := &fakePipeline{fn: func(ctx context.Context, videoID string) ([]models.Clip, error) {
		return nil, errors.New("should not run")
	}}
	env := newTestEnv(t, pipe)
	env.createAccount(t, "acc-1", models.TierFree, 5)

	_, err := env.orchestrator.Submit(context.Background(), "acc-1", testURL)

	var quotaErr *service.QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("Submit error = %v, want QuotaExceededError", err)
	}
	if !quotaErr.IsFreeLimit {
		t.Error("Expected the free-limit flag on a free daily cap rejection")
	}
	if pipe.runCount() != 0 {
		t.Errorf("Expected no pipeline runs, got %d", pipe.runCount())
	}
}

func TestOrchestrator_Status_NotFound(t *testing.T) {
	var env *testEnv
	pipe := &fakePipeline{fn: func(ctx context.Context, videoID string) ([]models.Clip, error) {
		return env.makeClips(t, 1), nil
	}}
	env = newTestEnv(t, pipe)
	env.createAccount(t, "acc-1", models.TierFree, 0)
	env.createAccount(t, "acc-2", models.TierFree, 0)

	jobID, err := env.orchestrator.Submit(context.Background(), "acc-1", testURL)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	env.waitForTerminal(t, jobID, "acc-1")

	// Wrong account
	if _, err := env.orchestrator.Status(context.Background(), jobID, "acc-2"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Status for wrong account = %v, want ErrNotFound", err)
	}

	// Unknown job
	if _, err := env.orchestrator.Status(context.Background(), "missing", "acc-1"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Status for unknown job = %v, want ErrNotFound", err)
	}
}

func TestOrchestrator_DeliverClip(t *testing.T) {
	var env *testEnv
	pipe := &fakePipeline{fn: func(ctx context.Context, videoID string) ([]models.Clip, error) {
		return env.makeClips(t, 2), nil
	}}
	env = newTestEnv(t, pipe)
	env.createAccount(t, "acc-1", models.TierFree, 0)

	jobID, err := env.orchestrator.Submit(context.Background(), "acc-1", testURL)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	env.waitForTerminal(t, jobID, "acc-1")

	// Deliver the first clip
	stream, clip, err := env.orchestrator.DeliverClip(context.Background(), jobID, "acc-1", 0)
	if err != nil {
		t.Fatalf("DeliverClip failed: %v", err)
	}
	content, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("Failed to read stream: %v", err)
	}
	if len(content) == 0 {
		t.Error("Expected clip content")
	}
	stream.Close()

	if _, err := os.Stat(clip.Path); !os.IsNotExist(err) {
		t.Error("Expected backing file deleted after delivery")
	}

	job, _ := env.orchestrator.Status(context.Background(), jobID, "acc-1")
	if len(job.Clips) != 1 {
		t.Fatalf("Expected 1 remaining clip, got %d", len(job.Clips))
	}
	if job.State != models.JobStateCompleted {
		t.Errorf("Expected job still completed, got %s", job.State)
	}

	// Deliver the last clip: job advances to deleted
	stream, clip, err = env.orchestrator.DeliverClip(context.Background(), jobID, "acc-1", 0)
	if err != nil {
		t.Fatalf("DeliverClip failed: %v", err)
	}
	io.ReadAll(stream)
	stream.Close()

	if _, err := os.Stat(clip.Path); !os.IsNotExist(err) {
		t.Error("Expected backing file deleted after delivery")
	}

	job, _ = env.orchestrator.Status(context.Background(), jobID, "acc-1")
	if job.State != models.JobStateDeleted {
		t.Errorf("Expected deleted state after last clip, got %s", job.State)
	}
	if len(job.Clips) != 0 {
		t.Errorf("Expected empty clip sequence, got %d", len(job.Clips))
	}

	// clip_downloaded events landed in the ledger
	events, _ := env.usage.ListByAccount("acc-1", 50)
	downloads := 0
	for _, e := range events {
		if e.Action == models.ActionClipDownloaded {
			downloads++
		}
	}
	if downloads != 2 {
		t.Errorf("Expected 2 clip_downloaded events, got %d", downloads)
	}
}

func TestOrchestrator_DeliverClip_Errors(t *testing.T) {
	var env *testEnv
	pipe := &fakePipeline{fn: func(ctx context.Context, videoID string) ([]models.Clip, error) {
		return env.makeClips(t, 1), nil
	}}
	env = newTestEnv(t, pipe)
	env.createAccount(t, "acc-1", models.TierFree, 0)
	env.createAccount(t, "acc-2", models.TierFree, 0)

	jobID, err := env.orchestrator.Submit(context.Background(), "acc-1", testURL)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	job := env.waitForTerminal(t, jobID, "acc-1")

	// Wrong account
	if _, _, err := env.orchestrator.DeliverClip(context.Background(), jobID, "acc-2", 0); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("DeliverClip for wrong account = %v, want ErrNotFound", err)
	}

	// Index out of range
	if _, _, err := env.orchestrator.DeliverClip(context.Background(), jobID, "acc-1", 5); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("DeliverClip with bad index = %v, want ErrNotFound", err)
	}

	// Backing file vanished while the record remains
	os.Remove(job.Clips[0].Path)
	if _, _, err := env.orchestrator.DeliverClip(context.Background(), jobID, "acc-1", 0); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("DeliverClip with missing file = %v, want ErrNotFound", err)
	}
}
