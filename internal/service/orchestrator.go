package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artur/clipforge/internal/database/models"
	"github.com/artur/clipforge/internal/database/repository"
	"github.com/artur/clipforge/internal/lifecycle"
	"github.com/artur/clipforge/internal/logger"
	"github.com/artur/clipforge/internal/media"
	"github.com/artur/clipforge/internal/notify"
	"github.com/artur/clipforge/internal/quota"
)

// PipelineRunner executes one processing run for a video
type PipelineRunner interface {
	Run(ctx context.Context, videoID string) ([]models.Clip, error)
}

type task struct {
	jobID     string
	accountID string
	videoID   string
}

// Orchestrator accepts processing requests, gates them through the quota
// engine, and dispatches pipeline runs to a bounded worker pool.
type Orchestrator struct {
	accounts    *repository.AccountRepository
	jobs        *repository.JobRepository
	usage       *repository.UsageRepository
	quota       *quota.Engine
	pipeline    PipelineRunner
	files       *lifecycle.Manager
	notifier    notify.Notifier
	logger      logger.Logger
	sweepMaxAge time.Duration

	tasks chan task
	wg    sync.WaitGroup

	// Serializes Evaluate+Submit per account so concurrent submissions
	// cannot race past the limit check.
	mu           sync.Mutex
	accountLocks map[string]*sync.Mutex
}

// Options configures the Orchestrator
type Options struct {
	Workers     int
	SweepMaxAge time.Duration
}

// New creates an Orchestrator and starts its workers
func New(
	accounts *repository.AccountRepository,
	jobs *repository.JobRepository,
	usage *repository.UsageRepository,
	quotaEngine *quota.Engine,
	pipeline PipelineRunner,
	files *lifecycle.Manager,
	notifier notify.Notifier,
	log logger.Logger,
	opts Options,
) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.SweepMaxAge <= 0 {
		opts.SweepMaxAge = time.Hour
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}

	o := &Orchestrator{
		accounts:     accounts,
		jobs:         jobs,
		usage:        usage,
		quota:        quotaEngine,
		pipeline:     pipeline,
		files:        files,
		notifier:     notifier,
		logger:       log,
		sweepMaxAge:  opts.SweepMaxAge,
		tasks:        make(chan task, 64),
		accountLocks: make(map[string]*sync.Mutex),
	}

	for i := 0; i < opts.Workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}

	return o
}

// Close stops accepting work and waits for in-flight runs to finish
func (o *Orchestrator) Close() {
	close(o.tasks)
	o.wg.Wait()
}

func (o *Orchestrator) accountLock(accountID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.accountLocks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		o.accountLocks[accountID] = lock
	}
	return lock
}

// Submit validates the source URL, checks the account's quota, creates a job
// in processing state, and enqueues the pipeline run. It returns the job ID
// without waiting for processing.
func (o *Orchestrator) Submit(ctx context.Context, accountID, sourceURL string) (string, error) {
	videoID := media.ExtractVideoID(sourceURL)
	if videoID == "" {
		return "", ErrInvalidSource
	}

	lock := o.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	account, err := o.accounts.GetByID(accountID)
	if err != nil {
		return "", fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return "", ErrNotFound
	}

	decision, err := o.quota.Evaluate(account)
	if err != nil {
		return "", fmt.Errorf("evaluate quota: %w", err)
	}
	if !decision.Allowed {
		return "", &QuotaExceededError{
			Reason:      decision.Reason,
			IsFreeLimit: decision.IsFreeLimit,
		}
	}

	job := &models.Job{
		ID:        uuid.NewString(),
		AccountID: accountID,
		SourceURL: sourceURL,
		State:     models.JobStateProcessing,
		CreatedAt: time.Now(),
	}
	if err := o.jobs.Create(job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	o.logger.Info(ctx, "Job %s accepted for account %s (%s)", job.ID, accountID, decision.Reason)
	o.tasks <- task{jobID: job.ID, accountID: accountID, videoID: videoID}

	return job.ID, nil
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for t := range o.tasks {
		o.process(context.Background(), t)
	}
}

// process runs the pipeline for one job and reconciles the job record,
// account counter, and usage ledger exactly once
func (o *Orchestrator) process(ctx context.Context, t task) {
	clips, err := o.pipeline.Run(ctx, t.videoID)
	now := time.Now()

	if err != nil {
		o.logger.Error(ctx, "Job %s failed: %v", t.jobID, err)

		if markErr := o.jobs.MarkFailed(t.jobID, err.Error(), now); markErr != nil {
			o.logger.Error(ctx, "Failed to mark job %s failed: %v", t.jobID, markErr)
		}
		o.appendUsage(ctx, t.accountID, t.jobID, models.ActionVideoProcessed, map[string]interface{}{
			"error": err.Error(),
		})
		o.notifier.NotifyJob(ctx, &models.Job{
			ID:           t.jobID,
			State:        models.JobStateFailed,
			ErrorMessage: err.Error(),
		})
		return
	}

	if markErr := o.jobs.MarkCompleted(t.jobID, clips, now); markErr != nil {
		o.logger.Error(ctx, "Failed to mark job %s completed: %v", t.jobID, markErr)
		return
	}
	if incErr := o.accounts.IncrementProcessed(t.accountID); incErr != nil {
		o.logger.Error(ctx, "Failed to increment counter for account %s: %v", t.accountID, incErr)
	}
	o.appendUsage(ctx, t.accountID, t.jobID, models.ActionVideoProcessed, map[string]interface{}{
		"clips": len(clips),
	})

	o.logger.Info(ctx, "Job %s completed with %d clips", t.jobID, len(clips))
	o.files.Sweep(ctx, o.sweepMaxAge)
	o.notifier.NotifyJob(ctx, &models.Job{
		ID:    t.jobID,
		State: models.JobStateCompleted,
		Clips: clips,
	})
}

func (o *Orchestrator) appendUsage(ctx context.Context, accountID, jobID string, action models.UsageAction, detail map[string]interface{}) {
	payload, err := json.Marshal(detail)
	if err != nil {
		o.logger.Error(ctx, "Failed to encode usage detail: %v", err)
		payload = []byte("{}")
	}

	event := &models.UsageEvent{
		AccountID: accountID,
		JobID:     jobID,
		Action:    action,
		Detail:    string(payload),
		CreatedAt: time.Now(),
	}
	if err := o.usage.Append(event); err != nil {
		o.logger.Error(ctx, "Failed to append usage event for account %s: %v", accountID, err)
	}
}

// Status returns the job if it belongs to the requesting account
func (o *Orchestrator) Status(ctx context.Context, jobID, accountID string) (*models.Job, error) {
	job, err := o.jobs.GetByIDForAccount(jobID, accountID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, ErrNotFound
	}
	return job, nil
}

// DeliverClip streams one clip of a completed job. Closing the returned
// stream always deletes the backing file and removes the clip record; the
// job advances to deleted when its last clip goes. The index addresses the
// job's current clip sequence, zero-based.
func (o *Orchestrator) DeliverClip(ctx context.Context, jobID, accountID string, clipIndex int) (io.ReadCloser, *models.Clip, error) {
	job, err := o.jobs.GetByIDForAccount(jobID, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil || job.State != models.JobStateCompleted {
		return nil, nil, ErrNotFound
	}

	if clipIndex < 0 || clipIndex >= len(job.Clips) {
		return nil, nil, ErrNotFound
	}
	clip := job.Clips[clipIndex]

	file, err := os.Open(clip.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open clip file: %w", err)
	}

	o.appendUsage(ctx, accountID, jobID, models.ActionClipDownloaded, map[string]interface{}{
		"clipIndex": clipIndex,
		"filename":  clip.Filename,
	})

	stream := &deliveryStream{
		file: file,
		onClose: func() {
			o.files.CleanupFile(ctx, clip.Path)
			if _, err := o.jobs.RemoveClip(job.ID, clip.ID); err != nil {
				o.logger.Error(ctx, "Failed to remove delivered clip %s from job %s: %v", clip.Filename, job.ID, err)
			}
		},
	}

	return stream, &clip, nil
}

// deliveryStream deletes the clip when closed, whatever happened to the transfer
type deliveryStream struct {
	file    *os.File
	once    sync.Once
	onClose func()
}

func (s *deliveryStream) Read(p []byte) (int, error) {
	return s.file.Read(p)
}

func (s *deliveryStream) Close() error {
	err := s.file.Close()
	s.once.Do(s.onClose)
	return err
}
