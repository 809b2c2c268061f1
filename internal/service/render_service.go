package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/config"
	"github.com/reelcraft/api/internal/model"
)

const TaskTypeRender = "render:process"

// jobRetention keeps finished job records readable for a week.
const jobRetention = 7 * 24 * time.Hour

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrInvalidTimeline = errors.New("invalid timeline")
	ErrQuotaExceeded   = errors.New("storage quota exceeded")
	ErrTooManyItems    = errors.New("too many items in request")
)

// Enqueuer is the slice of asynq.Client the service needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RenderService owns the render job records. It is the only writer of
// status/progress/terminal fields besides the submission path writing the
// input snapshot.
type RenderService struct {
	redis    *redis.Client
	enqueuer Enqueuer
	storage  client.StorageClient
	quota    client.QuotaChecker
	cfg      *config.RenderConfig
}

func NewRenderService(redisClient *redis.Client, enq Enqueuer, storage client.StorageClient, quota client.QuotaChecker, cfg *config.RenderConfig) *RenderService {
	return &RenderService{
		redis:    redisClient,
		enqueuer: enq,
		storage:  storage,
		quota:    quota,
		cfg:      cfg,
	}
}

// ArtifactKey derives the storage path for a job's rendered video. The
// derivation is deterministic so a retried upload overwrites instead of
// orphaning a prior partial object.
func ArtifactKey(ownerID, jobID string) string {
	return fmt.Sprintf("renders/%s/%s.mp4", ownerID, jobID)
}

// ThumbnailKey derives the storage path for a job's thumbnail.
func ThumbnailKey(ownerID, jobID string) string {
	return fmt.Sprintf("renders/%s/%s_thumb.jpg", ownerID, jobID)
}

// Submit validates a timeline, checks quota, persists the job in queued state
// and enqueues an identity-only task.
func (s *RenderService) Submit(ctx context.Context, ownerID string, timeline *model.TimelineModel) (*model.SubmitRenderResponse, error) {
	return s.submit(ctx, ownerID, timeline, "", 0)
}

// SubmitBatch creates one job per variation under a shared batch id. There is
// no completion-order guarantee across the batch; callers track job ids.
func (s *RenderService) SubmitBatch(ctx context.Context, ownerID string, variations []model.TimelineModel) (*model.SubmitBatchResponse, error) {
	if len(variations) > s.cfg.BatchCap {
		return nil, fmt.Errorf("%w: batch of %d exceeds cap %d", ErrTooManyItems, len(variations), s.cfg.BatchCap)
	}
	// Validate everything up front so a bad variation rejects the whole
	// batch instead of leaving it half-created.
	for i := range variations {
		if err := variations[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: variation %d: %v", ErrInvalidTimeline, i, err)
		}
	}

	batchID := uuid.New().String()
	resp := &model.SubmitBatchResponse{BatchID: batchID}
	for i := range variations {
		job, err := s.submit(ctx, ownerID, &variations[i], batchID, i)
		if err != nil {
			return nil, fmt.Errorf("variation %d: %w", i, err)
		}
		resp.Jobs = append(resp.Jobs, *job)
	}
	return resp, nil
}

func (s *RenderService) submit(ctx context.Context, ownerID string, timeline *model.TimelineModel, batchID string, batchIndex int) (*model.SubmitRenderResponse, error) {
	if err := timeline.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimeline, err)
	}

	projected := int64(timeline.TotalDuration * float64(s.cfg.ProjectedBytesPerSecond))
	allowed, err := s.quota.CheckProjected(ctx, ownerID, projected)
	if err != nil {
		return nil, fmt.Errorf("quota check failed: %w", err)
	}
	if !allowed {
		return nil, ErrQuotaExceeded
	}

	snapshot, err := json.Marshal(timeline)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timeline: %w", err)
	}

	now := time.Now().UTC()
	job := &model.RenderJob{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Status:        model.JobStatusQueued,
		Progress:      0,
		BatchID:       batchID,
		BatchIndex:    batchIndex,
		InputSnapshot: snapshot,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	if err := s.indexJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to index job: %w", err)
	}

	task, err := newRenderTask(job.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	_, err = s.enqueuer.Enqueue(task,
		asynq.Queue(s.cfg.QueueName),
		asynq.MaxRetry(s.cfg.MaxRetry),
		asynq.Timeout(time.Duration(s.cfg.TaskTimeout)*time.Second),
		asynq.Retention(jobRetention),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.SubmitRenderResponse{
		JobID:     job.ID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the owner-scoped status view. Artifact references are
// rewritten to short-lived signed URLs only for completed jobs.
func (s *RenderService) GetStatus(ctx context.Context, ownerID, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.getOwnedJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	return s.statusView(ctx, job), nil
}

// ListJobs lists the owner's jobs newest first, optionally filtered to a
// status set.
func (s *RenderService) ListJobs(ctx context.Context, ownerID string, statuses []model.JobStatus) (*model.ListJobsResponse, error) {
	ids, err := s.redis.ZRevRange(ctx, ownerIndexKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job index: %w", err)
	}

	filter := make(map[model.JobStatus]bool, len(statuses))
	for _, st := range statuses {
		filter[st] = true
	}

	resp := &model.ListJobsResponse{Jobs: []model.JobStatusResponse{}}
	for _, id := range ids {
		job, err := s.getJob(ctx, id)
		if err != nil {
			if errors.Is(err, ErrJobNotFound) {
				// Record expired out from under the index.
				s.redis.ZRem(ctx, ownerIndexKey(ownerID), id)
				continue
			}
			return nil, err
		}
		if len(filter) > 0 && !filter[job.Status] {
			continue
		}
		resp.Jobs = append(resp.Jobs, *s.statusView(ctx, job))
	}
	resp.Total = len(resp.Jobs)
	return resp, nil
}

// BulkDelete removes jobs and their storage artifacts. Storage delete
// failures are logged and never block record deletion.
func (s *RenderService) BulkDelete(ctx context.Context, ownerID string, ids []string) (*model.BulkDeleteResponse, error) {
	if len(ids) > s.cfg.BulkDeleteCap {
		return nil, fmt.Errorf("%w: %d ids exceeds cap %d", ErrTooManyItems, len(ids), s.cfg.BulkDeleteCap)
	}

	resp := &model.BulkDeleteResponse{}
	for _, id := range ids {
		job, err := s.getOwnedJob(ctx, ownerID, id)
		if err != nil {
			if errors.Is(err, ErrJobNotFound) {
				resp.Missing = append(resp.Missing, id)
				continue
			}
			return nil, err
		}

		if s.storage != nil {
			if err := s.storage.Delete(ctx, ArtifactKey(ownerID, job.ID)); err != nil {
				log.Printf("Warning: failed to delete artifact for job %s: %v", job.ID, err)
			}
			if err := s.storage.Delete(ctx, ThumbnailKey(ownerID, job.ID)); err != nil {
				log.Printf("Warning: failed to delete thumbnail for job %s: %v", job.ID, err)
			}
		}

		if err := s.redis.Del(ctx, jobKey(job.ID)).Err(); err != nil {
			return nil, fmt.Errorf("failed to delete job record %s: %w", job.ID, err)
		}
		s.redis.ZRem(ctx, ownerIndexKey(ownerID), job.ID)
		resp.Deleted++
	}
	return resp, nil
}

// GetJob fetches a job record by id without owner scoping (worker path).
func (s *RenderService) GetJob(ctx context.Context, jobID string) (*model.RenderJob, error) {
	return s.getJob(ctx, jobID)
}

// UpdateJobProgress advances a job's progress. The first advance moves the
// job from queued to processing. Terminal jobs are never touched.
func (s *RenderService) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	job.CurrentStep = step
	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusProcessing
	}
	job.UpdatedAt = time.Now().UTC()
	return s.saveJob(ctx, job)
}

// CompleteJob is the single idempotent success write: a second call with the
// same jobID leaves the record as-is.
func (s *RenderService) CompleteJob(ctx context.Context, jobID string, outputByteSize int64) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == model.JobStatusCompleted {
		return nil
	}

	now := time.Now().UTC()
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.CurrentStep = ""
	job.ArtifactRef = ArtifactKey(job.OwnerID, job.ID)
	job.ThumbnailRef = ThumbnailKey(job.OwnerID, job.ID)
	job.OutputByteSize = outputByteSize
	job.UpdatedAt = now
	job.CompletedAt = &now
	return s.saveJob(ctx, job)
}

// FailJob records the single terminal failure write and bumps the retry
// counter. The service never retries internally; redelivery is the queue's
// policy.
func (s *RenderService) FailJob(ctx context.Context, jobID, errMsg string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == model.JobStatusCompleted {
		return nil
	}

	if max := s.cfg.ErrorMaxBytes; max > 0 && len(errMsg) > max {
		errMsg = errMsg[len(errMsg)-max:]
	}

	now := time.Now().UTC()
	job.Status = model.JobStatusFailed
	job.ErrorMessage = errMsg
	job.RetryCount++
	job.UpdatedAt = now
	job.CompletedAt = &now
	return s.saveJob(ctx, job)
}

// SignedArtifactURL mediates read access to a stored object. The stored
// reference is a key, never a URL.
func (s *RenderService) SignedArtifactURL(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	if s.storage == nil {
		return fmt.Sprintf("https://storage.reelcraft.dev/%s", key)
	}
	url, err := s.storage.GetSignedURL(ctx, key, time.Duration(s.cfg.SignedURLTTL)*time.Second)
	if err != nil {
		log.Printf("Warning: failed to sign URL for %s: %v", key, err)
		return ""
	}
	return url
}

func (s *RenderService) statusView(ctx context.Context, job *model.RenderJob) *model.JobStatusResponse {
	resp := &model.JobStatusResponse{
		JobID:          job.ID,
		Status:         job.Status,
		Progress:       job.Progress,
		CurrentStep:    job.CurrentStep,
		BatchID:        job.BatchID,
		BatchIndex:     job.BatchIndex,
		OutputByteSize: job.OutputByteSize,
		ErrorMessage:   job.ErrorMessage,
		RetryCount:     job.RetryCount,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		CompletedAt:    job.CompletedAt,
	}
	if job.Status == model.JobStatusCompleted {
		resp.ArtifactURL = s.SignedArtifactURL(ctx, job.ArtifactRef)
		resp.ThumbnailURL = s.SignedArtifactURL(ctx, job.ThumbnailRef)
	}
	return resp
}

// Helper methods

func jobKey(jobID string) string {
	return fmt.Sprintf("renderjob:%s", jobID)
}

func ownerIndexKey(ownerID string) string {
	return fmt.Sprintf("renderjobs:owner:%s", ownerID)
}

func (s *RenderService) saveJob(ctx context.Context, job *model.RenderJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, jobRetention).Err()
}

func (s *RenderService) indexJob(ctx context.Context, job *model.RenderJob) error {
	if err := s.redis.ZAdd(ctx, ownerIndexKey(job.OwnerID), redis.Z{
		Score:  float64(job.CreatedAt.UnixMilli()),
		Member: job.ID,
	}).Err(); err != nil {
		return err
	}
	return s.redis.Expire(ctx, ownerIndexKey(job.OwnerID), jobRetention).Err()
}

func (s *RenderService) getJob(ctx context.Context, jobID string) (*model.RenderJob, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.RenderJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *RenderService) getOwnedJob(ctx context.Context, ownerID, jobID string) (*model.RenderJob, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	// Cross-owner reads look identical to missing jobs.
	if job.OwnerID != ownerID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func newRenderTask(jobID, ownerID string) (*asynq.Task, error) {
	data, err := json.Marshal(model.RenderTaskPayload{JobID: jobID, OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRender, data), nil
}
