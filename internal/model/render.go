package model

import "time"

// SubmitRenderRequest is the body of POST /api/render/jobs.
type SubmitRenderRequest struct {
	Timeline TimelineModel `json:"timeline" validate:"required"`
}

// SubmitRenderResponse acknowledges a queued job.
type SubmitRenderResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubmitBatchRequest is the body of POST /api/render/batch. Each variation
// becomes its own job; completion order across the batch is not guaranteed.
type SubmitBatchRequest struct {
	Variations []TimelineModel `json:"variations" validate:"required,min=1"`
}

// SubmitBatchResponse lists the jobs created for a batch.
type SubmitBatchResponse struct {
	BatchID string                 `json:"batchId"`
	Jobs    []SubmitRenderResponse `json:"jobs"`
}

// JobStatusResponse is the poll/read view of a job. ArtifactURL and
// ThumbnailURL are short-lived signed URLs, present only when completed.
type JobStatusResponse struct {
	JobID          string     `json:"jobId"`
	Status         JobStatus  `json:"status"`
	Progress       int        `json:"progress"`
	CurrentStep    string     `json:"currentStep,omitempty"`
	BatchID        string     `json:"batchId,omitempty"`
	BatchIndex     int        `json:"batchIndex,omitempty"`
	ArtifactURL    string     `json:"artifactUrl,omitempty"`
	ThumbnailURL   string     `json:"thumbnailUrl,omitempty"`
	OutputByteSize int64      `json:"outputByteSize,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	RetryCount     int        `json:"retryCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// ListJobsResponse is the owner-scoped job listing.
type ListJobsResponse struct {
	Jobs  []JobStatusResponse `json:"jobs"`
	Total int                 `json:"total"`
}

// BulkDeleteRequest names the jobs to remove, capped per call.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// BulkDeleteResponse reports per-call delete counts. Storage delete failures
// do not block record deletion, so Deleted counts records, not objects.
type BulkDeleteResponse struct {
	Deleted int      `json:"deleted"`
	Missing []string `json:"missing,omitempty"`
}
