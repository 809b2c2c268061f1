package model

import (
	"encoding/json"
	"time"
)

// RenderJob is the server-owned job record. The worker is the sole writer of
// status, progress and the terminal fields; the submission handler is the
// sole writer of InputSnapshot.
type RenderJob struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	BatchID     string     `json:"batchId,omitempty"`
	BatchIndex  int        `json:"batchIndex,omitempty"`

	// InputSnapshot is the TimelineModel as submitted, immutable once stored.
	InputSnapshot json.RawMessage `json:"inputSnapshot"`

	ArtifactRef    string `json:"artifactRef,omitempty"`
	ThumbnailRef   string `json:"thumbnailRef,omitempty"`
	OutputByteSize int64  `json:"outputByteSize,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	RetryCount     int    `json:"retryCount"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Timeline decodes the stored input snapshot.
func (j *RenderJob) Timeline() (*TimelineModel, error) {
	var t TimelineModel
	if err := json.Unmarshal(j.InputSnapshot, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// RenderTaskPayload is the queue message. Identity only: the worker re-fetches
// the snapshot from the job record and never trusts queue content beyond it.
type RenderTaskPayload struct {
	JobID   string `json:"jobId"`
	OwnerID string `json:"ownerId"`
}
