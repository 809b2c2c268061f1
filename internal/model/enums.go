package model

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

var ValidJobStatuses = []JobStatus{
	JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed,
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsValidJobStatus reports whether s is a known status value.
func IsValidJobStatus(s JobStatus) bool {
	for _, v := range ValidJobStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Media kinds
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"
)

var ValidMediaKinds = []MediaKind{MediaKindVideo, MediaKindImage, MediaKindAudio}

// IsVisual reports whether the kind contributes to the video overlay chain.
func (k MediaKind) IsVisual() bool {
	return k == MediaKindVideo || k == MediaKindImage
}

// HasAudio reports whether the kind can carry an audio stream.
func (k MediaKind) HasAudio() bool {
	return k == MediaKindVideo || k == MediaKindAudio
}

// Fit modes for placing media into its target box
type FitMode string

const (
	// FitCover scales up and center-crops so the box is fully filled.
	FitCover FitMode = "cover"
	// FitContain scales down and center-pads so no content is cropped.
	FitContain FitMode = "contain"
)

// Text alignment relative to the anchor x
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// Quality tiers trading encode speed against output size
type QualityTier string

const (
	QualityDraft    QualityTier = "draft"
	QualityStandard QualityTier = "standard"
	QualityHigh     QualityTier = "high"
)
