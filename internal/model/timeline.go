package model

import "fmt"

// Resolution is the output canvas size in pixels.
type Resolution struct {
	Width  int `json:"width" validate:"required,gt=0"`
	Height int `json:"height" validate:"required,gt=0"`
}

// TimelineModel is the immutable render input snapshot. It is stored verbatim
// on the job record at submission time and re-read by the worker; the queue
// message never carries it.
type TimelineModel struct {
	Resolution      Resolution  `json:"resolution"`
	FPS             int         `json:"fps" validate:"required,gt=0,lte=120"`
	TotalDuration   float64     `json:"totalDuration" validate:"required,gt=0"`
	QualityTier     QualityTier `json:"qualityTier,omitempty"`
	IsPremiumOutput bool        `json:"isPremiumOutput"`
	MediaItems      []MediaItem `json:"mediaItems"`
	TextItems       []TextItem  `json:"textItems"`
}

// MediaItem is one clip placed on the timeline. Kind decides which fields are
// meaningful: geometry only for video/image, volume only for video/audio,
// source trim only for video/audio (images loop for their timeline window).
type MediaItem struct {
	ID            string    `json:"id"`
	FileReference string    `json:"fileReference"`
	Kind          MediaKind `json:"kind"`

	SourceStart   float64 `json:"sourceStart"`
	SourceEnd     float64 `json:"sourceEnd"`
	TimelineStart float64 `json:"timelineStart"`
	TimelineEnd   float64 `json:"timelineEnd"`

	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`

	Opacity       int     `json:"opacity"`
	FitMode       FitMode `json:"fitMode,omitempty"`
	VolumePercent int     `json:"volumePercent"`

	ZIndex        int  `json:"zIndex"`
	IsPlaceholder bool `json:"isPlaceholder"`
}

// TimelineDuration returns the length of the item's placement window.
func (m *MediaItem) TimelineDuration() float64 {
	return m.TimelineEnd - m.TimelineStart
}

// SourceDuration returns the length of the source trim window.
func (m *MediaItem) SourceDuration() float64 {
	return m.SourceEnd - m.SourceStart
}

// TextItem is one positioned text overlay. Content may hold embedded line
// breaks; every line is rendered as its own draw stage.
type TextItem struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	TimelineStart float64   `json:"timelineStart"`
	TimelineEnd   float64   `json:"timelineEnd"`
	X             int       `json:"x"`
	Y             int       `json:"y"`
	Align         TextAlign `json:"align,omitempty"`
	FontSize      int       `json:"fontSize"`
	Color         string    `json:"color,omitempty"`
	FontFamily    string    `json:"fontFamily,omitempty"`
}

// Validate checks the cross-field invariants the struct tags cannot express.
// A model that fails here is rejected at submission and never reaches the
// compiler.
func (t *TimelineModel) Validate() error {
	if len(t.MediaItems) == 0 && len(t.TextItems) == 0 {
		return fmt.Errorf("timeline has no renderable content")
	}
	if t.Resolution.Width <= 0 || t.Resolution.Height <= 0 {
		return fmt.Errorf("invalid canvas resolution %dx%d", t.Resolution.Width, t.Resolution.Height)
	}
	if t.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %d", t.FPS)
	}
	if t.TotalDuration <= 0 {
		return fmt.Errorf("invalid total duration %.3f", t.TotalDuration)
	}

	for i := range t.MediaItems {
		item := &t.MediaItems[i]
		if item.IsPlaceholder {
			continue
		}
		if item.ID == "" {
			return fmt.Errorf("media item %d missing id", i)
		}
		if item.FileReference == "" {
			return fmt.Errorf("media item %q missing file reference", item.ID)
		}
		switch item.Kind {
		case MediaKindVideo, MediaKindImage, MediaKindAudio:
		default:
			return fmt.Errorf("media item %q has unknown kind %q", item.ID, item.Kind)
		}
		if item.TimelineStart < 0 || item.TimelineEnd <= item.TimelineStart {
			return fmt.Errorf("media item %q has invalid timeline window [%.3f, %.3f)",
				item.ID, item.TimelineStart, item.TimelineEnd)
		}
		if item.TimelineEnd > t.TotalDuration {
			return fmt.Errorf("media item %q ends at %.3f beyond total duration %.3f",
				item.ID, item.TimelineEnd, t.TotalDuration)
		}
		if item.Kind != MediaKindImage {
			if item.SourceStart < 0 || item.SourceEnd <= item.SourceStart {
				return fmt.Errorf("media item %q has invalid source window [%.3f, %.3f)",
					item.ID, item.SourceStart, item.SourceEnd)
			}
		}
		if item.Kind.IsVisual() {
			if item.Width <= 0 || item.Height <= 0 {
				return fmt.Errorf("media item %q missing geometry", item.ID)
			}
			if item.Opacity < 0 || item.Opacity > 100 {
				return fmt.Errorf("media item %q opacity %d out of range", item.ID, item.Opacity)
			}
		}
		if item.Kind.HasAudio() && (item.VolumePercent < 0 || item.VolumePercent > 100) {
			return fmt.Errorf("media item %q volume %d out of range", item.ID, item.VolumePercent)
		}
	}

	for i := range t.TextItems {
		item := &t.TextItems[i]
		if item.ID == "" {
			return fmt.Errorf("text item %d missing id", i)
		}
		if item.TimelineStart < 0 || item.TimelineEnd <= item.TimelineStart {
			return fmt.Errorf("text item %q has invalid timeline window [%.3f, %.3f)",
				item.ID, item.TimelineStart, item.TimelineEnd)
		}
		if item.FontSize <= 0 {
			return fmt.Errorf("text item %q has invalid font size %d", item.ID, item.FontSize)
		}
	}

	return nil
}
