package model

import (
	"strings"
	"testing"
)

func validModel() *TimelineModel {
	return &TimelineModel{
		Resolution:    Resolution{Width: 1080, Height: 1920},
		FPS:           30,
		TotalDuration: 10,
		MediaItems: []MediaItem{{
			ID:            "m1",
			FileReference: "uploads/u1/clip.mp4",
			Kind:          MediaKindVideo,
			SourceStart:   0,
			SourceEnd:     4,
			TimelineStart: 0,
			TimelineEnd:   4,
			Width:         1080,
			Height:        1920,
			Opacity:       100,
			VolumePercent: 50,
		}},
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validModel().Validate(); err != nil {
		t.Fatalf("valid model rejected: %v", err)
	}
}

func TestValidateTextOnly(t *testing.T) {
	m := validModel()
	m.MediaItems = nil
	m.TextItems = []TextItem{{
		ID: "t1", Content: "hi", TimelineStart: 0, TimelineEnd: 2, FontSize: 32,
	}}
	if err := m.Validate(); err != nil {
		t.Fatalf("text-only model rejected: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TimelineModel)
		want   string
	}{
		{"empty", func(m *TimelineModel) { m.MediaItems = nil }, "no renderable content"},
		{"zero resolution", func(m *TimelineModel) { m.Resolution.Width = 0 }, "resolution"},
		{"zero fps", func(m *TimelineModel) { m.FPS = 0 }, "frame rate"},
		{"zero duration", func(m *TimelineModel) { m.TotalDuration = 0 }, "duration"},
		{"missing id", func(m *TimelineModel) { m.MediaItems[0].ID = "" }, "missing id"},
		{"missing ref", func(m *TimelineModel) { m.MediaItems[0].FileReference = "" }, "file reference"},
		{"unknown kind", func(m *TimelineModel) { m.MediaItems[0].Kind = "gif" }, "unknown kind"},
		{"inverted window", func(m *TimelineModel) {
			m.MediaItems[0].TimelineStart = 4
			m.MediaItems[0].TimelineEnd = 2
		}, "timeline window"},
		{"beyond duration", func(m *TimelineModel) { m.MediaItems[0].TimelineEnd = 99 }, "beyond total duration"},
		{"inverted source", func(m *TimelineModel) {
			m.MediaItems[0].SourceStart = 4
			m.MediaItems[0].SourceEnd = 1
		}, "source window"},
		{"no geometry", func(m *TimelineModel) { m.MediaItems[0].Width = 0 }, "geometry"},
		{"opacity range", func(m *TimelineModel) { m.MediaItems[0].Opacity = 130 }, "opacity"},
		{"volume range", func(m *TimelineModel) { m.MediaItems[0].VolumePercent = -1 }, "volume"},
		{"text window", func(m *TimelineModel) {
			m.TextItems = []TextItem{{ID: "t1", Content: "x", TimelineStart: 2, TimelineEnd: 2, FontSize: 30}}
		}, "timeline window"},
		{"text font size", func(m *TimelineModel) {
			m.TextItems = []TextItem{{ID: "t1", Content: "x", TimelineStart: 0, TimelineEnd: 2}}
		}, "font size"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := validModel()
			tc.mutate(m)
			err := m.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidatePlaceholderExempt(t *testing.T) {
	m := validModel()
	// A placeholder carries no reference and no geometry; it must still pass.
	m.MediaItems = append(m.MediaItems, MediaItem{ID: "ph", IsPlaceholder: true})
	if err := m.Validate(); err != nil {
		t.Fatalf("placeholder must be exempt from item checks: %v", err)
	}
}

func TestValidateImageNoSourceTrim(t *testing.T) {
	m := validModel()
	m.MediaItems[0] = MediaItem{
		ID: "img", FileReference: "bg.png", Kind: MediaKindImage,
		TimelineStart: 0, TimelineEnd: 5,
		Width: 500, Height: 500, Opacity: 100,
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("images need no source window: %v", err)
	}
}

func TestValidateAudioNoGeometry(t *testing.T) {
	m := validModel()
	m.MediaItems[0] = MediaItem{
		ID: "music", FileReference: "track.mp3", Kind: MediaKindAudio,
		SourceStart: 0, SourceEnd: 8,
		TimelineStart: 0, TimelineEnd: 8,
		VolumePercent: 80,
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("audio items need no geometry: %v", err)
	}
}

func TestDurations(t *testing.T) {
	item := MediaItem{SourceStart: 1, SourceEnd: 3.5, TimelineStart: 2, TimelineEnd: 7}
	if d := item.SourceDuration(); d != 2.5 {
		t.Errorf("SourceDuration = %v", d)
	}
	if d := item.TimelineDuration(); d != 5 {
		t.Errorf("TimelineDuration = %v", d)
	}
}
