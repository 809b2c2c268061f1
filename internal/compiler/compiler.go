// Package compiler translates a declarative timeline into a single-pass
// ffmpeg filter graph. Compile is a pure function: no I/O, no clock, and
// byte-identical output for identical inputs, which is what lets independent
// execution paths be tested against the same golden fixtures.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/reelcraft/api/internal/model"
)

// ResolvedAsset is one materialized media reference. HasAudio comes from
// probing the local file; silent video inputs must not reach the audio mix.
type ResolvedAsset struct {
	Path     string
	HasAudio bool
}

// FontSet maps approved font families to font files. Families outside the
// set resolve to the default.
type FontSet struct {
	Files   map[string]string
	Default string
}

// Resolve returns the font file for a family, falling back to the default.
func (f FontSet) Resolve(family string) string {
	if path, ok := f.Files[family]; ok {
		return path
	}
	return f.Default
}

// Assets is the per-render context prepared before compilation: resolved
// media paths, the watermark file and the font set. It is built per job so
// concurrent workers never share mutable state.
type Assets struct {
	Media     map[string]ResolvedAsset
	Watermark string
	Fonts     FontSet
}

// Watermark geometry: the mark spans 28% of the canvas width, centered,
// with a bottom margin of 4% of the canvas height.
const (
	watermarkWidthRatio  = 0.28
	watermarkMarginRatio = 0.04
)

// Compile builds the encoder program for a timeline. Placeholder items and
// items without a resolved asset are discarded up front; if nothing renderable
// survives it fails with ErrNoRenderableContent.
func Compile(m *model.TimelineModel, assets Assets) (*Program, error) {
	items := surviving(m, assets)

	if len(items) == 0 && len(m.TextItems) == 0 {
		return nil, ErrNoRenderableContent
	}

	// Stable sort: equal zIndex keeps submission order. The tie-break is a
	// documented contract, not incidental.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ZIndex < items[j].ZIndex
	})

	p := &Program{
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		AudioBitrate: "192k",
		PixelFormat:  "yuv420p",
		FrameRate:    m.FPS,
		Duration:     m.TotalDuration,
	}
	p.Preset, p.CRF = qualityParams(m.QualityTier)

	var g []string

	g = append(g, fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%s[base]",
		m.Resolution.Width, m.Resolution.Height, m.FPS, secs(m.TotalDuration)))

	// One ffmpeg input per surviving item, in stacking order.
	inputIdx := make(map[string]int, len(items))
	for _, item := range items {
		inputIdx[item.ID] = len(p.Inputs)
		p.Inputs = append(p.Inputs, mediaInput(item, assets.Media[item.ID]))
	}

	// Per-item visual sub-chains, then the overlay fold onto the base.
	visual := make([]*model.MediaItem, 0, len(items))
	for _, item := range items {
		if item.Kind.IsVisual() {
			visual = append(visual, item)
		}
	}
	boxes := make([]box, len(visual))
	for k, item := range visual {
		b, err := itemBox(item)
		if err != nil {
			return nil, err
		}
		boxes[k] = b
		chain, err := visualChain(item, b, inputIdx[item.ID], k)
		if err != nil {
			return nil, err
		}
		g = append(g, chain)
	}

	current := "base"
	for k, item := range visual {
		next := fmt.Sprintf("ov%d", k)
		g = append(g, fmt.Sprintf("[%s][v%d]overlay=%d:%d:enable='between(t,%s,%s)'[%s]",
			current, k, boxes[k].X, boxes[k].Y,
			secs(item.TimelineStart), secs(item.TimelineEnd), next))
		current = next
	}

	// Text after all visual overlays, one draw stage per rendered line.
	txt := 0
	for t := range m.TextItems {
		stages := textStages(&m.TextItems[t], assets.Fonts, current, &txt)
		g = append(g, stages...)
		if len(stages) > 0 {
			current = fmt.Sprintf("tx%d", txt-1)
		}
	}

	// Watermark last: always topmost, never subject to per-item opacity.
	if !m.IsPremiumOutput {
		if assets.Watermark == "" {
			return nil, errors.Wrap(ErrInvariant, "non-premium render without watermark asset")
		}
		wmIdx := len(p.Inputs)
		p.Inputs = append(p.Inputs, Input{Path: assets.Watermark})
		wmWidth := evenDim(int(float64(m.Resolution.Width) * watermarkWidthRatio))
		margin := int(float64(m.Resolution.Height) * watermarkMarginRatio)
		g = append(g, fmt.Sprintf("[%d:v]scale=%d:-1[wm]", wmIdx, wmWidth))
		g = append(g, fmt.Sprintf("[%s][wm]overlay=(main_w-overlay_w)/2:main_h-overlay_h-%d[vout]",
			current, margin))
		current = "vout"
	}
	p.VideoLabel = current

	// Audio sub-chains for every item whose source actually has a stream,
	// mixed without normalization so output loudness does not depend on how
	// many tracks happen to overlap.
	audioLabels := make([]string, 0, len(items))
	for _, item := range items {
		if !item.Kind.HasAudio() || !assets.Media[item.ID].HasAudio {
			continue
		}
		label := fmt.Sprintf("a%d", len(audioLabels))
		g = append(g, audioChain(item, inputIdx[item.ID], label))
		audioLabels = append(audioLabels, label)
	}
	if len(audioLabels) > 0 {
		var mix strings.Builder
		for _, l := range audioLabels {
			mix.WriteString("[" + l + "]")
		}
		fmt.Fprintf(&mix, "amix=inputs=%d:duration=longest:normalize=0[aout]", len(audioLabels))
		g = append(g, mix.String())
		p.AudioLabel = "aout"
	}

	p.FilterComplex = strings.Join(g, ";")
	return p, nil
}

// surviving drops placeholders and items whose reference never materialized.
func surviving(m *model.TimelineModel, assets Assets) []*model.MediaItem {
	items := make([]*model.MediaItem, 0, len(m.MediaItems))
	for i := range m.MediaItems {
		item := &m.MediaItems[i]
		if item.IsPlaceholder {
			continue
		}
		if _, ok := assets.Media[item.ID]; !ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

func mediaInput(item *model.MediaItem, asset ResolvedAsset) Input {
	if item.Kind == model.MediaKindImage {
		// Images have no source trim; they loop for their timeline window.
		return Input{
			Path: asset.Path,
			Args: []string{"-loop", "1", "-t", secs(item.TimelineDuration())},
		}
	}
	return Input{Path: asset.Path}
}

// visualChain emits the trim/scale/fit/opacity/shift stages for one item,
// labelled v<k> in stacking order.
func visualChain(item *model.MediaItem, b box, inputIdx, k int) (string, error) {
	stages := make([]string, 0, 6)

	if item.Kind == model.MediaKindVideo {
		stages = append(stages,
			fmt.Sprintf("trim=start=%s:end=%s", secs(item.SourceStart), secs(item.SourceEnd)),
			"setpts=PTS-STARTPTS")
	}

	stages = append(stages, fitFilters(item.FitMode, b)...)

	// Alpha multiply only when needed; the default path skips the format
	// conversion entirely.
	if item.Opacity < 100 {
		stages = append(stages,
			"format=yuva420p",
			fmt.Sprintf("colorchannelmixer=aa=%s", secs(float64(item.Opacity)/100)))
	}

	if item.TimelineStart > 0 {
		stages = append(stages, fmt.Sprintf("setpts=PTS+%s/TB", secs(item.TimelineStart)))
	}

	if len(stages) == 0 {
		return "", errors.Wrapf(ErrInvariant, "empty visual chain for item %s", item.ID)
	}
	return fmt.Sprintf("[%d:v]%s[v%d]", inputIdx, strings.Join(stages, ","), k), nil
}

// audioChain trims the source window, resets timestamps, applies the slider
// gain and delays to the placement start.
func audioChain(item *model.MediaItem, inputIdx int, label string) string {
	delayMS := int(item.TimelineStart*1000 + 0.5)
	return fmt.Sprintf("[%d:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS,volume=%s,adelay=%d|%d[%s]",
		inputIdx,
		secs(item.SourceStart), secs(item.SourceEnd),
		formatGain(Gain(item.VolumePercent)),
		delayMS, delayMS, label)
}

// textStages explodes one text item into per-line drawtext stages. Lines that
// sanitize to nothing are not drawn but still consume their line-height slot
// so later lines are not pulled upward.
func textStages(item *model.TextItem, fonts FontSet, current string, txt *int) []string {
	fontFile := fonts.Resolve(item.FontFamily)
	advance := lineAdvance(item.FontSize)
	color := normalizeColor(item.Color)

	var stages []string
	for lineIdx, raw := range splitLines(item.Content) {
		line := SanitizeLine(raw)
		if line == "" {
			continue
		}
		y := item.Y + advance*lineIdx
		out := fmt.Sprintf("tx%d", *txt)
		stages = append(stages, fmt.Sprintf(
			"[%s]drawtext=fontfile='%s':text='%s':x=%s:y=%d:fontsize=%d:fontcolor=%s:enable='between(t,%s,%s)'[%s]",
			current, fontFile, escapeDrawtext(line),
			alignExpr(item.Align, item.X), y,
			item.FontSize, color,
			secs(item.TimelineStart), secs(item.TimelineEnd), out))
		current = out
		*txt++
	}
	return stages
}

// alignExpr converts the anchor and alignment to a drawtext x expression.
// The measured text width is only known at draw time, so center and right
// subtract text_w inside the expression.
func alignExpr(align model.TextAlign, x int) string {
	switch align {
	case model.AlignCenter:
		return fmt.Sprintf("%d-text_w/2", x)
	case model.AlignRight:
		return fmt.Sprintf("%d-text_w", x)
	default:
		return fmt.Sprintf("%d", x)
	}
}

func normalizeColor(c string) string {
	if c == "" {
		return "white"
	}
	if strings.HasPrefix(c, "#") {
		return "0x" + strings.TrimPrefix(c, "#")
	}
	return c
}

func qualityParams(tier model.QualityTier) (preset string, crf int) {
	switch tier {
	case model.QualityDraft:
		return "veryfast", 28
	case model.QualityHigh:
		return "slow", 18
	default:
		return "medium", 23
	}
}
