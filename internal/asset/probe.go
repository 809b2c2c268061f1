package asset

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeInfo is the subset of stream metadata the pipeline cares about.
type ProbeInfo struct {
	HasVideo bool
	HasAudio bool
	Duration float64
	Width    int
	Height   int
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// ProbeFile inspects a local media file with ffprobe. Presence of an audio
// stream decides whether the item joins the mix; silent videos must not.
func ProbeFile(_ context.Context, localPath string) (ProbeInfo, error) {
	raw, err := ffmpeg.Probe(localPath)
	if err != nil {
		return ProbeInfo{}, errors.Wrapf(err, "ffprobe %s", localPath)
	}

	var result probeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return ProbeInfo{}, errors.Wrap(err, "parse ffprobe output")
	}

	var info ProbeInfo
	for _, s := range result.Streams {
		switch s.CodecType {
		case "video":
			info.HasVideo = true
			if info.Width == 0 {
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if d := strings.TrimSpace(result.Format.Duration); d != "" {
		if v, err := strconv.ParseFloat(d, 64); err == nil {
			info.Duration = v
		}
	}

	return info, nil
}
