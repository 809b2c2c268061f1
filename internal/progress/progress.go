// Package progress bridges work milestones to the job record and live
// subscribers. Two source implementations cover the two execution regimes:
// coarse checkpoints where the consumer cannot see engine progress, and the
// engine-native stream where it can.
package progress

// Sink receives progress observations for one job.
type Sink interface {
	Publish(percent int, step string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(percent int, step string)

func (f SinkFunc) Publish(percent int, step string) { f(percent, step) }

// Checkpoint is one fixed milestone on the batch path.
type Checkpoint struct {
	Percent int
	Step    string
}

// The checkpoint schedule. Values are coarse and monotonically increasing;
// the batch consumer cannot get fine-grained encoder progress, so it does
// not pretend to.
var (
	CheckpointResolveAssets = Checkpoint{5, "Resolving assets"}
	CheckpointPrepareAssets = Checkpoint{15, "Preparing fonts and watermark"}
	CheckpointCompile       = Checkpoint{25, "Compiling filter graph"}
	CheckpointEncode        = Checkpoint{80, "Encoding"}
	CheckpointThumbnail     = Checkpoint{90, "Extracting thumbnail"}
	CheckpointUpload        = Checkpoint{95, "Uploading"}
	CheckpointDone          = Checkpoint{100, "Completed"}
)

// CheckpointSource advances a sink through the fixed schedule, never
// backwards.
type CheckpointSource struct {
	sink Sink
	last int
}

func NewCheckpointSource(sink Sink) *CheckpointSource {
	return &CheckpointSource{sink: sink}
}

// Advance publishes a checkpoint. Out-of-order advances are dropped so the
// reported progress stays monotonic.
func (c *CheckpointSource) Advance(cp Checkpoint) {
	if cp.Percent <= c.last {
		return
	}
	c.last = cp.Percent
	c.sink.Publish(cp.Percent, cp.Step)
}

// NativeSource converts the engine's native out-time stream into percentages
// within a window of the overall job. The interactive regime listens to this
// for fine-grained feedback.
type NativeSource struct {
	sink          Sink
	totalDuration float64
	floor, ceil   int
	last          int
}

// NewNativeSource maps [0, totalDuration] seconds onto [floor, ceil] percent.
func NewNativeSource(sink Sink, totalDuration float64, floor, ceil int) *NativeSource {
	return &NativeSource{sink: sink, totalDuration: totalDuration, floor: floor, ceil: ceil, last: -1}
}

// HandleOutTime is wired to the encoder's progress callback.
func (n *NativeSource) HandleOutTime(outTimeSeconds float64) {
	if n.totalDuration <= 0 {
		return
	}
	frac := outTimeSeconds / n.totalDuration
	if frac > 1 {
		frac = 1
	}
	pct := n.floor + int(float64(n.ceil-n.floor)*frac)
	if pct <= n.last {
		return
	}
	n.last = pct
	n.sink.Publish(pct, "Encoding")
}
