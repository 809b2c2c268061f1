package progress

import (
	"reflect"
	"testing"
)

type capture struct {
	percents []int
	steps    []string
}

func (c *capture) Publish(percent int, step string) {
	c.percents = append(c.percents, percent)
	c.steps = append(c.steps, step)
}

func TestCheckpointSourceSchedule(t *testing.T) {
	var got capture
	src := NewCheckpointSource(&got)

	for _, cp := range []Checkpoint{
		CheckpointResolveAssets,
		CheckpointPrepareAssets,
		CheckpointCompile,
		CheckpointEncode,
		CheckpointThumbnail,
		CheckpointUpload,
		CheckpointDone,
	} {
		src.Advance(cp)
	}

	want := []int{5, 15, 25, 80, 90, 95, 100}
	if !reflect.DeepEqual(got.percents, want) {
		t.Errorf("checkpoint sequence = %v, want %v", got.percents, want)
	}
}

func TestCheckpointSourceMonotonic(t *testing.T) {
	var got capture
	src := NewCheckpointSource(&got)

	src.Advance(CheckpointEncode)
	src.Advance(CheckpointCompile)   // behind, must be dropped
	src.Advance(CheckpointEncode)    // duplicate, must be dropped
	src.Advance(CheckpointThumbnail) // ahead, goes through

	want := []int{80, 90}
	if !reflect.DeepEqual(got.percents, want) {
		t.Errorf("sequence = %v, want %v", got.percents, want)
	}
}

func TestNativeSourceWindow(t *testing.T) {
	var got capture
	src := NewNativeSource(&got, 10, 25, 80)

	src.HandleOutTime(0)
	src.HandleOutTime(5)
	src.HandleOutTime(10)

	want := []int{25, 52, 80}
	if !reflect.DeepEqual(got.percents, want) {
		t.Errorf("window mapping = %v, want %v", got.percents, want)
	}
}

func TestNativeSourceClampsAndMonotonic(t *testing.T) {
	var got capture
	src := NewNativeSource(&got, 10, 25, 80)

	src.HandleOutTime(4)
	src.HandleOutTime(3) // engine time went backwards, drop
	src.HandleOutTime(4.01)
	src.HandleOutTime(25) // past the end, clamp to ceiling

	want := []int{47, 80}
	if !reflect.DeepEqual(got.percents, want) {
		t.Errorf("sequence = %v, want %v", got.percents, want)
	}
}

func TestNativeSourceZeroDuration(t *testing.T) {
	var got capture
	src := NewNativeSource(&got, 0, 25, 80)
	src.HandleOutTime(3)
	if len(got.percents) != 0 {
		t.Errorf("zero duration must publish nothing, got %v", got.percents)
	}
}
