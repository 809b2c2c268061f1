package worker

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/reelcraft/api/internal/compiler"
	"github.com/reelcraft/api/internal/config"
	"github.com/reelcraft/api/internal/encoder"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/service"
)

type fakeEnqueuer struct{}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

type fakeQuota struct{}

func (f *fakeQuota) CheckProjected(ctx context.Context, ownerID string, projectedBytes int64) (bool, error) {
	return true, nil
}

type fakeStorage struct {
	uploads map[string]int64
}

func (f *fakeStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	n, _ := io.Copy(io.Discard, body)
	if f.uploads == nil {
		f.uploads = make(map[string]int64)
	}
	f.uploads[key] = n
	return nil
}
func (f *fakeStorage) Download(ctx context.Context, key, destPath string) error { return nil }
func (f *fakeStorage) Delete(ctx context.Context, key string) error            { return nil }
func (f *fakeStorage) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

// fakeResolver resolves the configured item ids by writing stub files.
type fakeResolver struct {
	resolvable map[string]bool
}

func (f *fakeResolver) Resolve(ctx context.Context, destDir, ownerID string, items []model.MediaItem) map[string]compiler.ResolvedAsset {
	out := make(map[string]compiler.ResolvedAsset)
	for _, item := range items {
		if item.IsPlaceholder || !f.resolvable[item.ID] {
			continue
		}
		p := filepath.Join(destDir, item.ID+".mp4")
		os.WriteFile(p, []byte("stub"), 0o644)
		out[item.ID] = compiler.ResolvedAsset{Path: p, HasAudio: true}
	}
	return out
}

// fakeEngine writes the artifact and optionally fails the encode or the
// thumbnail.
type fakeEngine struct {
	runErr     error
	thumbErr   error
	runCalls   int
	thumbCalls int
}

func (f *fakeEngine) Run(ctx context.Context, p *compiler.Program, outputPath string, onProgress encoder.ProgressFunc) (string, error) {
	f.runCalls++
	if f.runErr != nil {
		return "", f.runErr
	}
	if onProgress != nil {
		onProgress(1)
	}
	return "", os.WriteFile(outputPath, []byte("encoded video bytes"), 0o644)
}

func (f *fakeEngine) Thumbnail(ctx context.Context, videoPath, thumbPath string, totalDuration float64) error {
	f.thumbCalls++
	if f.thumbErr != nil {
		return f.thumbErr
	}
	return os.WriteFile(thumbPath, []byte("jpeg"), 0o644)
}

type fixture struct {
	svc     *service.RenderService
	worker  *RenderWorker
	engine  *fakeEngine
	storage *fakeStorage
}

func newFixture(t *testing.T, resolvable ...string) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	storage := &fakeStorage{}
	cfg := &config.RenderConfig{
		QueueName: "render", TaskTimeout: 600, MaxRetry: 2,
		BulkDeleteCap: 50, BatchCap: 10, SignedURLTTL: 900,
		ErrorMaxBytes: 4096, ProjectedBytesPerSecond: 1_500_000,
	}
	svc := service.NewRenderService(rdb, &fakeEnqueuer{}, storage, &fakeQuota{}, cfg)

	canResolve := make(map[string]bool, len(resolvable))
	for _, id := range resolvable {
		canResolve[id] = true
	}
	engine := &fakeEngine{}
	ffmpegCfg := &config.FFmpegConfig{WorkDir: t.TempDir(), FontsDir: "/fonts"}
	w := NewRenderWorker(svc, &fakeResolver{resolvable: canResolve}, engine, storage, nil, ffmpegCfg)

	return &fixture{svc: svc, worker: w, engine: engine, storage: storage}
}

func submitJob(t *testing.T, f *fixture, mutate func(*model.TimelineModel)) string {
	t.Helper()
	tl := &model.TimelineModel{
		Resolution:      model.Resolution{Width: 1080, Height: 1920},
		FPS:             30,
		TotalDuration:   10,
		IsPremiumOutput: true,
		MediaItems: []model.MediaItem{{
			ID:            "m1",
			FileReference: "uploads/u1/clip.mp4",
			Kind:          model.MediaKindVideo,
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
	if mutate != nil {
		mutate(tl)
	}
	resp, err := f.svc.Submit(context.Background(), "u1", tl)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return resp.JobID
}

func renderTask(t *testing.T, jobID string) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(model.RenderTaskPayload{JobID: jobID, OwnerID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	return asynq.NewTask(service.TaskTypeRender, data)
}

func TestProcessTaskSuccess(t *testing.T) {
	f := newFixture(t, "m1")
	jobID := submitJob(t, f, nil)

	if err := f.worker.ProcessTask(context.Background(), renderTask(t, jobID)); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	job, err := f.svc.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobStatusCompleted || job.Progress != 100 {
		t.Errorf("record: %+v", job)
	}
	if job.ArtifactRef != service.ArtifactKey("u1", jobID) {
		t.Errorf("artifact ref = %q", job.ArtifactRef)
	}
	if job.OutputByteSize != int64(len("encoded video bytes")) {
		t.Errorf("output size = %d", job.OutputByteSize)
	}

	if _, ok := f.storage.uploads[service.ArtifactKey("u1", jobID)]; !ok {
		t.Error("artifact never uploaded")
	}
	if _, ok := f.storage.uploads[service.ThumbnailKey("u1", jobID)]; !ok {
		t.Error("thumbnail never uploaded")
	}
}

func TestProcessTaskSkipsUnresolvedItem(t *testing.T) {
	f := newFixture(t, "m1")
	jobID := submitJob(t, f, func(tl *model.TimelineModel) {
		tl.MediaItems = append(tl.MediaItems, model.MediaItem{
			ID: "gone", FileReference: "uploads/u1/gone.mp4", Kind: model.MediaKindVideo,
			SourceStart: 0, SourceEnd: 2, TimelineStart: 4, TimelineEnd: 6,
			Width: 500, Height: 500, Opacity: 100, VolumePercent: 50,
		})
	})

	if err := f.worker.ProcessTask(context.Background(), renderTask(t, jobID)); err != nil {
		t.Fatalf("one missing asset must not fail the job: %v", err)
	}
	job, _ := f.svc.GetJob(context.Background(), jobID)
	if job.Status != model.JobStatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
}

func TestProcessTaskFailsWhenNothingResolves(t *testing.T) {
	f := newFixture(t) // nothing resolvable
	jobID := submitJob(t, f, nil)

	if err := f.worker.ProcessTask(context.Background(), renderTask(t, jobID)); err == nil {
		t.Fatal("expected an error when every asset is missing")
	}
	job, _ := f.svc.GetJob(context.Background(), jobID)
	if job.Status != model.JobStatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "could be located") {
		t.Errorf("error message: %q", job.ErrorMessage)
	}
	if f.engine.runCalls != 0 {
		t.Error("encode must not start without assets")
	}
}

func TestProcessTaskThumbnailFailureNonFatal(t *testing.T) {
	f := newFixture(t, "m1")
	f.engine.thumbErr = os.ErrPermission
	jobID := submitJob(t, f, nil)

	if err := f.worker.ProcessTask(context.Background(), renderTask(t, jobID)); err != nil {
		t.Fatalf("thumbnail failure must not fail the job: %v", err)
	}
	job, _ := f.svc.GetJob(context.Background(), jobID)
	if job.Status != model.JobStatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
	if _, ok := f.storage.uploads[service.ThumbnailKey("u1", jobID)]; ok {
		t.Error("no thumbnail should be uploaded after extraction failed")
	}
}

func TestProcessTaskEncodeFailure(t *testing.T) {
	f := newFixture(t, "m1")
	f.engine.runErr = &encoder.EncodeError{
		Err: os.ErrDeadlineExceeded,
		Log: "ffmpeg stderr tail here",
	}
	jobID := submitJob(t, f, nil)

	if err := f.worker.ProcessTask(context.Background(), renderTask(t, jobID)); err == nil {
		t.Fatal("expected an error on encode failure")
	}
	job, _ := f.svc.GetJob(context.Background(), jobID)
	if job.Status != model.JobStatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	// The captured engine log tail ends up on the record for diagnosis.
	if !strings.Contains(job.ErrorMessage, "ffmpeg stderr tail here") {
		t.Errorf("error message missing engine log: %q", job.ErrorMessage)
	}
	if job.RetryCount != 1 {
		t.Errorf("retry count = %d", job.RetryCount)
	}
}

func TestProcessTaskTerminalJobIsNoOp(t *testing.T) {
	f := newFixture(t, "m1")
	jobID := submitJob(t, f, nil)
	if err := f.svc.CompleteJob(context.Background(), jobID, 123); err != nil {
		t.Fatal(err)
	}

	// Redelivery after completion must not re-render.
	if err := f.worker.ProcessTask(context.Background(), renderTask(t, jobID)); err != nil {
		t.Fatalf("terminal redelivery must ack cleanly: %v", err)
	}
	if f.engine.runCalls != 0 {
		t.Error("terminal job must not reach the engine")
	}
	job, _ := f.svc.GetJob(context.Background(), jobID)
	if job.OutputByteSize != 123 {
		t.Errorf("record mutated by redelivery: %+v", job)
	}
}

func TestProcessTaskWatermarkRequired(t *testing.T) {
	f := newFixture(t, "m1")
	// Non-premium output with no watermark file configured.
	jobID := submitJob(t, f, func(tl *model.TimelineModel) {
		tl.IsPremiumOutput = false
	})

	if err := f.worker.ProcessTask(context.Background(), renderTask(t, jobID)); err == nil {
		t.Fatal("expected failure when the watermark asset is unavailable")
	}
	job, _ := f.svc.GetJob(context.Background(), jobID)
	if job.Status != model.JobStatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
}

func TestApprovedFonts(t *testing.T) {
	fonts := ApprovedFonts("/fonts")
	if fonts.Default == "" {
		t.Fatal("no default font")
	}
	if got := fonts.Resolve("Roboto"); !strings.HasPrefix(got, "/fonts/") {
		t.Errorf("Roboto resolved to %q", got)
	}
	// Unapproved families fall back to the default.
	if got := fonts.Resolve("Comic Sans MS"); got != fonts.Default {
		t.Errorf("unapproved family resolved to %q", got)
	}
}
