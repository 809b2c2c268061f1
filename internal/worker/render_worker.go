package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/compiler"
	"github.com/reelcraft/api/internal/config"
	"github.com/reelcraft/api/internal/encoder"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/progress"
	"github.com/reelcraft/api/internal/service"
	"github.com/reelcraft/api/internal/websocket"
)

// AssetResolver materializes timeline references into local files.
type AssetResolver interface {
	Resolve(ctx context.Context, destDir, ownerID string, items []model.MediaItem) map[string]compiler.ResolvedAsset
}

// Engine runs compiled programs and extracts thumbnails.
type Engine interface {
	Run(ctx context.Context, p *compiler.Program, outputPath string, onProgress encoder.ProgressFunc) (string, error)
	Thumbnail(ctx context.Context, videoPath, thumbPath string, totalDuration float64) error
}

// RenderWorker drives one render job end to end: resolve, prepare, compile,
// encode, thumbnail, upload, persist. One invocation per job; nothing is
// shared between concurrent jobs except the read-only config.
type RenderWorker struct {
	renderService *service.RenderService
	resolver      AssetResolver
	engine        Engine
	storage       client.StorageClient
	hub           *websocket.Hub
	ffmpegCfg     *config.FFmpegConfig
}

func NewRenderWorker(renderService *service.RenderService, resolver AssetResolver, engine Engine, storage client.StorageClient, hub *websocket.Hub, ffmpegCfg *config.FFmpegConfig) *RenderWorker {
	return &RenderWorker{
		renderService: renderService,
		resolver:      resolver,
		engine:        engine,
		storage:       storage,
		hub:           hub,
		ffmpegCfg:     ffmpegCfg,
	}
}

// ProcessTask handles one queued render task. The payload is identity only;
// the input snapshot is re-read from the job record.
func (w *RenderWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.RenderTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	job, err := w.renderService.GetJob(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("job %s: %w", payload.JobID, err)
	}
	// Redelivered tasks for terminal jobs are no-ops; a failed job is never
	// resumed, only resubmitted.
	if job.Status.IsTerminal() {
		log.Printf("Skipping job %s in terminal state %s", job.ID, job.Status)
		return nil
	}

	timeline, err := job.Timeline()
	if err != nil {
		w.failJob(ctx, job.ID, fmt.Sprintf("Corrupt input snapshot: %v", err))
		return fmt.Errorf("job %s snapshot: %w", job.ID, err)
	}

	log.Printf("Starting render job %s (owner %s)", job.ID, job.OwnerID)

	cp := progress.NewCheckpointSource(progress.SinkFunc(func(percent int, step string) {
		if err := w.renderService.UpdateJobProgress(ctx, job.ID, percent, step); err != nil {
			log.Printf("Failed to update progress for %s: %v", job.ID, err)
		}
		w.hub.BroadcastProgress(job.ID, percent, model.JobStatusProcessing, step)
	}))

	workDir, err := os.MkdirTemp(w.ffmpegCfg.WorkDir, "render-"+job.ID+"-")
	if err != nil {
		w.failJob(ctx, job.ID, "Could not allocate work directory")
		return err
	}
	defer os.RemoveAll(workDir)

	// Asset resolution: individual misses are skipped, never substituted.
	cp.Advance(progress.CheckpointResolveAssets)
	resolved := w.resolver.Resolve(ctx, workDir, job.OwnerID, timeline.MediaItems)
	if wanted := countMaterial(timeline); wanted > 0 && len(resolved) == 0 {
		w.failJob(ctx, job.ID, "None of the referenced media files could be located")
		return fmt.Errorf("job %s: all %d assets unresolved", job.ID, wanted)
	}

	// Fonts and watermark scoped to this render, not process globals.
	cp.Advance(progress.CheckpointPrepareAssets)
	assets := compiler.Assets{
		Media: resolved,
		Fonts: ApprovedFonts(w.ffmpegCfg.FontsDir),
	}
	if !timeline.IsPremiumOutput {
		if _, err := os.Stat(w.ffmpegCfg.Watermark); err != nil {
			w.failJob(ctx, job.ID, "Watermark asset unavailable")
			return fmt.Errorf("job %s: watermark: %w", job.ID, err)
		}
		assets.Watermark = w.ffmpegCfg.Watermark
	}

	cp.Advance(progress.CheckpointCompile)
	program, err := compiler.Compile(timeline, assets)
	if err != nil {
		w.failJob(ctx, job.ID, fmt.Sprintf("Timeline could not be compiled: %v", err))
		return fmt.Errorf("job %s compile: %w", job.ID, err)
	}

	// The job record keeps coarse checkpoints; the engine-native stream only
	// feeds live subscribers.
	native := progress.NewNativeSource(progress.SinkFunc(func(percent int, step string) {
		w.hub.BroadcastProgress(job.ID, percent, model.JobStatusProcessing, step)
	}), timeline.TotalDuration, progress.CheckpointCompile.Percent, progress.CheckpointEncode.Percent)

	artifactPath := filepath.Join(workDir, "output.mp4")
	if _, err := w.engine.Run(ctx, program, artifactPath, native.HandleOutTime); err != nil {
		var encErr *encoder.EncodeError
		if errors.As(err, &encErr) {
			w.failJob(ctx, job.ID, fmt.Sprintf("Encoding failed: %v\n%s", encErr.Err, encErr.Log))
		} else {
			w.failJob(ctx, job.ID, fmt.Sprintf("Encoding failed: %v", err))
		}
		return fmt.Errorf("job %s encode: %w", job.ID, err)
	}
	cp.Advance(progress.CheckpointEncode)

	cp.Advance(progress.CheckpointThumbnail)
	thumbPath := filepath.Join(workDir, "thumb.jpg")
	haveThumb := true
	if err := w.engine.Thumbnail(ctx, artifactPath, thumbPath, timeline.TotalDuration); err != nil {
		// Never fatal.
		log.Printf("Thumbnail failed for job %s: %v", job.ID, err)
		haveThumb = false
	}

	cp.Advance(progress.CheckpointUpload)
	size, err := w.upload(ctx, job, artifactPath, thumbPath, haveThumb)
	if err != nil {
		w.failJob(ctx, job.ID, fmt.Sprintf("Upload failed: %v", err))
		return fmt.Errorf("job %s upload: %w", job.ID, err)
	}

	if err := w.renderService.CompleteJob(ctx, job.ID, size); err != nil {
		w.failJob(ctx, job.ID, "Failed to persist completion")
		return fmt.Errorf("job %s complete: %w", job.ID, err)
	}

	final, err := w.renderService.GetStatus(ctx, job.OwnerID, job.ID)
	if err == nil {
		w.hub.BroadcastComplete(job.ID, *final)
	}
	log.Printf("Render job %s completed (%d bytes)", job.ID, size)
	return nil
}

// upload persists the artifact and thumbnail at their deterministic keys. An
// encoded artifact that cannot be persisted has no value, so artifact upload
// failure fails the job; thumbnail upload failure does not.
func (w *RenderWorker) upload(ctx context.Context, job *model.RenderJob, artifactPath, thumbPath string, haveThumb bool) (int64, error) {
	info, err := os.Stat(artifactPath)
	if err != nil {
		return 0, fmt.Errorf("artifact missing after encode: %w", err)
	}

	if w.storage == nil {
		// Unconfigured storage: development mode, artifact stays local.
		log.Printf("Storage not configured; leaving artifact at %s", artifactPath)
		return info.Size(), nil
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if err := w.storage.Upload(ctx, service.ArtifactKey(job.OwnerID, job.ID), f, "video/mp4"); err != nil {
		return 0, err
	}

	if haveThumb {
		tf, err := os.Open(thumbPath)
		if err == nil {
			defer tf.Close()
			if err := w.storage.Upload(ctx, service.ThumbnailKey(job.OwnerID, job.ID), tf, "image/jpeg"); err != nil {
				log.Printf("Thumbnail upload failed for job %s: %v", job.ID, err)
			}
		}
	}

	return info.Size(), nil
}

func (w *RenderWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.renderService.FailJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job %s as failed: %v", jobID, err)
	}
	w.hub.BroadcastError(jobID, "RENDER_FAILED", errMsg)
}

// countMaterial counts the media items that should have materialized.
func countMaterial(t *model.TimelineModel) int {
	n := 0
	for i := range t.MediaItems {
		if !t.MediaItems[i].IsPlaceholder {
			n++
		}
	}
	return n
}
