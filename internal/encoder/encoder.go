// Package encoder executes compiled programs against the external ffmpeg
// engine.
package encoder

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelcraft/api/internal/compiler"
)

// logTailLimit bounds the captured engine log. ffmpeg prints the actual
// failure at the end, so the tail is the diagnostic surface worth keeping.
const logTailLimit = 64 * 1024

// EncodeError carries the full captured engine log alongside the exit error.
type EncodeError struct {
	Err error
	Log string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// ProgressFunc receives the engine's native progress stream as seconds of
// output written so far.
type ProgressFunc func(outTimeSeconds float64)

// Executor invokes ffmpeg with a hard wall-clock timeout. The timeout is
// configured below the orchestration layer's own task timeout so upload and
// persist steps keep headroom after encoding finishes.
type Executor struct {
	ffmpegPath string
	timeout    time.Duration
	log        zerolog.Logger
}

// NewExecutor creates an executor. ffmpegPath must resolve on PATH.
func NewExecutor(ffmpegPath string, timeout time.Duration, log zerolog.Logger) (*Executor, error) {
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found at %q: %w", ffmpegPath, err)
	}
	return &Executor{
		ffmpegPath: resolved,
		timeout:    timeout,
		log:        log.With().Str("component", "encoder").Logger(),
	}, nil
}

// Run executes a compiled program and writes the artifact to outputPath. On
// non-zero exit it returns an *EncodeError holding the captured log tail.
func (e *Executor) Run(ctx context.Context, p *compiler.Program, outputPath string, onProgress ProgressFunc) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{"-y", "-hide_banner", "-loglevel", "info", "-progress", "pipe:1"}
	args = append(args, p.Args(outputPath)...)

	e.log.Debug().Strs("args", args).Msg("executing ffmpeg")

	cmd := exec.CommandContext(runCtx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	tail := newTailBuffer(logTailLimit)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if t, ok := parseOutTime(scanner.Text()); ok && onProgress != nil {
				onProgress(t)
			}
		}
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			tail.WriteLine(line)
			e.log.Debug().Str("ffmpeg", line).Msg("engine output")
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return tail.String(), &EncodeError{
				Err: fmt.Errorf("engine exceeded %s timeout", e.timeout),
				Log: tail.String(),
			}
		}
		return tail.String(), &EncodeError{Err: err, Log: tail.String()}
	}

	return tail.String(), nil
}

// ThumbnailTime picks the frame extraction point: one second in, or 10% of
// the duration for very short outputs.
func ThumbnailTime(totalDuration float64) float64 {
	t := totalDuration * 0.1
	if t > 1 {
		return 1
	}
	return t
}

// Thumbnail extracts a single frame from a rendered artifact. Callers treat
// failure as non-fatal.
func (e *Executor) Thumbnail(ctx context.Context, videoPath, thumbPath string, totalDuration float64) error {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(ThumbnailTime(totalDuration), 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "3",
		thumbPath,
	}

	out, err := exec.CommandContext(runCtx, e.ffmpegPath, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("thumbnail extraction failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// parseOutTime reads the out_time_ms key of ffmpeg's -progress stream. The
// key name says milliseconds but the value is microseconds.
func parseOutTime(line string) (float64, bool) {
	val, ok := strings.CutPrefix(line, "out_time_ms=")
	if !ok {
		return 0, false
	}
	us, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return float64(us) / 1e6, true
}
