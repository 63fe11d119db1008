// package tasks implements frame transfer operations between the local
// working copy and remote storage.
//
// The core abstraction is Engine, which orchestrates frame pushes,
// pulls, and thumbnail generation. Operations emit progress updates via
// channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/anthonynsimon/bild/transform"
	"github.com/chai2010/webp"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"stopmo/internal/models"
	"stopmo/internal/project"
	"stopmo/internal/shared"
	"stopmo/internal/storage"
)

// ObjectClient defines the remote storage surface the engine needs.
// This abstraction allows for easier testing and decoupling from the
// concrete implementation.
type ObjectClient interface {
	SyncFrames(ctx context.Context, projectID string, frames []models.FrameUpload) []models.SyncResult
	DownloadImage(ctx context.Context, projectID string, index int) ([]byte, error)
}

// SyncRecorder persists frame sync outcomes, typically into the local
// session database.
type SyncRecorder interface {
	RecordSyncBatch(projectID string, results []models.SyncResult)
}

// Engine orchestrates frame transfers for the project currently loaded
// into the store.
type Engine struct {
	client   ObjectClient
	store    *project.Store
	recorder SyncRecorder
	logger   *log.Logger
}

// NewEngine creates an Engine. recorder may be nil, in which case sync
// outcomes are not logged locally.
func NewEngine(client ObjectClient, store *project.Store, recorder SyncRecorder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{client: client, store: store, recorder: recorder, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// PushOpts contains configuration for a frame push.
type PushOpts struct {
	SaveConfig bool // Upload the mutated config after the frames
}

// PushResult contains all data from a push operation.
type PushResult struct {
	Results      []models.SyncResult `json:"results"`
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	ConfigSaved  bool                `json:"config_saved"`
}

// Push uploads frames one at a time, marking each successful index as
// taken in the working copy. A failed frame never stops the rest; the
// result reports every outcome in input order.
func (e *Engine) Push(ctx context.Context, progress chan<- ProgressUpdate, frames []models.FrameUpload, opts PushOpts) (*PushResult, error) {
	projectID := e.store.ProjectID()
	if projectID == "" {
		return nil, fmt.Errorf("no project loaded: %w", shared.ErrPrecondition)
	}

	result := &PushResult{Results: make([]models.SyncResult, 0, len(frames))}
	total := len(frames)

	for i, frame := range frames {
		e.sendProgress(progress, uploadFrameUpdate(i+1, total, frame.Index))

		outcome := e.client.SyncFrames(ctx, projectID, []models.FrameUpload{frame})
		result.Results = append(result.Results, outcome...)

		for _, r := range outcome {
			if r.Success {
				result.SuccessCount++
				if err := e.store.MarkFrameTaken(r.Index, storage.FrameFilename(r.Index)); err != nil {
					e.logger.Warn("marking frame taken", "frame", r.Index, "error", err)
				}
			} else {
				result.FailedCount++
				e.logger.Warn("frame upload failed", "frame", r.Index, "error", r.Error)
			}
		}
	}

	if e.recorder != nil {
		e.recorder.RecordSyncBatch(projectID, result.Results)
	}

	if opts.SaveConfig && result.SuccessCount > 0 {
		e.sendProgress(progress, saveConfigUpdate())
		if err := e.store.SaveConfig(ctx); err != nil {
			return result, fmt.Errorf("frames pushed but config save failed: %w", err)
		}
		result.ConfigSaved = true
	}

	return result, nil
}

// PullOpts contains configuration for a frame pull.
type PullOpts struct {
	OutputDir  string  // Destination directory (default: {projectID}_frames)
	NumWorkers int     // Concurrent workers (default: 4)
	RateLimit  float64 // Requests per second (default: 8)
	Thumbnails bool    // Also write PNG thumbnails under thumbs/
	ThumbWidth int     // Thumbnail width in pixels (default: 320)
}

// FramePullResult is the outcome of downloading a single frame.
type FramePullResult struct {
	Index   int    `json:"index"`
	Path    string `json:"path,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PullResult contains all data from a pull operation.
type PullResult struct {
	TotalFrames     int               `json:"total_frames"`
	SuccessCount    int               `json:"success_count"`
	FailedCount     int               `json:"failed_count"`
	OutputDirectory string            `json:"output_directory"`
	Results         []FramePullResult `json:"results"`
}

type framePullJob struct {
	index int
	step  int
}

// Pull downloads every taken frame of the loaded project into a local
// directory using a worker pool with rate limiting.
//
// Failed downloads are reported per frame and never abort the rest.
func (e *Engine) Pull(ctx context.Context, progress chan<- ProgressUpdate, opts PullOpts) (*PullResult, error) {
	projectID := e.store.ProjectID()
	config := e.store.Snapshot()
	if projectID == "" || config == nil {
		return nil, fmt.Errorf("no project loaded: %w", shared.ErrPrecondition)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("%s_frames", projectID)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 8.0
	}
	if opts.ThumbWidth <= 0 {
		opts.ThumbWidth = 320
	}

	var taken []int
	for _, frame := range config.Frames {
		if frame.Taken {
			taken = append(taken, frame.Index)
		}
	}

	result := &PullResult{
		TotalFrames:     len(taken),
		OutputDirectory: opts.OutputDir,
		Results:         make([]FramePullResult, 0, len(taken)),
	}
	if len(taken) == 0 {
		return result, nil
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if opts.Thumbnails {
		if err := os.MkdirAll(filepath.Join(opts.OutputDir, "thumbs"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
		}
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan framePullJob, len(taken))
	results := make(chan FramePullResult, len(taken))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.pullWorker(ctx, &wg, progress, projectID, jobs, results, opts, len(taken))
	}

	go func() {
		defer close(jobs)
		for step, index := range taken {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- framePullJob{index: index, step: step + 1}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.Success {
			result.SuccessCount++
		} else {
			result.FailedCount++
		}
		result.Results = append(result.Results, res)
	}

	// Workers finish in arbitrary order; report frames in index order.
	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Index < result.Results[j].Index
	})
	return result, nil
}

func (e *Engine) pullWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	progress chan<- ProgressUpdate,
	projectID string,
	jobs <-chan framePullJob,
	results chan<- FramePullResult,
	opts PullOpts,
	total int,
) {
	defer wg.Done()

	for job := range jobs {
		e.sendProgress(progress, downloadFrameUpdate(job.step, total, job.index))

		blob, err := e.client.DownloadImage(ctx, projectID, job.index)
		if err != nil {
			results <- FramePullResult{Index: job.index, Error: err.Error()}
			continue
		}

		path := filepath.Join(opts.OutputDir, storage.FrameFilename(job.index))
		if err := os.WriteFile(path, blob, 0644); err != nil {
			results <- FramePullResult{Index: job.index, Error: err.Error()}
			continue
		}

		if opts.Thumbnails {
			e.sendProgress(progress, thumbnailUpdate(job.step, total, job.index))
			if err := writeThumbnail(opts.OutputDir, job.index, blob, opts.ThumbWidth); err != nil {
				e.logger.Warn("thumbnail generation failed", "frame", job.index, "error", err)
			}
		}

		results <- FramePullResult{Index: job.index, Path: path, Success: true}
	}
}

// writeThumbnail decodes a webp blob, scales it down preserving aspect
// ratio, and writes a PNG next to the full frames.
func writeThumbnail(outputDir string, index int, blob []byte, width int) error {
	img, err := webp.Decode(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("decoding frame %d: %w", index, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 {
		return fmt.Errorf("frame %d has no pixels", index)
	}
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	thumb := transform.Resize(img, width, height, transform.Linear)

	name := fmt.Sprintf("frame_%04d.png", index)
	file, err := os.Create(filepath.Join(outputDir, "thumbs", name))
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, thumb)
}
