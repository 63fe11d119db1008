package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chai2010/webp"

	"stopmo/internal/models"
	"stopmo/internal/project"
	"stopmo/internal/shared"
	tu "stopmo/internal/testing"
)

// fakeObjects scripts the remote storage surface.
type fakeObjects struct {
	mu          sync.Mutex
	failIndexes map[int]bool
	images      map[int][]byte
	downloadErr error
	synced      []int
}

func (f *fakeObjects) SyncFrames(ctx context.Context, projectID string, frames []models.FrameUpload) []models.SyncResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	results := make([]models.SyncResult, 0, len(frames))
	for _, frame := range frames {
		f.synced = append(f.synced, frame.Index)
		if f.failIndexes[frame.Index] {
			results = append(results, models.SyncResult{Index: frame.Index, Error: "forbidden"})
			continue
		}
		results = append(results, models.SyncResult{Index: frame.Index, Success: true})
	}
	return results
}

func (f *fakeObjects) DownloadImage(ctx context.Context, projectID string, index int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.downloadErr != nil && f.failIndexes[index] {
		return nil, f.downloadErr
	}
	if blob, ok := f.images[index]; ok {
		return blob, nil
	}
	return []byte(fmt.Sprintf("blob-%d", index)), nil
}

// fakeConfigClient satisfies the store's remote surface for tests that
// never touch the network.
type fakeConfigClient struct {
	uploaded *models.ProjectConfig
}

func (f *fakeConfigClient) CheckExists(ctx context.Context, projectID string) (bool, error) {
	return true, nil
}

func (f *fakeConfigClient) DownloadConfig(ctx context.Context, projectID string) (*models.ProjectConfig, error) {
	return nil, shared.ErrProjectNotFound
}

func (f *fakeConfigClient) UploadConfig(ctx context.Context, projectID string, config *models.ProjectConfig) error {
	f.uploaded = config
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	batches [][]models.SyncResult
}

func (f *fakeRecorder) RecordSyncBatch(projectID string, results []models.SyncResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, results)
}

func testEngine(t *testing.T, totalFrames int, objects *fakeObjects) (*Engine, *project.Store, *fakeConfigClient, *fakeRecorder) {
	t.Helper()

	configClient := &fakeConfigClient{}
	store := project.NewStore(configClient, nil)
	if err := store.SetConfig("demo", models.NewProjectConfig(totalFrames, 12, 1.7778)); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	recorder := &fakeRecorder{}
	return NewEngine(objects, store, recorder, nil), store, configClient, recorder
}

func webpBlob(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: 80}); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func TestPush(t *testing.T) {
	t.Run("Marks Successful Frames Taken", func(t *testing.T) {
		objects := &fakeObjects{}
		engine, store, _, recorder := testEngine(t, 5, objects)

		frames := []models.FrameUpload{
			{Index: 0, Blob: []byte("a")},
			{Index: 2, Blob: []byte("b")},
		}
		result, err := engine.Push(context.Background(), nil, frames, PushOpts{})
		if err != nil {
			t.Fatalf("push failed: %v", err)
		}

		if result.SuccessCount != 2 || result.FailedCount != 0 {
			t.Errorf("unexpected counts %+v", result)
		}
		for _, index := range []int{0, 2} {
			frame, _ := store.FrameData(index)
			if !frame.Taken {
				t.Errorf("expected frame %d marked taken", index)
			}
			if frame.Filename == nil || *frame.Filename != fmt.Sprintf("frame_%04d.webp", index) {
				t.Errorf("unexpected filename for frame %d: %+v", index, frame.Filename)
			}
		}
		if len(recorder.batches) != 1 || len(recorder.batches[0]) != 2 {
			t.Errorf("expected one recorded batch of 2, got %+v", recorder.batches)
		}
	})

	t.Run("Failed Frame Does Not Stop The Rest", func(t *testing.T) {
		objects := &fakeObjects{failIndexes: map[int]bool{1: true}}
		engine, store, _, _ := testEngine(t, 5, objects)

		frames := []models.FrameUpload{
			{Index: 0, Blob: []byte("a")},
			{Index: 1, Blob: []byte("b")},
			{Index: 2, Blob: []byte("c")},
		}
		result, err := engine.Push(context.Background(), nil, frames, PushOpts{})
		if err != nil {
			t.Fatalf("push failed: %v", err)
		}

		if result.SuccessCount != 2 || result.FailedCount != 1 {
			t.Errorf("unexpected counts %+v", result)
		}
		if len(result.Results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(result.Results))
		}
		for i, want := range []int{0, 1, 2} {
			if result.Results[i].Index != want {
				t.Errorf("result %d has index %d, want %d", i, result.Results[i].Index, want)
			}
		}
		frame, _ := store.FrameData(1)
		if frame.Taken {
			t.Error("failed frame must not be marked taken")
		}
	})

	t.Run("SaveConfig Uploads The Mutated Copy", func(t *testing.T) {
		objects := &fakeObjects{}
		engine, _, configClient, _ := testEngine(t, 5, objects)

		result, err := engine.Push(context.Background(), nil,
			[]models.FrameUpload{{Index: 0, Blob: []byte("a")}}, PushOpts{SaveConfig: true})
		if err != nil {
			t.Fatalf("push failed: %v", err)
		}
		if !result.ConfigSaved {
			t.Error("expected config saved")
		}
		if configClient.uploaded == nil || !configClient.uploaded.Frames[0].Taken {
			t.Error("expected uploaded config to carry the taken frame")
		}
	})

	t.Run("All Failures Skip The Config Save", func(t *testing.T) {
		objects := &fakeObjects{failIndexes: map[int]bool{0: true}}
		engine, _, configClient, _ := testEngine(t, 5, objects)

		result, err := engine.Push(context.Background(), nil,
			[]models.FrameUpload{{Index: 0, Blob: []byte("a")}}, PushOpts{SaveConfig: true})
		if err != nil {
			t.Fatalf("push failed: %v", err)
		}
		if result.ConfigSaved || configClient.uploaded != nil {
			t.Error("expected no config upload when nothing succeeded")
		}
	})

	t.Run("Without Project Is A Precondition Failure", func(t *testing.T) {
		store := project.NewStore(&fakeConfigClient{}, nil)
		engine := NewEngine(&fakeObjects{}, store, nil, nil)

		_, err := engine.Push(context.Background(), nil, nil, PushOpts{})
		if !errors.Is(err, shared.ErrPrecondition) {
			t.Errorf("expected ErrPrecondition, got %v", err)
		}
	})

	t.Run("Progress Updates Are Emitted", func(t *testing.T) {
		objects := &fakeObjects{}
		engine, _, _, _ := testEngine(t, 5, objects)

		progress := make(chan ProgressUpdate, 16)
		engine.Push(context.Background(), progress,
			[]models.FrameUpload{{Index: 0, Blob: []byte("a")}, {Index: 1, Blob: []byte("b")}}, PushOpts{})
		close(progress)

		var uploads int
		for update := range progress {
			if update.Phase == UploadFrames {
				uploads++
			}
		}
		if uploads != 2 {
			t.Errorf("expected 2 upload updates, got %d", uploads)
		}
	})

	t.Run("Full Progress Channel Never Blocks", func(t *testing.T) {
		objects := &fakeObjects{}
		engine, _, _, _ := testEngine(t, 5, objects)

		progress := make(chan ProgressUpdate) // unbuffered, no reader
		done := make(chan struct{})
		go func() {
			engine.Push(context.Background(), progress,
				[]models.FrameUpload{{Index: 0, Blob: []byte("a")}}, PushOpts{})
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("push blocked on progress channel")
		}
	})
}

func TestPull(t *testing.T) {
	markTaken := func(t *testing.T, store *project.Store, indexes ...int) {
		t.Helper()
		for _, index := range indexes {
			if err := store.MarkFrameTaken(index, fmt.Sprintf("frame_%04d.webp", index)); err != nil {
				t.Fatalf("marking frame %d: %v", index, err)
			}
		}
	}

	t.Run("Downloads Taken Frames", func(t *testing.T) {
		objects := &fakeObjects{}
		engine, store, _, _ := testEngine(t, 5, objects)
		markTaken(t, store, 0, 2, 4)

		dir := t.TempDir()
		result, err := engine.Pull(context.Background(), nil, PullOpts{OutputDir: dir})
		if err != nil {
			t.Fatalf("pull failed: %v", err)
		}

		if result.TotalFrames != 3 || result.SuccessCount != 3 || result.FailedCount != 0 {
			t.Errorf("unexpected counts %+v", result)
		}
		for _, index := range []int{0, 2, 4} {
			path := filepath.Join(dir, fmt.Sprintf("frame_%04d.webp", index))
			blob, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("expected frame file: %v", err)
			}
			if string(blob) != fmt.Sprintf("blob-%d", index) {
				t.Errorf("unexpected content for frame %d: %q", index, blob)
			}
		}
	})

	t.Run("Results Are Ordered By Index", func(t *testing.T) {
		objects := &fakeObjects{}
		engine, store, _, _ := testEngine(t, 10, objects)
		markTaken(t, store, 7, 1, 5, 3)

		result, err := engine.Pull(context.Background(), nil, PullOpts{OutputDir: t.TempDir(), NumWorkers: 4})
		if err != nil {
			t.Fatalf("pull failed: %v", err)
		}
		want := []int{1, 3, 5, 7}
		for i, res := range result.Results {
			if res.Index != want[i] {
				t.Errorf("result %d has index %d, want %d", i, res.Index, want[i])
			}
		}
	})

	t.Run("Failed Download Does Not Abort", func(t *testing.T) {
		objects := &fakeObjects{failIndexes: map[int]bool{2: true}, downloadErr: shared.ErrTransport}
		engine, store, _, _ := testEngine(t, 5, objects)
		markTaken(t, store, 0, 2, 4)

		result, err := engine.Pull(context.Background(), nil, PullOpts{OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("pull failed: %v", err)
		}
		if result.SuccessCount != 2 || result.FailedCount != 1 {
			t.Errorf("unexpected counts %+v", result)
		}
		for _, res := range result.Results {
			if res.Index == 2 {
				if res.Success || res.Error == "" {
					t.Errorf("expected recorded failure for frame 2, got %+v", res)
				}
			}
		}
	})

	t.Run("Thumbnails Are Written", func(t *testing.T) {
		objects := &fakeObjects{images: map[int][]byte{0: webpBlob(t)}}
		engine, store, _, _ := testEngine(t, 5, objects)
		markTaken(t, store, 0)

		dir := t.TempDir()
		result, err := engine.Pull(context.Background(), nil,
			PullOpts{OutputDir: dir, Thumbnails: true, ThumbWidth: 4})
		if err != nil {
			t.Fatalf("pull failed: %v", err)
		}
		if result.SuccessCount != 1 {
			t.Fatalf("unexpected counts %+v", result)
		}

		file, err := os.Open(filepath.Join(dir, "thumbs", "frame_0000.png"))
		if err != nil {
			t.Fatalf("expected thumbnail: %v", err)
		}
		defer file.Close()

		thumb, err := png.Decode(file)
		if err != nil {
			t.Fatalf("expected decodable png: %v", err)
		}
		if thumb.Bounds().Dx() != 4 {
			t.Errorf("expected width 4, got %d", thumb.Bounds().Dx())
		}
	})

	t.Run("No Taken Frames Is An Empty Result", func(t *testing.T) {
		objects := &fakeObjects{}
		engine, _, _, _ := testEngine(t, 5, objects)

		dir := filepath.Join(t.TempDir(), "unused")
		result, err := engine.Pull(context.Background(), nil, PullOpts{OutputDir: dir})
		if err != nil {
			t.Fatalf("pull failed: %v", err)
		}
		if result.TotalFrames != 0 || len(result.Results) != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Error("expected no output directory for an empty pull")
		}
	})

	t.Run("Without Project Is A Precondition Failure", func(t *testing.T) {
		store := project.NewStore(&fakeConfigClient{}, nil)
		engine := NewEngine(&fakeObjects{}, store, nil, nil)

		_, err := engine.Pull(context.Background(), nil, PullOpts{})
		if !errors.Is(err, shared.ErrPrecondition) {
			t.Errorf("expected ErrPrecondition, got %v", err)
		}
	})
}

func TestWatch(t *testing.T) {
	t.Run("Staged Frame Reaches The Handler", func(t *testing.T) {
		objects := &fakeObjects{}
		engine, _, _, _ := testEngine(t, 5, objects)
		dir := t.TempDir()

		type call struct {
			index int
			path  string
		}
		calls := make(chan call, 4)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- engine.Watch(ctx, dir, func(ctx context.Context, index int, path string) error {
				calls <- call{index: index, path: path}
				return nil
			})
		}()

		// Give the watcher a moment to register before staging files.
		time.Sleep(100 * time.Millisecond)
		framePath := filepath.Join(dir, "frame_0003.webp")
		tu.MustWriteFile(t, framePath, []byte("blob"))
		tu.MustWriteFile(t, filepath.Join(dir, "notes.txt"), []byte("ignore"))

		select {
		case got := <-calls:
			if got.index != 3 || got.path != framePath {
				t.Errorf("unexpected call %+v", got)
			}
		case <-time.After(3 * time.Second):
			t.Fatal("handler never invoked")
		}

		select {
		case got := <-calls:
			t.Errorf("unexpected extra call %+v", got)
		case <-time.After(time.Second):
		}

		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
