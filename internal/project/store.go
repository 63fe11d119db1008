// Package project holds the in-memory working state for a single
// stop-motion project: the loaded frame plan, the cursor into it, and
// the load lifecycle (idle, loading, ready, failed).
package project

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"stopmo/internal/models"
	"stopmo/internal/shared"
)

// State tracks where a Store is in the load lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ConfigClient is the remote surface the store needs: existence probes
// plus config transfer. *storage.Client satisfies it.
type ConfigClient interface {
	CheckExists(ctx context.Context, projectID string) (bool, error)
	DownloadConfig(ctx context.Context, projectID string) (*models.ProjectConfig, error)
	UploadConfig(ctx context.Context, projectID string, config *models.ProjectConfig) error
}

// Store owns the current project's configuration and frame cursor. All
// methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	client ConfigClient
	logger *log.Logger

	state        State
	projectID    string
	config       *models.ProjectConfig
	currentFrame int
	lastErr      error
}

func NewStore(client ConfigClient, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{
		client: client,
		logger: logger,
		state:  StateIdle,
	}
}

// LoadConfig fetches the configuration for projectID and replaces the
// store's working copy. A failed load leaves any previously loaded
// config untouched so the caller can keep working against it.
func (s *Store) LoadConfig(ctx context.Context, projectID string) error {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	s.logger.Debug("loading project config", "project", projectID)

	exists, err := s.client.CheckExists(ctx, projectID)
	if err != nil {
		return s.fail(projectID, err)
	}
	if !exists {
		return s.fail(projectID, fmt.Errorf("project %s: %w", projectID, shared.ErrProjectNotFound))
	}

	config, err := s.client.DownloadConfig(ctx, projectID)
	if err != nil {
		return s.fail(projectID, err)
	}
	if err := config.Validate(); err != nil {
		return s.fail(projectID, fmt.Errorf("remote config rejected: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateReady
	s.projectID = projectID
	s.config = config
	s.currentFrame = clamp(s.currentFrame, config.TotalFrames)
	s.lastErr = nil

	s.logger.Info("project loaded", "project", projectID, "frames", config.TotalFrames)
	return nil
}

func (s *Store) fail(projectID string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateFailed
	s.lastErr = err
	s.logger.Error("project load failed", "project", projectID, "error", err)
	return err
}

// SetConfig installs a locally built configuration, for projects that
// do not exist remotely yet. The store becomes Ready immediately.
func (s *Store) SetConfig(projectID string, config *models.ProjectConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateReady
	s.projectID = projectID
	s.config = config
	s.currentFrame = 0
	s.lastErr = nil
	return nil
}

// SaveConfig uploads the working copy back to remote storage.
func (s *Store) SaveConfig(ctx context.Context) error {
	s.mu.Lock()
	projectID := s.projectID
	config := s.config
	s.mu.Unlock()

	if projectID == "" || config == nil {
		return fmt.Errorf("no project loaded: %w", shared.ErrPrecondition)
	}
	return s.client.UploadConfig(ctx, projectID, config)
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) ProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

// LastError reports the error recorded by the most recent failed load,
// or nil after a successful one.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) TotalFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return 0
	}
	return s.config.TotalFrames
}

func (s *Store) TakenFramesCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return 0
	}
	return s.config.TakenCount()
}

func (s *Store) CurrentFrame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentFrame
}

// SetCurrentFrame moves the cursor, clamping into [0, totalFrames-1].
// The clamped value is returned.
func (s *Store) SetCurrentFrame(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	if s.config != nil {
		total = s.config.TotalFrames
	}
	s.currentFrame = clamp(index, total)
	return s.currentFrame
}

func clamp(index, total int) int {
	if total <= 0 {
		return 0
	}
	return max(0, min(index, total-1))
}

// CurrentFrameData returns a copy of the frame under the cursor.
func (s *Store) CurrentFrameData() (models.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return models.Frame{}, fmt.Errorf("no project loaded: %w", shared.ErrPrecondition)
	}
	return s.config.Frames[s.currentFrame], nil
}

// FrameData returns a copy of the frame at index.
func (s *Store) FrameData(index int) (models.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return models.Frame{}, fmt.Errorf("no project loaded: %w", shared.ErrPrecondition)
	}
	if index < 0 || index >= len(s.config.Frames) {
		return models.Frame{}, fmt.Errorf("frame %d out of range: %w", index, shared.ErrInvalidInput)
	}
	return s.config.Frames[index], nil
}

// MarkFrameTaken records that index has been captured under filename.
// Marking an already taken frame updates the filename and is not an
// error; an index outside the sheet is ignored, so a stale upload
// result from a since-shortened project cannot fail the pipeline.
func (s *Store) MarkFrameTaken(index int, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return fmt.Errorf("no project loaded: %w", shared.ErrPrecondition)
	}
	if index < 0 || index >= len(s.config.Frames) {
		return nil
	}

	frame := &s.config.Frames[index]
	frame.Taken = true
	frame.Filename = &filename
	return nil
}

// ClearFrame resets index to the untaken state, dropping filename and
// note.
func (s *Store) ClearFrame(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return fmt.Errorf("no project loaded: %w", shared.ErrPrecondition)
	}
	if index < 0 || index >= len(s.config.Frames) {
		return fmt.Errorf("frame %d out of range: %w", index, shared.ErrInvalidInput)
	}

	s.config.Frames[index] = models.Frame{Index: index}
	return nil
}

// SetFrameNote attaches a note to index. An empty note removes any
// existing one.
func (s *Store) SetFrameNote(index int, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return fmt.Errorf("no project loaded: %w", shared.ErrPrecondition)
	}
	if index < 0 || index >= len(s.config.Frames) {
		return fmt.Errorf("frame %d out of range: %w", index, shared.ErrInvalidInput)
	}

	if note == "" {
		s.config.Frames[index].Note = nil
	} else {
		s.config.Frames[index].Note = &note
	}
	return nil
}

// Snapshot returns a deep copy of the working config for read-only
// consumers (formatters, the TUI).
func (s *Store) Snapshot() *models.ProjectConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return nil
	}
	copied := *s.config
	copied.Frames = make([]models.Frame, len(s.config.Frames))
	copy(copied.Frames, s.config.Frames)
	return &copied
}

// Describe summarizes the store for status output and logs.
func (s *Store) Describe() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return fmt.Sprintf("state=%s project=%s", s.state, valueOr(s.projectID, "none"))
	}
	return fmt.Sprintf(
		"state=%s project=%s frames=%d/%d cursor=%d",
		s.state, s.projectID, s.config.TakenCount(), s.config.TotalFrames, s.currentFrame,
	)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
