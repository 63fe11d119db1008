package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/chai2010/webp"
	"github.com/charmbracelet/log"

	"stopmo/internal/shared"
)

// DefaultQuality is the webp encoder quality used for captured frames.
const DefaultQuality = 80

// DefaultStartWait bounds how long a concurrent Start waits for an
// in-flight initialization before giving up.
const DefaultStartWait = 3 * time.Second

// State tracks a capture session's lifecycle.
type State int

const (
	StateInactive State = iota
	StateInitializing
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// startAttempt is the shared result of one device open. Concurrent
// Start callers block on done and read err afterwards.
type startAttempt struct {
	done chan struct{}
	err  error
}

// Session owns the camera for the duration of a capture run. Start is
// re-entrant: while one caller is opening the device, later callers
// wait for that attempt instead of opening a second device.
type Session struct {
	mu sync.Mutex

	opener      DeviceOpener
	constraints Constraints
	quality     float32
	startWait   time.Duration
	logger      *log.Logger

	state   State
	device  Device
	attempt *startAttempt
}

func NewSession(opener DeviceOpener, constraints Constraints, logger *log.Logger) *Session {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Session{
		opener:      opener,
		constraints: constraints,
		quality:     DefaultQuality,
		startWait:   DefaultStartWait,
		logger:      logger,
	}
}

// SetQuality overrides the webp encoder quality, clamped to [1, 100].
func (s *Session) SetQuality(quality int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quality = float32(max(1, min(quality, 100)))
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the device. Calling Start on an active session is a
// no-op. Calling it while another Start is in flight waits for that
// attempt and returns its outcome, so the device is opened at most
// once.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()

	switch s.state {
	case StateActive:
		s.mu.Unlock()
		return nil
	case StateInitializing:
		attempt := s.attempt
		s.mu.Unlock()
		return s.await(ctx, attempt)
	}

	attempt := &startAttempt{done: make(chan struct{})}
	s.attempt = attempt
	s.state = StateInitializing
	constraints := s.constraints
	s.mu.Unlock()

	s.logger.Debug("opening capture device", "device", constraints.DevicePath)
	device, err := s.opener.Open(ctx, constraints)

	s.mu.Lock()
	if s.attempt != attempt {
		// A timed-out waiter or Stop already cleared this attempt.
		// Whatever the session looks like now belongs to a newer
		// Start, so discard the result instead of installing it.
		s.mu.Unlock()
		if err == nil {
			if closeErr := device.Close(); closeErr != nil {
				s.logger.Warn("closing abandoned capture device", "error", closeErr)
			}
			attempt.err = fmt.Errorf("initialization abandoned: %w", shared.ErrTimeout)
		} else {
			attempt.err = fmt.Errorf("open %s: %w: %v", constraints.DevicePath, shared.ErrDeviceUnavailable, err)
		}
		close(attempt.done)
		return attempt.err
	}
	if err != nil {
		s.state = StateInactive
		attempt.err = fmt.Errorf("open %s: %w: %v", constraints.DevicePath, shared.ErrDeviceUnavailable, err)
		s.logger.Error("capture device unavailable", "device", constraints.DevicePath, "error", err)
	} else {
		s.state = StateActive
		s.device = device
		s.logger.Info("capture session active", "device", constraints.DevicePath,
			"width", constraints.Width, "height", constraints.Height)
	}
	s.attempt = nil
	s.mu.Unlock()

	close(attempt.done)
	return attempt.err
}

// await blocks on an in-flight attempt, bounded by startWait. A
// timeout abandons the attempt: the guard is cleared so the next
// Start opens fresh instead of waiting on a stuck device forever.
func (s *Session) await(ctx context.Context, attempt *startAttempt) error {
	timer := time.NewTimer(s.startWait)
	defer timer.Stop()

	select {
	case <-attempt.done:
		return attempt.err
	case <-timer.C:
		s.mu.Lock()
		if s.attempt == attempt {
			s.attempt = nil
			s.state = StateInactive
		}
		s.mu.Unlock()
		return fmt.Errorf("device initialization still pending: %w", shared.ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop releases the device. It is safe to call in any state; an
// in-flight Start is abandoned and will close its device on arrival.
func (s *Session) Stop() {
	s.mu.Lock()
	device := s.device
	s.device = nil
	s.attempt = nil
	s.state = StateInactive
	s.mu.Unlock()

	if device != nil {
		if err := device.Close(); err != nil {
			s.logger.Warn("closing capture device", "error", err)
		}
	}
}

// Capture grabs one frame and encodes it to webp.
func (s *Session) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return nil, fmt.Errorf("session is %s: %w", s.state, shared.ErrNotActive)
	}
	device := s.device
	quality := s.quality
	s.mu.Unlock()

	frame, err := device.ReadFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}

	blob, err := encodeWebP(frame, quality)
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func encodeWebP(frame image.Image, quality float32) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("device produced no image: %w", shared.ErrEncodeFailed)
	}
	bounds := frame.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("device produced an empty image: %w", shared.ErrEncodeFailed)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, frame, &webp.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrEncodeFailed, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("encoder produced no output: %w", shared.ErrEncodeFailed)
	}
	return buf.Bytes(), nil
}

// CheckPermission inspects the configured device node without opening
// it. The result is advisory and the check never fails the caller.
func (s *Session) CheckPermission() PermissionStatus {
	s.mu.Lock()
	path := s.constraints.DevicePath
	s.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return PermissionStatus{Granted: false, Detail: fmt.Sprintf("%s is not accessible: %v", path, err)}
	}
	if info.Mode()&os.ModeDevice == 0 {
		return PermissionStatus{Granted: false, Detail: fmt.Sprintf("%s is not a device node", path)}
	}

	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return PermissionStatus{Granted: false, Detail: fmt.Sprintf("%s cannot be opened for reading: %v", path, err)}
	}
	file.Close()

	return PermissionStatus{Granted: true, Detail: fmt.Sprintf("%s is readable", path)}
}
