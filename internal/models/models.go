// package models defines the data model for stop-motion project documents
package models

import (
	"fmt"
)

// Frame is one entry in a project's fixed-length frame sequence.
//
// Index is the frame's stable identity and equals its array position.
// Filename is non-nil exactly when Taken is true; Note is free text
// independent of capture state.
type Frame struct {
	Index    int     `json:"index"`
	Taken    bool    `json:"taken"`
	Filename *string `json:"filename"`
	Note     *string `json:"note"`
}

// ProjectConfig is the document of record for one project.
//
// The whole document is the unit of read and write: it is loaded wholesale
// from remote storage, mutated in memory, and persisted wholesale. There are
// no field-level updates and no version checks; the last writer wins.
type ProjectConfig struct {
	TotalFrames int     `json:"totalFrames"`
	FPS         int     `json:"fps"`
	AspectRatio float64 `json:"aspectRatio"`
	Frames      []Frame `json:"frames"`
}

// NewProjectConfig builds an empty config with totalFrames untaken frames.
func NewProjectConfig(totalFrames, fps int, aspectRatio float64) *ProjectConfig {
	frames := make([]Frame, totalFrames)
	for i := range frames {
		frames[i] = Frame{Index: i}
	}
	return &ProjectConfig{
		TotalFrames: totalFrames,
		FPS:         fps,
		AspectRatio: aspectRatio,
		Frames:      frames,
	}
}

// Validate checks the config document's structural invariants.
func (c *ProjectConfig) Validate() error {
	if c.TotalFrames <= 0 {
		return fmt.Errorf("totalFrames must be positive, got %d", c.TotalFrames)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.AspectRatio <= 0 {
		return fmt.Errorf("aspectRatio must be positive, got %f", c.AspectRatio)
	}
	if len(c.Frames) != c.TotalFrames {
		return fmt.Errorf("frame count %d does not match totalFrames %d", len(c.Frames), c.TotalFrames)
	}
	for i, frame := range c.Frames {
		if frame.Index != i {
			return fmt.Errorf("frame at position %d has index %d", i, frame.Index)
		}
		if frame.Taken && frame.Filename == nil {
			return fmt.Errorf("frame %d is taken but has no filename", i)
		}
		if !frame.Taken && frame.Filename != nil {
			return fmt.Errorf("frame %d is not taken but has filename %q", i, *frame.Filename)
		}
	}
	return nil
}

// TakenCount returns the number of frames with a captured photo.
func (c *ProjectConfig) TakenCount() int {
	count := 0
	for _, frame := range c.Frames {
		if frame.Taken {
			count++
		}
	}
	return count
}

// FrameUpload is one pending queue entry: a captured image awaiting sync.
type FrameUpload struct {
	Index int
	Blob  []byte
}

// SyncResult records the outcome of uploading a single frame.
//
// Sync never aborts on a per-frame failure; callers receive one result per
// input frame, in input order.
type SyncResult struct {
	Index   int    `json:"index"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
