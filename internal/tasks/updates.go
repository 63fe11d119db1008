package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Frame   int    // Frame index this step concerns, -1 when not frame-specific
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	UploadFrames Phase = iota
	DownloadFrames
	WriteThumbnails
	SaveConfig
)

func (p Phase) String() string {
	switch p {
	case UploadFrames:
		return "upload_frames"
	case DownloadFrames:
		return "download_frames"
	case WriteThumbnails:
		return "write_thumbnails"
	case SaveConfig:
		return "save_config"
	default:
		return ""
	}
}

func uploadFrameUpdate(step, total, frame int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadFrames,
		Step:    step,
		Total:   total,
		Frame:   frame,
		Message: fmt.Sprintf("Uploading frame %d...", frame),
	}
}

func downloadFrameUpdate(step, total, frame int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadFrames,
		Step:    step,
		Total:   total,
		Frame:   frame,
		Message: fmt.Sprintf("Downloading frame %d...", frame),
	}
}

func thumbnailUpdate(step, total, frame int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteThumbnails,
		Step:    step,
		Total:   total,
		Frame:   frame,
		Message: fmt.Sprintf("Writing thumbnail for frame %d...", frame),
	}
}

func saveConfigUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveConfig,
		Step:    1,
		Total:   1,
		Frame:   -1,
		Message: "Saving project configuration...",
	}
}
