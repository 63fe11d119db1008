package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"
)

// FFmpegOpener grabs stills through the ffmpeg binary and a v4l2
// input. It keeps no device handle open between frames; every
// ReadFrame is a one-shot invocation.
type FFmpegOpener struct {
	// Binary is the ffmpeg executable. Defaults to "ffmpeg" on PATH.
	Binary string
}

func (o *FFmpegOpener) Open(ctx context.Context, constraints Constraints) (Device, error) {
	binary := o.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	device := &ffmpegDevice{binary: resolved, constraints: constraints}
	// Grab one frame up front so open fails fast on a bad device
	// instead of on the first capture.
	if _, err := device.ReadFrame(ctx); err != nil {
		return nil, err
	}
	return device, nil
}

type ffmpegDevice struct {
	binary      string
	constraints Constraints
}

func (d *ffmpegDevice) ReadFrame(ctx context.Context) (image.Image, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", d.constraints.Width, d.constraints.Height),
		"-i", d.constraints.DevicePath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "png",
		"pipe:1",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("ffmpeg grab failed: %v: %s", err, detail)
		}
		return nil, fmt.Errorf("ffmpeg grab failed: %w", err)
	}

	frame, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decoding grabbed frame: %w", err)
	}
	return frame, nil
}

func (d *ffmpegDevice) Close() error {
	return nil
}
