// Package capture drives the camera: opening a device, grabbing still
// frames, and encoding them to webp for upload.
package capture

import (
	"context"
	"image"
)

// Constraints describes the device and picture geometry a session asks
// the opener for.
type Constraints struct {
	// DevicePath is the platform device node, e.g. /dev/video0.
	DevicePath string
	Width      int
	Height     int
}

// DefaultConstraints returns the capture geometry used when the config
// file does not override it.
func DefaultConstraints() Constraints {
	return Constraints{DevicePath: "/dev/video0", Width: 1920, Height: 1080}
}

// Device is an open camera. Implementations are not required to be
// safe for concurrent ReadFrame calls; Session serializes access.
type Device interface {
	// ReadFrame grabs a single still image from the device.
	ReadFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// DeviceOpener acquires a Device. Opening may be slow (hardware warm
// up), so it takes a context.
type DeviceOpener interface {
	Open(ctx context.Context, constraints Constraints) (Device, error)
}

// PermissionStatus reports whether the device looks usable before a
// session tries to open it. It is advisory: a granted status does not
// guarantee Open will succeed, and a denied one does not prevent
// trying.
type PermissionStatus struct {
	Granted bool   `json:"granted"`
	Detail  string `json:"detail"`
}
