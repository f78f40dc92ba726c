// Package vr tracks VR displays reported by a platform API and republishes
// their connection changes as events.
package vr

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
)

// FrameData is the per-frame state a platform reports for a display.
type FrameData struct {
	Timestamp float64

	Position    mgl32.Vec3
	Orientation mgl32.Quat

	LeftView, RightView             mgl32.Mat4
	LeftProjection, RightProjection mgl32.Mat4
}

// Handle is the platform side of a connected display.
type Handle interface {
	// ID is stable for the lifetime of the connection.
	ID() string
	Name() string
	// FrameData fills fd with the latest state, returns false if nothing is available.
	FrameData(fd *FrameData) bool
	Release() error
}

// Listener receives connection changes from a platform. Calls may come from any goroutine.
type Listener interface {
	DisplayConnected(h Handle)
	DisplayDisconnected(id string)
}

// Platform is the VR device API the manager is built on.
type Platform interface {
	Available() bool
	// Displays lists the currently connected displays.
	Displays(ctx context.Context) ([]Handle, error)
	Listen(l Listener)
	Unlisten(l Listener)
}
