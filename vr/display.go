package vr

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Camera is bound to a display to receive its pose every frame.
type Camera interface {
	UpdatePose(d *Display)
}

// Display wraps a platform handle tracked by the Manager.
type Display struct {
	handle Handle
	id     string
	uid    uuid.UUID
	name   string

	camera Camera
	frame  FrameData
	pose   mgl32.Mat4
	view   mgl32.Mat4
}

func newDisplay(h Handle) *Display {
	return &Display{
		handle: h,
		id:     h.ID(),
		uid:    uuid.New(),
		name:   h.Name(),
		frame: FrameData{
			Orientation:     mgl32.QuatIdent(),
			LeftView:        mgl32.Ident4(),
			RightView:       mgl32.Ident4(),
			LeftProjection:  mgl32.Ident4(),
			RightProjection: mgl32.Ident4(),
		},
		pose: mgl32.Ident4(),
		view: mgl32.Ident4(),
	}
}

// ID is the platform identifier.
func (d *Display) ID() string { return d.id }

// UID is unique per wrapper, a display that reconnects gets a new one.
func (d *Display) UID() uuid.UUID { return d.uid }

func (d *Display) Name() string { return d.name }

func (d *Display) Camera() Camera { return d.camera }

// SetCamera binds c to the display, nil unbinds. Only displays with a
// camera are updated by Manager.Poll.
func (d *Display) SetCamera(c Camera) { d.camera = c }

func (d *Display) Frame() FrameData { return d.frame }

// Pose is the head transform in tracking space.
func (d *Display) Pose() mgl32.Mat4 { return d.pose }

// View is the inverse of Pose.
func (d *Display) View() mgl32.Mat4 { return d.view }

// Poll pulls the latest frame data from the platform and forwards it to the camera.
func (d *Display) Poll() {
	if cam := d.pull(); cam != nil {
		cam.UpdatePose(d)
	}
}

// pull refreshes the frame and the derived matrices. It returns the camera
// to notify, nil when there is no new frame or no camera.
func (d *Display) pull() Camera {
	if d.handle == nil {
		return nil
	}
	if !d.handle.FrameData(&d.frame) {
		return nil
	}

	q := d.frame.Orientation
	if q.Len() == 0 {
		q = mgl32.QuatIdent()
	}
	p := d.frame.Position
	d.pose = mgl32.Translate3D(p[0], p[1], p[2]).Mul4(q.Normalize().Mat4())
	d.view = d.pose.Inv()

	return d.camera
}

// Destroy releases the platform handle and unbinds the camera.
func (d *Display) Destroy() {
	if d.handle == nil {
		return
	}
	if err := d.handle.Release(); err != nil {
		log.Printf("[vr] Error releasing display %q: %v", d.id, err)
	}
	d.handle = nil
	d.camera = nil
}
