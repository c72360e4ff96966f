package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
)

// ArtifactSource tags how a MediaArtifact was acquired.
type ArtifactSource string

const (
	SourceCamera ArtifactSource = "camera"
	SourceUpload ArtifactSource = "upload"
)

// MediaArtifact is the single shape both acquisition paths converge to.
// Downstream code (validation, assembly) never needs to know whether an
// artifact came from the camera or a file picker.
type MediaArtifact struct {
	PreviewDataURI string         `json:"preview_data_uri"`
	Payload        []byte         `json:"-"`
	MIMEType       string         `json:"mime_type"`
	Source         ArtifactSource `json:"source"`
}

// SlotState is the per-slot capture state machine.
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotRequesting
	SlotStreaming
	SlotCaptured
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotRequesting:
		return "requesting"
	case SlotStreaming:
		return "streaming"
	case SlotCaptured:
		return "captured"
	}
	return "unknown"
}

// CameraDevice abstracts camera acquisition. Open may block indefinitely
// awaiting a permission grant, so it takes a context for cancellation; it
// returns ErrPermissionDenied or ErrDeviceUnavailable on failure.
type CameraDevice interface {
	Open(ctx context.Context) (CameraStream, error)
}

// CameraStream is a held device stream. Release must be idempotent-safe at
// the call site: the engine guarantees it calls Release exactly once per
// acquired stream.
type CameraStream interface {
	Frame() (image.Image, error)
	Release()
}

// Slot is one logical image-acquisition target (ID photo, insurance card
// front, ...) with its own independent state machine.
type Slot struct {
	Name string

	group    *SlotGroup
	state    SlotState
	stream   CameraStream
	artifact *MediaArtifact
}

// State returns the slot's current capture state.
func (s *Slot) State() SlotState { return s.state }

// Artifact returns the captured artifact, or nil before capture.
func (s *Slot) Artifact() *MediaArtifact { return s.artifact }

// OpenCamera acquires the device stream for this slot. Any stream held by
// another slot in the group is released first: the single active camera is
// exclusively owned by the slot that opened it. On failure the slot returns
// to Idle with the error reported.
func (s *Slot) OpenCamera(ctx context.Context, dev CameraDevice) error {
	if s.state == SlotRequesting || s.state == SlotStreaming {
		return fmt.Errorf("slot %q already has a camera request open", s.Name)
	}
	s.group.releaseActive()
	s.state = SlotRequesting
	stream, err := dev.Open(ctx)
	if err != nil {
		s.state = SlotIdle
		return err
	}
	s.stream = stream
	s.state = SlotStreaming
	s.group.active = s
	return nil
}

// Capture takes the current frame, encodes it as a MediaArtifact and
// releases the device stream. The device is never left held after a capture.
func (s *Slot) Capture() error {
	if s.state != SlotStreaming {
		return fmt.Errorf("slot %q cannot capture while %s", s.Name, s.state)
	}
	frame, err := s.stream.Frame()
	if err != nil {
		s.releaseStream()
		s.state = SlotIdle
		return fmt.Errorf("read camera frame: %w", err)
	}
	art, err := encodeFrame(frame)
	if err != nil {
		s.releaseStream()
		s.state = SlotIdle
		return err
	}
	s.releaseStream()
	s.artifact = art
	s.state = SlotCaptured
	return nil
}

// Upload fills the slot from a user-selected file, the fallback path when
// camera access is denied. It produces the same artifact shape as Capture.
func (s *Slot) Upload(mimeType string, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("slot %q: uploaded file is empty", s.Name)
	}
	if s.state == SlotStreaming || s.state == SlotRequesting {
		s.releaseStream()
	}
	s.artifact = &MediaArtifact{
		PreviewDataURI: dataURI(mimeType, payload),
		Payload:        payload,
		MIMEType:       mimeType,
		Source:         SourceUpload,
	}
	s.state = SlotCaptured
	return nil
}

// Retake discards the captured artifact and returns the slot to Idle,
// releasing any stream still held.
func (s *Slot) Retake() {
	s.releaseStream()
	s.artifact = nil
	s.state = SlotIdle
}

// Cancel abandons the slot, releasing any held stream. Used when the user
// navigates away mid-capture.
func (s *Slot) Cancel() {
	s.Retake()
}

func (s *Slot) releaseStream() {
	if s.stream != nil {
		s.stream.Release()
		s.stream = nil
	}
	if s.group.active == s {
		s.group.active = nil
	}
}

// SlotGroup owns the capture slots of one workflow instance and enforces the
// single-active-stream policy across them.
type SlotGroup struct {
	slots  map[string]*Slot
	order  []string
	active *Slot
}

// NewSlotGroup creates an empty slot group.
func NewSlotGroup() *SlotGroup {
	return &SlotGroup{slots: make(map[string]*Slot)}
}

// Slot returns the named slot, creating it on first use.
func (g *SlotGroup) Slot(name string) *Slot {
	if s, ok := g.slots[name]; ok {
		return s
	}
	s := &Slot{Name: name, group: g}
	g.slots[name] = s
	g.order = append(g.order, name)
	return s
}

// Artifacts returns the captured artifact for every slot that has one, keyed
// by slot name.
func (g *SlotGroup) Artifacts() map[string]*MediaArtifact {
	out := make(map[string]*MediaArtifact)
	for name, s := range g.slots {
		if s.artifact != nil {
			out[name] = s.artifact
		}
	}
	return out
}

// Reset cancels every slot, releasing any held stream and dropping all
// artifacts.
func (g *SlotGroup) Reset() {
	for _, s := range g.slots {
		s.Cancel()
	}
}

func (g *SlotGroup) releaseActive() {
	if a := g.active; a != nil {
		a.releaseStream()
		a.state = SlotIdle
	}
}

func encodeFrame(frame image.Image) (*MediaArtifact, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode captured frame: %w", err)
	}
	payload := buf.Bytes()
	return &MediaArtifact{
		PreviewDataURI: dataURI("image/jpeg", payload),
		Payload:        payload,
		MIMEType:       "image/jpeg",
		Source:         SourceCamera,
	}, nil
}

func dataURI(mimeType string, payload []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(payload)
}
