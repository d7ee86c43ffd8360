// Package testutil holds in-memory fakes for the frame source and renderer
// interfaces so pipeline tests run without OpenCV.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/streamcapture"
	"intrusion-worker-go/internal/zone"
)

// Frame is a models.Frame that records whether it was released.
type Frame struct {
	W, H   int
	ID     int
	closed atomic.Int32
}

func NewFrame(id int) *Frame { return &Frame{W: 640, H: 480, ID: id} }

func (f *Frame) Cols() int { return f.W }
func (f *Frame) Rows() int { return f.H }
func (f *Frame) Close() error {
	f.closed.Add(1)
	return nil
}
func (f *Frame) Closed() bool    { return f.closed.Load() > 0 }
func (f *Frame) CloseCount() int { return int(f.closed.Load()) }

// Source replays a fixed number of frames then returns End.
type Source struct {
	mu     sync.Mutex
	Frames int
	// FailAt makes the nth read (1-based) return ReadErr. Zero disables it.
	FailAt  int
	ReadErr error
	End     error
	reads   int
	closed  int
	issued  []*Frame
}

func NewFileSource(frames int) *Source {
	return &Source{Frames: frames, End: streamcapture.ErrEndOfStream}
}

func NewLiveSource(frames int) *Source {
	return &Source{Frames: frames, End: streamcapture.ErrReadFailed}
}

func (s *Source) Read() (models.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.FailAt > 0 && s.reads == s.FailAt {
		return nil, s.ReadErr
	}
	if len(s.issued) >= s.Frames {
		return nil, s.End
	}
	f := NewFrame(len(s.issued))
	s.issued = append(s.issued, f)
	return f, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed > 0
}

func (s *Source) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Issued returns every frame handed out so far.
func (s *Source) Issued() []*Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Frame, len(s.issued))
	copy(out, s.issued)
	return out
}

// Opener hands out sources from a factory and can fail the first N opens.
type Opener struct {
	mu        sync.Mutex
	FailFirst int
	OpenErr   error
	NewSource func(ref models.SourceRef) *Source
	opens     int
	sources   []*Source
	options   []streamcapture.CaptureOptions
}

func NewOpener(newSource func(ref models.SourceRef) *Source) *Opener {
	return &Opener{NewSource: newSource, OpenErr: streamcapture.ErrNotOpened}
}

func (o *Opener) Open(_ context.Context, ref models.SourceRef, opts streamcapture.CaptureOptions) (streamcapture.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	o.options = append(o.options, opts)
	if o.opens <= o.FailFirst {
		return nil, o.OpenErr
	}
	src := o.NewSource(ref)
	o.sources = append(o.sources, src)
	return src, nil
}

func (o *Opener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

func (o *Opener) Sources() []*Source {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Source, len(o.sources))
	copy(out, o.sources)
	return out
}

// AllClosed reports whether every source opened so far was released.
func (o *Opener) AllClosed() bool {
	for _, s := range o.Sources() {
		if !s.Closed() {
			return false
		}
	}
	return true
}

// Imager resizes by returning a new Frame of the requested size and encodes
// to a fixed payload.
type Imager struct {
	EncodeErr error
	Payload   []byte
	mu        sync.Mutex
	resized   []*Frame
}

func (im *Imager) Resize(f models.Frame, width, height int) (models.Frame, error) {
	out := &Frame{W: width, H: height}
	im.mu.Lock()
	im.resized = append(im.resized, out)
	im.mu.Unlock()
	return out, nil
}

func (im *Imager) EncodeJPEG(models.Frame, int) ([]byte, error) {
	if im.EncodeErr != nil {
		return nil, im.EncodeErr
	}
	if im.Payload != nil {
		return im.Payload, nil
	}
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

// Resized returns the frames produced by Resize.
func (im *Imager) Resized() []*Frame {
	im.mu.Lock()
	defer im.mu.Unlock()
	out := make([]*Frame, len(im.resized))
	copy(out, im.resized)
	return out
}

// NoSleep is a sleep func that returns immediately and records durations.
type NoSleep struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (n *NoSleep) Sleep(ctx context.Context, d time.Duration) error {
	n.mu.Lock()
	n.calls = append(n.calls, d)
	n.mu.Unlock()
	return ctx.Err()
}

func (n *NoSleep) Calls() []time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]time.Duration, len(n.calls))
	copy(out, n.calls)
	return out
}

var ErrBoom = errors.New("boom")

// Renderer is an Imager whose overlays are no-ops.
type Renderer struct {
	Imager
}

func (r *Renderer) DrawZone(models.Frame, zone.Zone) error { return nil }

func (r *Renderer) DrawDetection(models.Frame, models.ClassifiedDetection) error { return nil }
