package streamcapture

import (
	"context"
	"errors"
	"sync"

	"intrusion-worker-go/internal/models"
)

var (
	// ErrEndOfStream is returned by Read when a file source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
	// ErrReadFailed is returned by Read when a live source yields no frame.
	ErrReadFailed = errors.New("frame read failed")
	// ErrNotOpened is returned by an Opener when the device or file cannot be opened.
	ErrNotOpened = errors.New("source could not be opened")
)

// Source is an opened frame source. Frames returned by Read are owned by the caller.
type Source interface {
	Read() (models.Frame, error)
	Close() error
}

// CaptureOptions are requested from live sources right after opening.
type CaptureOptions struct {
	Width      int
	Height     int
	FPS        int
	BufferSize int
}

// Opener opens a SourceRef. Implementations apply opts to live sources only.
type Opener interface {
	Open(ctx context.Context, ref models.SourceRef, opts CaptureOptions) (Source, error)
}

// Imager resizes and encodes frames for snapshots.
type Imager interface {
	Resize(f models.Frame, width, height int) (models.Frame, error)
	EncodeJPEG(f models.Frame, quality int) ([]byte, error)
}

// Registry holds the source selected through the snapshot endpoint.
// Sessions copy the value once when they start.
type Registry struct {
	mu  sync.RWMutex
	ref *models.SourceRef
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Set(ref models.SourceRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ref = &ref
}

// Get returns the configured source and whether one has been set.
func (r *Registry) Get() (models.SourceRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.ref == nil {
		return models.SourceRef{}, false
	}
	return *r.ref, true
}
