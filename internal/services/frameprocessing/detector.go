package frameprocessing

import (
	"context"
	"sort"

	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/zone"
)

// Detector finds objects in a frame. Implementations need not be safe for
// concurrent use; the Pool gives each worker its own instance.
type Detector interface {
	Detect(ctx context.Context, frame models.Frame) ([]models.Detection, error)
	// Ready reports whether the model is loaded or the remote service reachable.
	Ready(ctx context.Context) error
	Close() error
}

// Factory builds one Detector per pool worker.
type Factory func() (Detector, error)

// Filter keeps detections of one class at or above a confidence threshold.
type Filter struct {
	ClassID       int
	MinConfidence float64
}

func (f Filter) Apply(dets []models.Detection) []models.Detection {
	out := make([]models.Detection, 0, len(dets))
	for _, d := range dets {
		if d.ClassID == f.ClassID && d.Confidence >= f.MinConfidence {
			out = append(out, d)
		}
	}
	return out
}

// Analysis is the zone classification of one frame's detections.
type Analysis struct {
	Detections []models.ClassifiedDetection
	Intruders  int
}

// Alarm is raised when at least one person is inside the zone.
func (a Analysis) Alarm() bool { return a.Intruders > 0 }

// InsideDetections returns the detections classified inside the zone.
func (a Analysis) InsideDetections() []models.Detection {
	out := make([]models.Detection, 0, a.Intruders)
	for _, d := range a.Detections {
		if d.Inside {
			out = append(out, d.Detection)
		}
	}
	return out
}

// Analyze filters detections and classifies each against the zone. Output is
// ordered by ascending confidence so overlays draw the strongest box last.
func Analyze(dets []models.Detection, z zone.Zone, f Filter) Analysis {
	kept := f.Apply(dets)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Confidence < kept[j].Confidence })

	a := Analysis{Detections: make([]models.ClassifiedDetection, 0, len(kept))}
	for _, d := range kept {
		inside := zone.Classify(d, z)
		if inside {
			a.Intruders++
		}
		a.Detections = append(a.Detections, models.ClassifiedDetection{Detection: d, Inside: inside})
	}
	return a
}

// NopDetector never finds anything. Used when no backend is configured.
type NopDetector struct{}

func (NopDetector) Detect(context.Context, models.Frame) ([]models.Detection, error) { return nil, nil }
func (NopDetector) Ready(context.Context) error                                        { return nil }
func (NopDetector) Close() error                                                       { return nil }

// UnavailableDetector stands in for a backend that failed to load. Every
// call reports the load error, so streams fail with ModelError instead of
// the worker refusing to start.
type UnavailableDetector struct {
	Err error
}

func (d UnavailableDetector) Detect(context.Context, models.Frame) ([]models.Detection, error) {
	return nil, d.Err
}
func (d UnavailableDetector) Ready(context.Context) error { return d.Err }
func (UnavailableDetector) Close() error                  { return nil }

// Unavailable returns a Factory of UnavailableDetector.
func Unavailable(err error) Factory {
	return func() (Detector, error) { return UnavailableDetector{Err: err}, nil }
}
