package models

import (
	"time"
)

// AlertType represents the kind of alert published for a session
type AlertType string

const (
	AlertTypeIntrusion AlertType = "INTRUSION_DETECTION"
)

// AlertSeverity represents the severity level of alerts
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// BBox is an axis aligned box in frame pixel coordinates
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Centroid returns the box center.
func (b BBox) Centroid() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// BottomCenter returns the middle of the bottom edge, roughly where a person stands.
func (b BBox) BottomCenter() (float64, float64) {
	return (b.X1 + b.X2) / 2, b.Y2
}

func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Detection represents a single object found by the detector
type Detection struct {
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// ClassifiedDetection pairs a detection with its zone membership
type ClassifiedDetection struct {
	Detection
	Inside bool `json:"inside"`
}

// IntrusionEvent is published when a session's alarm flag rises
type IntrusionEvent struct {
	EventID    string        `json:"event_id"`
	Type       AlertType     `json:"type"`
	Severity   AlertSeverity `json:"severity"`
	WorkerID   string        `json:"worker_id"`
	SessionID  string        `json:"session_id"`
	Source     string        `json:"source"`
	FrameIndex int           `json:"frame_index"`
	Intruders  []Detection   `json:"intruders"`
	Zone       []Point       `json:"zone"`
	Timestamp  time.Time     `json:"timestamp"`
	// ContextImage is the annotated alarm frame as a JPEG data URL.
	ContextImage string `json:"context_image,omitempty"`
}

// SeverityFor maps the number of intruders in a frame to a severity
func SeverityFor(intruders int) AlertSeverity {
	switch {
	case intruders >= 5:
		return AlertSeverityCritical
	case intruders >= 3:
		return AlertSeverityHigh
	case intruders >= 2:
		return AlertSeverityMedium
	default:
		return AlertSeverityLow
	}
}
