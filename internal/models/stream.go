package models

import (
	"fmt"
	"strconv"
)

// Default frame geometry. Every frame is resized to this before use.
const (
	FrameWidth  = 1280
	FrameHeight = 720
)

// Point is a vertex of the restricted zone in frame pixels
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Frame is the decoded image handed between stages. *gocv.Mat satisfies it.
type Frame interface {
	Cols() int
	Rows() int
	Close() error
}

// SourceKind distinguishes live cameras from video files
type SourceKind string

const (
	SourceCamera SourceKind = "camera"
	SourceFile   SourceKind = "file"
)

// SourceRef identifies a frame source: a camera device index or a file path
type SourceRef struct {
	Kind   SourceKind `json:"kind"`
	Device int        `json:"device,omitempty"`
	Path   string     `json:"path,omitempty"`
}

func CameraSource(device int) SourceRef { return SourceRef{Kind: SourceCamera, Device: device} }
func FileSource(path string) SourceRef  { return SourceRef{Kind: SourceFile, Path: path} }

func (s SourceRef) IsLive() bool { return s.Kind == SourceCamera }

func (s SourceRef) String() string {
	if s.IsLive() {
		return "camera:" + strconv.Itoa(s.Device)
	}
	return fmt.Sprintf("file:%s", s.Path)
}

// FrameMessage is the per-frame payload sent to the client
type FrameMessage struct {
	Frame      string `json:"frame"`
	Intruder   bool   `json:"intruder"`
	FrameCount int    `json:"frame_count"`
}

// Status messages sent as plain text. The second group is sent with a detail.
const (
	StatusNoSourceConfigured = "NoSourceConfigured"
	StatusTimeout            = "Timeout"
	StatusVideoEnded         = "VideoEnded"
	StatusStreamReady        = "StreamReady"
	StatusStreamEnded        = "StreamEnded"

	StatusInvalidPolygon  = "InvalidPolygon"
	StatusInvalidJSON     = "InvalidJson"
	StatusVideoError      = "VideoError"
	StatusModelError      = "ModelError"
	StatusStreamError     = "StreamError"
	StatusProcessingError = "ProcessingError"
	StatusPolygonError    = "PolygonError"
)

// StatusDetail renders "<status>: <detail>".
func StatusDetail(status string, detail any) string {
	if err, ok := detail.(error); ok {
		return status + ": " + err.Error()
	}
	return fmt.Sprintf("%s: %v", status, detail)
}
