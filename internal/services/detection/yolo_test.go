package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tensor builds a [rows x anchors] row-major buffer from per-anchor columns.
func tensor(rows int, cols ...[]float32) []float32 {
	anchors := len(cols)
	data := make([]float32, rows*anchors)
	for i, col := range cols {
		for r, v := range col {
			data[r*anchors+i] = v
		}
	}
	return data
}

func TestDecodeYOLO(t *testing.T) {
	// 4 box rows + 2 classes
	data := tensor(6,
		[]float32{320, 320, 100, 200, 0.9, 0.1},
		[]float32{100, 100, 10, 10, 0.2, 0.3},
		[]float32{50, 60, 20, 40, 0.05, 0.7},
	)

	got, err := DecodeYOLO(data, 6, 3, 2, 0.5, 0.25)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Candidate{ClassID: 0, Confidence: 0.9, X1: 540, Y1: 110, X2: 740, Y2: 210}, got[0])
	assert.Equal(t, 1, got[1].ClassID)
	assert.InDelta(t, 0.7, got[1].Confidence, 1e-6)
}

func TestDecodeYOLOShapeErrors(t *testing.T) {
	_, err := DecodeYOLO(make([]float32, 8), 4, 2, 1, 1, 0.5)
	assert.Error(t, err)

	_, err = DecodeYOLO(make([]float32, 5), 5, 2, 1, 1, 0.5)
	assert.Error(t, err)
}

func TestClassLabel(t *testing.T) {
	assert.Equal(t, "person", ClassLabel(0))
	assert.Equal(t, "class_2", ClassLabel(2))
}

func TestLetterboxWideFrame(t *testing.T) {
	lb := NewLetterbox(1280, 720, 640)

	assert.InDelta(t, 0.5, lb.Scale, 1e-6)
	assert.Equal(t, 640, lb.Width)
	assert.Equal(t, 360, lb.Height)
	assert.Equal(t, 0, lb.OffX)
	assert.Equal(t, 140, lb.OffY)
}

func TestLetterboxUnmapRoundTrips(t *testing.T) {
	lb := NewLetterbox(1280, 720, 640)
	// a box at (200,100)-(400,500) in the frame lands at (100,190)-(200,390)
	in := Candidate{ClassID: 0, Confidence: 0.8, X1: 100, Y1: 190, X2: 200, Y2: 390}

	got := lb.Unmap(in, 1280, 720)

	assert.InDelta(t, 200, got.X1, 1e-3)
	assert.InDelta(t, 100, got.Y1, 1e-3)
	assert.InDelta(t, 400, got.X2, 1e-3)
	assert.InDelta(t, 500, got.Y2, 1e-3)
	assert.Equal(t, float32(0.8), got.Confidence)
}

func TestLetterboxUnmapClampsToFrame(t *testing.T) {
	lb := NewLetterbox(1280, 720, 640)
	// boxes reaching into the padding are clipped to the picture
	got := lb.Unmap(Candidate{X1: -10, Y1: 100, X2: 700, Y2: 600}, 1280, 720)

	assert.Equal(t, float32(0), got.X1)
	assert.Equal(t, float32(0), got.Y1)
	assert.Equal(t, float32(1280), got.X2)
	assert.Equal(t, float32(720), got.Y2)
}

func TestLetterboxTallFrame(t *testing.T) {
	lb := NewLetterbox(480, 640, 640)

	assert.Equal(t, 480, lb.Width)
	assert.Equal(t, 640, lb.Height)
	assert.Equal(t, 80, lb.OffX)
	assert.Equal(t, 0, lb.OffY)
}
