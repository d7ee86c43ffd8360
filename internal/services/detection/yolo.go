package detection

import (
	"fmt"
)

// Candidate is one raw box from a YOLO output tensor, in input-image pixels.
type Candidate struct {
	ClassID    int
	Confidence float32
	X1, Y1     float32
	X2, Y2     float32
}

// DecodeYOLO reads an anchor-free YOLOv8/YOLO11 output of shape
// [1, 4+classes, anchors]. Each column holds cx, cy, w, h followed by one
// score per class. Boxes are scaled by (sx, sy) back to frame pixels.
func DecodeYOLO(data []float32, rows, anchors int, sx, sy float32, minScore float32) ([]Candidate, error) {
	if rows < 5 {
		return nil, fmt.Errorf("yolo output has %d rows, want at least 5", rows)
	}
	if len(data) < rows*anchors {
		return nil, fmt.Errorf("yolo output has %d values, want %d", len(data), rows*anchors)
	}
	at := func(r, i int) float32 { return data[r*anchors+i] }

	var out []Candidate
	for i := 0; i < anchors; i++ {
		best, bestScore := -1, float32(0)
		for r := 4; r < rows; r++ {
			if s := at(r, i); s > bestScore {
				best, bestScore = r-4, s
			}
		}
		if best < 0 || bestScore < minScore {
			continue
		}
		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)
		out = append(out, Candidate{
			ClassID:    best,
			Confidence: bestScore,
			X1:         (cx - w/2) * sx,
			Y1:         (cy - h/2) * sy,
			X2:         (cx + w/2) * sx,
			Y2:         (cy + h/2) * sy,
		})
	}
	return out, nil
}

// ClassLabel names COCO class 0; other classes get a generic name.
func ClassLabel(id int) string {
	if id == 0 {
		return "person"
	}
	return fmt.Sprintf("class_%d", id)
}

// Letterbox maps a frame into a square network input without distorting it.
// The frame is scaled to fit and padded with black on the short side.
type Letterbox struct {
	Size   int
	Scale  float32
	Width  int // scaled content width
	Height int // scaled content height
	OffX   int
	OffY   int
}

func NewLetterbox(frameW, frameH, size int) Letterbox {
	if frameW <= 0 || frameH <= 0 {
		return Letterbox{Size: size, Scale: 1, Width: size, Height: size}
	}
	scale := min(float32(size)/float32(frameW), float32(size)/float32(frameH))
	w := min(int(float32(frameW)*scale+0.5), size)
	h := min(int(float32(frameH)*scale+0.5), size)
	return Letterbox{
		Size:   size,
		Scale:  scale,
		Width:  w,
		Height: h,
		OffX:   (size - w) / 2,
		OffY:   (size - h) / 2,
	}
}

// Unmap converts a candidate from network input pixels back to the frame
// and clamps it to the frame bounds.
func (l Letterbox) Unmap(c Candidate, frameW, frameH int) Candidate {
	fx := func(v float32) float32 { return clamp((v-float32(l.OffX))/l.Scale, float32(frameW)) }
	fy := func(v float32) float32 { return clamp((v-float32(l.OffY))/l.Scale, float32(frameH)) }
	c.X1, c.X2 = fx(c.X1), fx(c.X2)
	c.Y1, c.Y2 = fy(c.Y1), fy(c.Y2)
	return c
}

func clamp(v, limit float32) float32 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
