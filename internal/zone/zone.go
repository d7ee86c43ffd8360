package zone

import (
	"intrusion-worker-go/internal/models"
)

// Zone is a validated polygon. It is immutable once built.
type Zone struct {
	points []models.Point
}

// New builds a zone without clipping. Callers handling client input use Validator.
func New(points []models.Point) Zone {
	cp := make([]models.Point, len(points))
	copy(cp, points)
	return Zone{points: cp}
}

// Points returns a copy of the vertices in order.
func (z Zone) Points() []models.Point {
	cp := make([]models.Point, len(z.points))
	copy(cp, z.points)
	return cp
}

func (z Zone) Len() int { return len(z.points) }

func (z Zone) Empty() bool { return len(z.points) < MinPoints }

// Contains reports whether (px, py) is inside the polygon or on its boundary.
// Even-odd ray casting; the crossing test avoids division so results are exact
// for integer vertices and half-integer query points.
func (z Zone) Contains(px, py float64) bool {
	n := len(z.points)
	if n < MinPoints {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		ax, ay := float64(z.points[j].X), float64(z.points[j].Y)
		bx, by := float64(z.points[i].X), float64(z.points[i].Y)

		if onSegment(ax, ay, bx, by, px, py) {
			return true
		}
		if (ay > py) == (by > py) {
			continue
		}
		lhs := (px - ax) * (by - ay)
		rhs := (bx - ax) * (py - ay)
		if by > ay {
			if lhs < rhs {
				inside = !inside
			}
		} else if lhs > rhs {
			inside = !inside
		}
	}
	return inside
}

func onSegment(ax, ay, bx, by, px, py float64) bool {
	cross := (bx-ax)*(py-ay) - (by-ay)*(px-ax)
	if cross != 0 {
		return false
	}
	return px >= min(ax, bx) && px <= max(ax, bx) && py >= min(ay, by) && py <= max(ay, by)
}

// Classify reports whether a detection is inside the zone: its centroid or
// its bottom-center lies within the polygon.
func Classify(det models.Detection, z Zone) bool {
	if z.Contains(det.BBox.Centroid()) {
		return true
	}
	return z.Contains(det.BBox.BottomCenter())
}
