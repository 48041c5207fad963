// Package geometry holds the pure coordinate math behind the blur editor:
// rotated-rectangle containment, handle hit-testing, rotation and resize.
// Every function is deterministic and free of side effects.
package geometry

import (
	"math"

	"bodyshop-gallery/internal/blur/models"
)

// ============================================================
// Constants
// ============================================================

const (
	HandleHalfSize         = 10.0 // corner handle hit box half-width
	RotationHandleOffset   = 20.0 // distance above the top edge
	RotationHandleHalfSize = 2 * HandleHalfSize
	MinResizeSize          = 20.0
)

// Handle identifies a manipulation handle on a zone.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
	HandleRotation
)

func (h Handle) String() string {
	switch h {
	case HandleTopLeft:
		return "top-left"
	case HandleTopRight:
		return "top-right"
	case HandleBottomLeft:
		return "bottom-left"
	case HandleBottomRight:
		return "bottom-right"
	case HandleRotation:
		return "rotation"
	default:
		return "none"
	}
}

// IsCorner reports whether h is one of the four resize handles.
func (h Handle) IsCorner() bool {
	return h >= HandleTopLeft && h <= HandleBottomRight
}

// ============================================================
// Basic math
// ============================================================

func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// AngleDegrees returns the angle of (x,y) around (cx,cy) in (-180, 180].
func AngleDegrees(cx, cy, x, y float64) float64 {
	a := math.Atan2(y-cy, x-cx) * 180 / math.Pi
	if a <= -180 {
		a += 360
	}
	return a
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	return models.NormalizeRotation(deg)
}

// rotate turns (x,y) about the origin by deg degrees (screen coordinates,
// y down, positive = clockwise on screen).
func rotate(x, y, deg float64) (float64, float64) {
	if deg == 0 {
		return x, y
	}
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return x*cos - y*sin, x*sin + y*cos
}

// ToLocal moves a point into the zone's frame: origin at the center,
// axes aligned with the unrotated rectangle.
func ToLocal(px, py float64, z models.Zone) (float64, float64) {
	c := z.Center()
	return rotate(px-c.X, py-c.Y, -NormalizeDegrees(z.Rotation))
}

// ToWorld is the inverse of ToLocal.
func ToWorld(lx, ly float64, z models.Zone) (float64, float64) {
	c := z.Center()
	x, y := rotate(lx, ly, NormalizeDegrees(z.Rotation))
	return x + c.X, y + c.Y
}

// ============================================================
// Containment & hit-testing
// ============================================================

// PointInRotatedRect reports whether (px,py) lies inside the zone, edges
// included.
func PointInRotatedRect(px, py float64, z models.Zone) bool {
	if NormalizeDegrees(z.Rotation) == 0 {
		return px >= z.X && px <= z.X+z.Width && py >= z.Y && py <= z.Y+z.Height
	}
	lx, ly := ToLocal(px, py, z)
	return math.Abs(lx) <= z.Width/2 && math.Abs(ly) <= z.Height/2
}

// Corners returns the rotated corner positions in handle order:
// top-left, top-right, bottom-left, bottom-right.
func Corners(z models.Zone) [4]models.Point {
	hw, hh := z.Width/2, z.Height/2
	local := [4][2]float64{{-hw, -hh}, {hw, -hh}, {-hw, hh}, {hw, hh}}
	var out [4]models.Point
	for i, p := range local {
		x, y := ToWorld(p[0], p[1], z)
		out[i] = models.Point{X: x, Y: y}
	}
	return out
}

// RotationHandlePosition returns the rotation handle, a fixed offset above
// the unrotated top-center, rotated into place.
func RotationHandlePosition(z models.Zone) models.Point {
	x, y := ToWorld(0, -z.Height/2-RotationHandleOffset, z)
	return models.Point{X: x, Y: y}
}

// HitTestHandle returns the handle under (px,py). Corners win over the
// rotation handle.
func HitTestHandle(px, py float64, z models.Zone) Handle {
	corners := Corners(z)
	kinds := [4]Handle{HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight}
	for i, c := range corners {
		if inBox(px, py, c, HandleHalfSize) {
			return kinds[i]
		}
	}
	if inBox(px, py, RotationHandlePosition(z), RotationHandleHalfSize) {
		return HandleRotation
	}
	return HandleNone
}

func inBox(px, py float64, c models.Point, half float64) bool {
	return math.Abs(px-c.X) <= half && math.Abs(py-c.Y) <= half
}

// ============================================================
// Gestures
// ============================================================

// ComputeRotation returns the zone rotation for a pointer at (px,py), given
// the angle offset recorded when the rotation handle was grabbed.
func ComputeRotation(cx, cy, px, py, grabAngleOffset float64) float64 {
	return NormalizeDegrees(AngleDegrees(cx, cy, px, py) - grabAngleOffset)
}

// ResizeFromPointer returns the new size for a corner drag. Resizing is
// symmetric about the center, whichever corner was grabbed.
func ResizeFromPointer(z models.Zone, px, py float64) (width, height float64) {
	lx, ly := ToLocal(px, py, z)
	width = math.Max(2*math.Abs(lx), MinResizeSize)
	height = math.Max(2*math.Abs(ly), MinResizeSize)
	return width, height
}

// NormalizeRect turns an anchor plus a possibly negative extent into a
// top-left rectangle with positive size.
func NormalizeRect(x, y, w, h float64) (nx, ny, nw, nh float64) {
	nx, nw = x, w
	if w < 0 {
		nx, nw = x+w, -w
	}
	ny, nh = y, h
	if h < 0 {
		ny, nh = y+h, -h
	}
	return nx, ny, nw, nh
}

// ClampToBounds keeps an axis-aligned w×h rectangle at (x,y) inside a
// bounds.Width×bounds.Height surface. Unknown bounds leave the point as is.
func ClampToBounds(x, y, w, h float64, bounds models.Size) (float64, float64) {
	if !bounds.Known() {
		return x, y
	}
	return clamp(x, 0, math.Max(0, bounds.Width-w)), clamp(y, 0, math.Max(0, bounds.Height-h))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
