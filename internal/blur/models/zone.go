package models

import (
	"math"
	"time"
)

// ============================================================
// Constants
// ============================================================

const (
	DefaultBlurAmount = 8
	MinBlurAmount     = 2
	MaxBlurAmount     = 20

	// Fallback size for entries whose width/height are missing.
	DefaultSanitizeSize = 10.0

	CoordinatePixels        = "pixels"
	CoordinatePercentCenter = "percent-center"
)

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Known reports whether both dimensions are positive.
func (s Size) Known() bool {
	return s.Width > 0 && s.Height > 0
}

// ============================================================
// Blur zones
// ============================================================

// Metadata records the context a zone was saved in. ImageWidth/ImageHeight
// are the image's natural size at save time and define the zone's pixel space.
type Metadata struct {
	ImageWidth              float64   `json:"imageWidth,omitempty"`
	ImageHeight             float64   `json:"imageHeight,omitempty"`
	TimestampCreated        time.Time `json:"timestampCreated"`
	TimestampUpdated        time.Time `json:"timestampUpdated,omitzero"`
	SourceImageURLOriginal  string    `json:"sourceImageUrlOriginal,omitempty"`
	SourceImageURLCanonical string    `json:"sourceImageUrlCanonical,omitempty"`
	EditorVersion           string    `json:"editorVersion,omitempty"`
	CoordinateSpace         string    `json:"coordinateSpace,omitempty"`
}

// Zone is one rectangular blur region. X/Y is the top-left corner of the
// unrotated rectangle; rotation is applied about the center.
type Zone struct {
	ID         string   `json:"id"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	Rotation   float64  `json:"rotation"`
	BlurAmount int      `json:"blurAmount"`
	Metadata   Metadata `json:"metadata"`
}

// ZoneSet maps a canonical image key to its zones in z-order.
type ZoneSet map[string][]Zone

// Center returns the rotation pivot.
func (z Zone) Center() Point {
	return Point{X: z.X + z.Width/2, Y: z.Y + z.Height/2}
}

// Valid reports whether the zone satisfies the at-rest invariants.
func (z Zone) Valid() bool {
	for _, v := range []float64{z.X, z.Y, z.Width, z.Height, z.Rotation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return z.Width > 0 && z.Height > 0 &&
		z.Rotation >= 0 && z.Rotation < 360 &&
		z.BlurAmount >= MinBlurAmount && z.BlurAmount <= MaxBlurAmount
}

// Scaled returns a copy with position and size multiplied by sx/sy.
func (z Zone) Scaled(sx, sy float64) Zone {
	z.X *= sx
	z.Y *= sy
	z.Width *= sx
	z.Height *= sy
	return z
}

// CloneZones returns an independent copy of zones.
func CloneZones(zones []Zone) []Zone {
	if zones == nil {
		return nil
	}
	out := make([]Zone, len(zones))
	copy(out, zones)
	return out
}

// ClampBlurAmount limits v to [MinBlurAmount, MaxBlurAmount].
func ClampBlurAmount(v int) int {
	if v < MinBlurAmount {
		return MinBlurAmount
	}
	if v > MaxBlurAmount {
		return MaxBlurAmount
	}
	return v
}

// NormalizeRotation maps degrees into [0, 360). 360 and -0 become 0; NaN and
// infinities become 0.
func NormalizeRotation(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 || r == 0 {
		return 0
	}
	return r
}

// ============================================================
// Display output
// ============================================================

// DisplayRect positions a zone as percentages of its image.
type DisplayRect struct {
	ZoneID     string  `json:"zoneId,omitempty"`
	LeftPct    float64 `json:"leftPct"`
	TopPct     float64 `json:"topPct"`
	WidthPct   float64 `json:"widthPct"`
	HeightPct  float64 `json:"heightPct"`
	Rotation   float64 `json:"rotation"`
	BlurAmount int     `json:"blurAmount"`
}
