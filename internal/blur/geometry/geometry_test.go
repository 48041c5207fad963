package geometry

import (
	"math"
	"testing"

	"bodyshop-gallery/internal/blur/models"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6
}

func TestDistance(t *testing.T) {
	if got := Distance(0, 0, 3, 4); got != 5 {
		t.Errorf("Distance = %v, want 5", got)
	}
}

func TestAngleDegrees(t *testing.T) {
	tests := []struct {
		x, y float64
		want float64
	}{
		{1, 0, 0},
		{0, 1, 90},
		{-1, 0, 180},
		{0, -1, -90},
		{1, 1, 45},
	}
	for _, tt := range tests {
		if got := AngleDegrees(0, 0, tt.x, tt.y); !almostEqual(got, tt.want) {
			t.Errorf("AngleDegrees(0,0,%v,%v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
	// -180 must fold to 180.
	if got := AngleDegrees(0, 0, -1, math.Copysign(0, -1)); got != 180 {
		t.Errorf("AngleDegrees at -180 boundary = %v, want 180", got)
	}
}

func TestPointInRotatedRectAxisAligned(t *testing.T) {
	z := models.Zone{X: 10, Y: 20, Width: 100, Height: 50}
	tests := []struct {
		x, y float64
		want bool
	}{
		{10, 20, true},
		{110, 70, true},
		{60, 45, true},
		{9, 45, false},
		{60, 71, false},
	}
	for _, tt := range tests {
		if got := PointInRotatedRect(tt.x, tt.y, z); got != tt.want {
			t.Errorf("PointInRotatedRect(%v,%v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestPointInRotatedRectRotated(t *testing.T) {
	// 100x20 bar centred on (100,100), rotated to vertical.
	z := models.Zone{X: 50, Y: 90, Width: 100, Height: 20, Rotation: 90}
	if !PointInRotatedRect(100, 140, z) {
		t.Error("point along rotated long axis should be inside")
	}
	if PointInRotatedRect(140, 100, z) {
		t.Error("point along original long axis should be outside after rotation")
	}

	z45 := models.Zone{X: 0, Y: 0, Width: 100, Height: 100, Rotation: 45}
	// Corner of the unrotated square is outside the rotated diamond.
	if PointInRotatedRect(2, 2, z45) {
		t.Error("original corner should be outside a 45 degree rotated square")
	}
	// Top tip of the diamond sits at (50, 50-70.7).
	if !PointInRotatedRect(50, -15, z45) {
		t.Error("point near the rotated top tip should be inside")
	}
}

func TestRotationRoundTrip(t *testing.T) {
	points := [][2]float64{{0, 0}, {50, -15}, {100, 100}, {120, 40}, {-3, 60}, {49.5, 120.2}}
	for _, r := range []float64{0, 15, 45, 90, 133.25, 270, 359} {
		z := models.Zone{X: 0, Y: 0, Width: 100, Height: 100, Rotation: r}
		zPlus := z
		zPlus.Rotation = r + 360
		zMinus := z
		zMinus.Rotation = r - 360
		for _, p := range points {
			want := PointInRotatedRect(p[0], p[1], z)
			if got := PointInRotatedRect(p[0], p[1], zPlus); got != want {
				t.Errorf("rotation %v+360 at %v: got %v, want %v", r, p, got, want)
			}
			if got := PointInRotatedRect(p[0], p[1], zMinus); got != want {
				t.Errorf("rotation %v-360 at %v: got %v, want %v", r, p, got, want)
			}
		}
	}
}

func TestLocalWorldInverse(t *testing.T) {
	z := models.Zone{X: 12, Y: 34, Width: 80, Height: 40, Rotation: 33}
	lx, ly := ToLocal(70, 10, z)
	x, y := ToWorld(lx, ly, z)
	if !almostEqual(x, 70) || !almostEqual(y, 10) {
		t.Errorf("ToWorld(ToLocal(p)) = (%v,%v), want (70,10)", x, y)
	}
}

func TestHitTestHandleAxisAligned(t *testing.T) {
	z := models.Zone{X: 100, Y: 100, Width: 200, Height: 100}
	tests := []struct {
		name string
		x, y float64
		want Handle
	}{
		{"top-left", 101, 99, HandleTopLeft},
		{"top-right", 305, 95, HandleTopRight},
		{"bottom-left", 92, 208, HandleBottomLeft},
		{"bottom-right", 300, 200, HandleBottomRight},
		{"rotation", 200, 80, HandleRotation},
		{"rotation edge of box", 215, 62, HandleRotation},
		{"centre", 200, 150, HandleNone},
		{"far away", 0, 0, HandleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HitTestHandle(tt.x, tt.y, z); got != tt.want {
				t.Errorf("HitTestHandle(%v,%v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestHitTestHandleRotated(t *testing.T) {
	// 200x100 centred on (200,150), rotated 90 degrees clockwise: the
	// unrotated top-left corner (-100,-50) lands on (250, 50).
	z := models.Zone{X: 100, Y: 100, Width: 200, Height: 100, Rotation: 90}
	if got := HitTestHandle(250, 50, z); got != HandleTopLeft {
		t.Errorf("rotated top-left = %v, want top-left", got)
	}
	// Rotation handle: local (0,-70) -> world (270,150).
	if got := HitTestHandle(270, 150, z); got != HandleRotation {
		t.Errorf("rotated rotation handle = %v, want rotation", got)
	}
	// The unrotated handle position is no longer a hit.
	if got := HitTestHandle(200, 80, z); got != HandleNone {
		t.Errorf("stale rotation handle position = %v, want none", got)
	}
}

func TestHandleHelpers(t *testing.T) {
	if !HandleBottomRight.IsCorner() || HandleRotation.IsCorner() || HandleNone.IsCorner() {
		t.Error("IsCorner classification is wrong")
	}
	if HandleTopRight.String() != "top-right" || HandleNone.String() != "none" {
		t.Error("unexpected Handle names")
	}
}

func TestComputeRotation(t *testing.T) {
	// Grabbed at 90 degrees while zone rotation was 0: offset 90.
	offset := AngleDegrees(0, 0, 0, 10) - 0
	if got := ComputeRotation(0, 0, 0, 10, offset); !almostEqual(got, 0) {
		t.Errorf("no movement rotation = %v, want 0", got)
	}
	if got := ComputeRotation(0, 0, -10, 0, offset); !almostEqual(got, 90) {
		t.Errorf("quarter turn = %v, want 90", got)
	}
	if got := ComputeRotation(0, 0, 10, 0, offset); !almostEqual(got, 270) {
		t.Errorf("negative quarter turn = %v, want 270", got)
	}
}

func TestResizeFromPointerSymmetry(t *testing.T) {
	for _, r := range []float64{0, 30, 90, 200} {
		z := models.Zone{X: 40, Y: 60, Width: 120, Height: 80, Rotation: r}
		before := z.Center()
		w, h := ResizeFromPointer(z, 250, 10)
		z.X, z.Y = before.X-w/2, before.Y-h/2
		z.Width, z.Height = w, h
		after := z.Center()
		if math.Abs(after.X-before.X) > eps || math.Abs(after.Y-before.Y) > eps {
			t.Errorf("rotation %v: centre moved from %+v to %+v", r, before, after)
		}
	}
}

func TestResizeFromPointerValues(t *testing.T) {
	z := models.Zone{X: 0, Y: 0, Width: 100, Height: 100}
	w, h := ResizeFromPointer(z, 120, 80)
	if w != 140 || h != 60 {
		t.Errorf("size = %vx%v, want 140x60", w, h)
	}
	w, h = ResizeFromPointer(z, 52, 50)
	if w != MinResizeSize || h != MinResizeSize {
		t.Errorf("size = %vx%v, want minimum %v", w, h, MinResizeSize)
	}
}

func TestNormalizeRect(t *testing.T) {
	x, y, w, h := NormalizeRect(100, 100, -60, -40)
	if x != 40 || y != 60 || w != 60 || h != 40 {
		t.Errorf("NormalizeRect = (%v,%v,%v,%v), want (40,60,60,40)", x, y, w, h)
	}
	x, y, w, h = NormalizeRect(10, 10, 5, 6)
	if x != 10 || y != 10 || w != 5 || h != 6 {
		t.Errorf("positive rect changed: (%v,%v,%v,%v)", x, y, w, h)
	}
}

func TestClampToBounds(t *testing.T) {
	bounds := models.Size{Width: 400, Height: 300}
	tests := []struct {
		x, y, wantX, wantY float64
	}{
		{-10, -5, 0, 0},
		{350, 280, 300, 250},
		{50, 60, 50, 60},
	}
	for _, tt := range tests {
		x, y := ClampToBounds(tt.x, tt.y, 100, 50, bounds)
		if x != tt.wantX || y != tt.wantY {
			t.Errorf("ClampToBounds(%v,%v) = (%v,%v), want (%v,%v)", tt.x, tt.y, x, y, tt.wantX, tt.wantY)
		}
	}
	x, y := ClampToBounds(-10, 999, 100, 50, models.Size{})
	if x != -10 || y != 999 {
		t.Errorf("unknown bounds should not clamp, got (%v,%v)", x, y)
	}
}
