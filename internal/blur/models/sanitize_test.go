package models

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestSanitizeDefaults(t *testing.T) {
	z, ok := Sanitize(map[string]any{"x": 5.0, "y": 6.0}, testNow)
	if !ok {
		t.Fatal("Sanitize rejected a zone with only x/y")
	}
	if z.Width != DefaultSanitizeSize || z.Height != DefaultSanitizeSize {
		t.Errorf("size = %vx%v, want %vx%v", z.Width, z.Height, DefaultSanitizeSize, DefaultSanitizeSize)
	}
	if z.Rotation != 0 {
		t.Errorf("rotation = %v, want 0", z.Rotation)
	}
	if z.BlurAmount != DefaultBlurAmount {
		t.Errorf("blurAmount = %d, want %d", z.BlurAmount, DefaultBlurAmount)
	}
	if !z.Metadata.TimestampCreated.Equal(testNow) {
		t.Errorf("timestampCreated = %v, want %v", z.Metadata.TimestampCreated, testNow)
	}
	if z.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestSanitizeCoercion(t *testing.T) {
	tests := []struct {
		name   string
		raw    map[string]any
		wantOK bool
		want   Zone
	}{
		{
			name:   "numeric strings",
			raw:    map[string]any{"x": "12.5", "y": " 3 ", "width": "40", "height": 20.0},
			wantOK: true,
			want:   Zone{X: 12.5, Y: 3, Width: 40, Height: 20, BlurAmount: DefaultBlurAmount},
		},
		{
			name:   "null position defaults to origin",
			raw:    map[string]any{"x": nil, "y": nil, "width": 30.0, "height": 30.0},
			wantOK: true,
			want:   Zone{Width: 30, Height: 30, BlurAmount: DefaultBlurAmount},
		},
		{
			name:   "rotation and blur normalized",
			raw:    map[string]any{"x": 1.0, "y": 1.0, "width": 30.0, "height": 30.0, "rotation": -90.0, "blurAmount": 99.0},
			wantOK: true,
			want:   Zone{X: 1, Y: 1, Width: 30, Height: 30, Rotation: 270, BlurAmount: MaxBlurAmount},
		},
		{
			name:   "rotation 360 is zero",
			raw:    map[string]any{"width": 30.0, "height": 30.0, "rotation": 360.0, "blurAmount": 1.0},
			wantOK: true,
			want:   Zone{Width: 30, Height: 30, Rotation: 0, BlurAmount: MinBlurAmount},
		},
		{name: "non-numeric x", raw: map[string]any{"x": "left", "y": 0.0}},
		{name: "object width", raw: map[string]any{"width": map[string]any{"v": 1}}},
		{name: "zero width", raw: map[string]any{"width": 0.0, "height": 10.0}},
		{name: "negative height", raw: map[string]any{"width": 10.0, "height": -4.0}},
		{name: "NaN string", raw: map[string]any{"x": "NaN"}},
		{name: "nil map", raw: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Sanitize(tt.raw, testNow)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.X != tt.want.X || got.Y != tt.want.Y || got.Width != tt.want.Width || got.Height != tt.want.Height {
				t.Errorf("rect = (%v,%v,%v,%v), want (%v,%v,%v,%v)",
					got.X, got.Y, got.Width, got.Height, tt.want.X, tt.want.Y, tt.want.Width, tt.want.Height)
			}
			if got.Rotation != tt.want.Rotation {
				t.Errorf("rotation = %v, want %v", got.Rotation, tt.want.Rotation)
			}
			if got.BlurAmount != tt.want.BlurAmount {
				t.Errorf("blurAmount = %d, want %d", got.BlurAmount, tt.want.BlurAmount)
			}
			if !got.Valid() {
				t.Errorf("sanitized zone is not valid: %+v", got)
			}
		})
	}
}

func TestSanitizeClampsHugeBlurAmounts(t *testing.T) {
	tests := []struct {
		blur any
		want int
	}{
		{1e20, MaxBlurAmount},
		{"1e19", MaxBlurAmount},
		{3e9, MaxBlurAmount},
		{-1e20, MinBlurAmount},
		{"-9.5e18", MinBlurAmount},
		{14.4, 14},
	}
	for _, tt := range tests {
		z, ok := Sanitize(map[string]any{"width": 10.0, "height": 10.0, "blurAmount": tt.blur}, testNow)
		if !ok {
			t.Fatalf("blurAmount %v: zone rejected", tt.blur)
		}
		if z.BlurAmount != tt.want {
			t.Errorf("blurAmount %v: stored %d, want %d", tt.blur, z.BlurAmount, tt.want)
		}
	}
}

func TestSanitizeKeepsIDAndMetadata(t *testing.T) {
	raw := map[string]any{
		"id": "zone-1", "x": 1.0, "y": 2.0, "width": 3.0, "height": 4.0,
		"metadata": map[string]any{
			"imageWidth":              1600.0,
			"imageHeight":             "900",
			"timestampCreated":        float64(testNow.Add(-time.Hour).UnixMilli()),
			"sourceImageUrlOriginal":  "After-1.JPG",
			"sourceImageUrlCanonical": "/images/after-1.jpg",
			"editorVersion":           "2",
			"coordinateSpace":         "percent-center",
		},
	}
	z, ok := Sanitize(raw, testNow)
	if !ok {
		t.Fatal("Sanitize rejected a valid zone")
	}
	if z.ID != "zone-1" {
		t.Errorf("id = %q, want zone-1", z.ID)
	}
	md := z.Metadata
	if md.ImageWidth != 1600 || md.ImageHeight != 900 {
		t.Errorf("image size = %vx%v, want 1600x900", md.ImageWidth, md.ImageHeight)
	}
	if !md.TimestampCreated.Equal(testNow.Add(-time.Hour)) {
		t.Errorf("timestampCreated = %v", md.TimestampCreated)
	}
	if md.SourceImageURLCanonical != "/images/after-1.jpg" || md.EditorVersion != "2" {
		t.Errorf("unexpected metadata %+v", md)
	}
	if md.CoordinateSpace != CoordinatePercentCenter {
		t.Errorf("coordinateSpace = %q", md.CoordinateSpace)
	}
}

func TestDecodeZonesDropsMalformed(t *testing.T) {
	data := []byte(`[
		{"x": 10, "y": 10, "width": 50, "height": 40},
		{"x": "oops", "y": 1, "width": 5, "height": 5},
		"not-an-object",
		{"x": 0, "y": 0, "width": 0, "height": 10},
		{"x": 1, "y": 2, "width": 3, "height": 4, "rotation": 45}
	]`)
	zones, err := DecodeZones(data, testNow)
	if err != nil {
		t.Fatalf("DecodeZones: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(zones))
	}
	if zones[1].Rotation != 45 {
		t.Errorf("second zone rotation = %v, want 45", zones[1].Rotation)
	}

	if _, err := DecodeZones([]byte(`{"x":1}`), testNow); err == nil {
		t.Error("expected an error for a non-array blob")
	}
}

func TestDecodeZoneSet(t *testing.T) {
	data := []byte(`{
		"/images/a.jpg": [{"x": 1, "y": 1, "width": 20, "height": 20}],
		"/images/b.jpg": "corrupt",
		"/images/c.jpg": [{"x": "bad"}]
	}`)
	set, err := DecodeZoneSet(data, testNow)
	if err != nil {
		t.Fatalf("DecodeZoneSet: %v", err)
	}
	if len(set) != 1 || len(set["/images/a.jpg"]) != 1 {
		t.Errorf("unexpected set %+v", set)
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := map[float64]float64{
		0: 0, 360: 0, 720: 0, -360: 0, 45: 45, 405: 45, -45: 315, 359.5: 359.5,
	}
	for in, want := range tests {
		if got := NormalizeRotation(in); got != want {
			t.Errorf("NormalizeRotation(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestClampBlurAmount(t *testing.T) {
	tests := map[int]int{999: 20, -5: 2, 2: 2, 20: 20, 8: 8}
	for in, want := range tests {
		if got := ClampBlurAmount(in); got != want {
			t.Errorf("ClampBlurAmount(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestZoneScaledAndCenter(t *testing.T) {
	z := Zone{X: 10, Y: 20, Width: 30, Height: 40}
	c := z.Center()
	if c.X != 25 || c.Y != 40 {
		t.Errorf("center = %+v, want (25,40)", c)
	}
	s := z.Scaled(2, 0.5)
	if s.X != 20 || s.Y != 10 || s.Width != 60 || s.Height != 20 {
		t.Errorf("scaled = %+v", s)
	}
}
