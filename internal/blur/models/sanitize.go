package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================
// Sanitize
// ============================================================

// Sanitize converts a loosely typed zone record (as decoded from JSON) into
// a Zone. Missing fields take defaults; fields that are present but cannot be
// coerced to numbers, and zones without a positive size, are rejected with
// ok == false.
func Sanitize(raw map[string]any, now time.Time) (Zone, bool) {
	if raw == nil {
		return Zone{}, false
	}

	x, ok := coerceField(raw, "x", 0)
	if !ok {
		return Zone{}, false
	}
	y, ok := coerceField(raw, "y", 0)
	if !ok {
		return Zone{}, false
	}
	w, ok := coerceField(raw, "width", DefaultSanitizeSize)
	if !ok {
		return Zone{}, false
	}
	h, ok := coerceField(raw, "height", DefaultSanitizeSize)
	if !ok {
		return Zone{}, false
	}
	if w <= 0 || h <= 0 {
		return Zone{}, false
	}

	rotation, ok := coerceField(raw, "rotation", 0)
	if !ok {
		rotation = 0
	}
	blur, ok := coerceField(raw, "blurAmount", DefaultBlurAmount)
	if !ok {
		blur = DefaultBlurAmount
	}
	// clamp before converting; huge values overflow int
	blur = math.Max(MinBlurAmount, math.Min(MaxBlurAmount, blur))

	id, _ := raw["id"].(string)
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	return Zone{
		ID:         id,
		X:          x,
		Y:          y,
		Width:      w,
		Height:     h,
		Rotation:   NormalizeRotation(rotation),
		BlurAmount: ClampBlurAmount(int(math.Round(blur))),
		Metadata:   sanitizeMetadata(raw["metadata"], now),
	}, true
}

// SanitizeAll sanitizes every entry and drops the ones that fail.
func SanitizeAll(raws []any, now time.Time) []Zone {
	zones := make([]Zone, 0, len(raws))
	for _, r := range raws {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if z, ok := Sanitize(m, now); ok {
			zones = append(zones, z)
		}
	}
	return zones
}

// DecodeZones parses a JSON array of zones, dropping malformed entries. It
// only fails when data is not a JSON array.
func DecodeZones(data []byte, now time.Time) ([]Zone, error) {
	var raws []any
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode zones: %w", err)
	}
	return SanitizeAll(raws, now), nil
}

// DecodeZoneSet parses a JSON object of key -> zone array. Entries whose
// value is not an array are skipped; malformed zones are dropped.
func DecodeZoneSet(data []byte, now time.Time) (ZoneSet, error) {
	var raws map[string]any
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode zone set: %w", err)
	}
	set := make(ZoneSet, len(raws))
	for key, v := range raws {
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		if zones := SanitizeAll(arr, now); len(zones) > 0 {
			set[key] = zones
		}
	}
	return set, nil
}

// ============================================================
// Helpers
// ============================================================

func sanitizeMetadata(v any, now time.Time) Metadata {
	md := Metadata{TimestampCreated: now}
	m, ok := v.(map[string]any)
	if !ok {
		return md
	}
	if w, ok := coerceField(m, "imageWidth", 0); ok && w > 0 {
		md.ImageWidth = w
	}
	if h, ok := coerceField(m, "imageHeight", 0); ok && h > 0 {
		md.ImageHeight = h
	}
	if ts, ok := coerceTime(m["timestampCreated"]); ok {
		md.TimestampCreated = ts
	}
	if ts, ok := coerceTime(m["timestampUpdated"]); ok {
		md.TimestampUpdated = ts
	}
	md.SourceImageURLOriginal, _ = m["sourceImageUrlOriginal"].(string)
	md.SourceImageURLCanonical, _ = m["sourceImageUrlCanonical"].(string)
	md.EditorVersion, _ = m["editorVersion"].(string)
	if space, _ := m["coordinateSpace"].(string); space == CoordinatePercentCenter || space == CoordinatePixels {
		md.CoordinateSpace = space
	}
	return md
}

// coerceField returns def when the key is absent or null, and ok == false
// when the value is present but not numeric.
func coerceField(m map[string]any, key string, def float64) (float64, bool) {
	v, present := m[key]
	if !present || v == nil {
		return def, true
	}
	return coerceNumber(v)
}

func coerceNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// coerceTime accepts RFC 3339 strings or unix milliseconds.
func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil || parsed.IsZero() {
			return time.Time{}, false
		}
		return parsed, true
	case float64:
		if t <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(t)).UTC(), true
	}
	return time.Time{}, false
}
