package models

import (
	"math"
	"strconv"
	"strings"
)

// Style returns the inline CSS that positions the rect over its image.
func (r DisplayRect) Style() string {
	var b strings.Builder
	b.WriteString("left: " + FormatPercent(r.LeftPct) + "; ")
	b.WriteString("top: " + FormatPercent(r.TopPct) + "; ")
	b.WriteString("width: " + FormatPercent(r.WidthPct) + "; ")
	b.WriteString("height: " + FormatPercent(r.HeightPct) + "; ")
	if r.Rotation != 0 {
		b.WriteString("transform: rotate(" + FormatNumber(r.Rotation) + "deg); transform-origin: center center; ")
	}
	blur := "blur(" + strconv.Itoa(r.BlurAmount) + "px)"
	b.WriteString("backdrop-filter: " + blur + "; -webkit-backdrop-filter: " + blur + ";")
	return b.String()
}

// FormatNumber renders v with at most four decimals and no trailing zeros.
func FormatNumber(v float64) string {
	v = math.Round(v*1e4) / 1e4
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func FormatPercent(v float64) string {
	return FormatNumber(v) + "%"
}
