// Package overlay turns stored zones into passive, percentage-positioned
// overlays. Nothing here is interactive.
package overlay

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"bodyshop-gallery/internal/blur/models"
	"bodyshop-gallery/internal/blur/paths"
	"bodyshop-gallery/internal/common/logging"
)

// ============================================================
// Display rects
// ============================================================

// ComputeDisplayRects converts zones into percentages of the image they were
// drawn on. Pixel zones use their saved image size as the basis, falling back
// to rendered; zones with no usable basis are skipped. Percent-center zones
// are already relative and only move their origin to the top-left.
func ComputeDisplayRects(zones []models.Zone, rendered models.Size) []models.DisplayRect {
	out := make([]models.DisplayRect, 0, len(zones))
	for _, z := range zones {
		if !(z.Width > 0 && z.Height > 0) {
			continue
		}
		rect := models.DisplayRect{
			ZoneID:     z.ID,
			Rotation:   models.NormalizeRotation(z.Rotation),
			BlurAmount: models.ClampBlurAmount(z.BlurAmount),
		}

		if z.Metadata.CoordinateSpace == models.CoordinatePercentCenter {
			rect.LeftPct = z.X - z.Width/2
			rect.TopPct = z.Y - z.Height/2
			rect.WidthPct, rect.HeightPct = z.Width, z.Height
			out = append(out, rect)
			continue
		}

		basis := models.Size{Width: z.Metadata.ImageWidth, Height: z.Metadata.ImageHeight}
		if !basis.Known() {
			basis = rendered
		}
		if !basis.Known() {
			continue
		}
		sx, sy := 100/basis.Width, 100/basis.Height
		rect.LeftPct = z.X * sx
		rect.TopPct = z.Y * sy
		rect.WidthPct = z.Width * sx
		rect.HeightPct = z.Height * sy
		out = append(out, rect)
	}
	return out
}

// ============================================================
// Renderer
// ============================================================

// Renderer resolves an image reference against a zone set and lays out its
// overlays.
type Renderer struct {
	normalizer *paths.Normalizer
	logger     *slog.Logger
}

func NewRenderer(n *paths.Normalizer, logger *slog.Logger) *Renderer {
	if n == nil {
		n = paths.New(paths.Options{Logger: logger})
	}
	return &Renderer{normalizer: n, logger: logging.OrNop(logger)}
}

// Overlay is the result of laying out one image.
type Overlay struct {
	paths.Resolution
	Rects []models.DisplayRect `json:"rects"`
}

// Render finds the zones for raw in store and computes their display rects.
// An unmatched image yields an Overlay with no rects.
func (r *Renderer) Render(raw string, store models.ZoneSet, rendered models.Size) Overlay {
	return r.RenderFor(raw, "", store, rendered)
}

// RenderFor is Render with item as the page context identifier.
func (r *Renderer) RenderFor(raw, item string, store models.ZoneSet, rendered models.Size) Overlay {
	res, ok := r.normalizer.ResolveFor(raw, item, store)
	if !ok {
		return Overlay{Resolution: res, Rects: []models.DisplayRect{}}
	}
	zones := models.CloneZones(store[res.MatchedKey])
	rects := ComputeDisplayRects(zones, rendered)
	if skipped := len(zones) - len(rects); skipped > 0 {
		r.logger.Debug(logging.EventZonesDropped, "key", res.Key, "dropped", skipped)
	}
	return Overlay{Resolution: res, Rects: rects}
}

// ============================================================
// SVG preview
// ============================================================

// SVGOptions tunes RenderSVG.
type SVGOptions struct {
	// ImageHref, when set, embeds the image and blurs the zone areas of a
	// second copy; otherwise zones are drawn as translucent boxes.
	ImageHref string
	// Rendered converts blur radii from pixels into viewBox units.
	Rendered models.Size
}

// RenderSVG builds a standalone SVG on a 0..100 viewBox.
func RenderSVG(rects []models.DisplayRect, opts SVGOptions) string {
	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100" preserveAspectRatio="none">`)
	builder.WriteString("\n")

	href := html.EscapeString(opts.ImageHref)
	if href != "" {
		builder.WriteString("  " + imageElement(href, "") + "\n")
	}

	for i, rect := range rects {
		for _, elem := range renderZone(i, rect, href, opts.Rendered) {
			builder.WriteString("  ")
			builder.WriteString(elem)
			builder.WriteString("\n")
		}
	}

	builder.WriteString(`</svg>`)
	return builder.String()
}

func renderZone(i int, rect models.DisplayRect, href string, rendered models.Size) []string {
	f := models.FormatNumber
	shape := fmt.Sprintf(`x="%s" y="%s" width="%s" height="%s"`,
		f(rect.LeftPct), f(rect.TopPct), f(rect.WidthPct), f(rect.HeightPct))
	transform := ""
	if rect.Rotation != 0 {
		cx := rect.LeftPct + rect.WidthPct/2
		cy := rect.TopPct + rect.HeightPct/2
		transform = fmt.Sprintf(` transform="rotate(%s %s %s)"`, f(rect.Rotation), f(cx), f(cy))
	}

	if href == "" {
		return []string{fmt.Sprintf(`<rect class="blur-zone" data-blur="%d" %s%s fill="#808080" fill-opacity="0.6" />`,
			rect.BlurAmount, shape, transform)}
	}

	id := fmt.Sprintf("zone-%d", i)
	return []string{
		fmt.Sprintf(`<defs><clipPath id="%s-clip"><rect %s%s /></clipPath><filter id="%s-blur"><feGaussianBlur stdDeviation="%s" /></filter></defs>`,
			id, shape, transform, id, f(blurDeviation(rect.BlurAmount, rendered))),
		fmt.Sprintf(`<g clip-path="url(#%s-clip)">%s</g>`, id, imageElement(href, id+"-blur")),
	}
}

func imageElement(href, filter string) string {
	attr := ""
	if filter != "" {
		attr = fmt.Sprintf(` filter="url(#%s)"`, filter)
	}
	return fmt.Sprintf(`<image href="%s" x="0" y="0" width="100" height="100" preserveAspectRatio="none"%s />`, href, attr)
}

// blurDeviation maps a CSS blur radius in pixels into viewBox units.
func blurDeviation(blurPx int, rendered models.Size) float64 {
	if rendered.Width > 0 {
		return float64(blurPx) * 100 / rendered.Width
	}
	return float64(blurPx) / 10
}
