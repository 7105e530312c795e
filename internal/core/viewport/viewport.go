// Package viewport maps continuous time to pixel space under zoom and pan.
//
// Viewport is a value type: every transform returns a new Viewport and leaves
// the receiver untouched, so callers own their state explicitly.
package viewport

import (
	"math"

	"github.com/penwyp/go-activity-monitor/internal/core/constants"
)

// Viewport is the visible time window expressed as a pixel-to-time mapping.
type Viewport struct {
	VisibleStartMs float64 `json:"visibleStartMs"`
	MsPerPixel     float64 `json:"msPerPixel"`
	WidthPx        int     `json:"widthPx"`
	GlueToNow      bool    `json:"glueToNow"`
}

// New creates a viewport showing the span [startMs, endMs] across widthPx pixels.
func New(startMs, endMs float64, widthPx int) Viewport {
	if widthPx < 1 {
		widthPx = 1
	}
	if endMs < startMs {
		startMs, endMs = endMs, startMs
	}
	return Viewport{
		VisibleStartMs: startMs,
		MsPerPixel:     ClampMsPerPixel((endMs - startMs) / float64(widthPx)),
		WidthPx:        widthPx,
	}
}

// NewGlued creates a viewport whose right edge is pinned to nowMs.
func NewGlued(nowMs, spanMs float64, widthPx int) Viewport {
	v := New(nowMs-spanMs, nowMs, widthPx)
	v.GlueToNow = true
	return v.Tick(nowMs)
}

// ClampMsPerPixel bounds a zoom level to the supported range. NaN maps to the minimum.
func ClampMsPerPixel(msPerPixel float64) float64 {
	if math.IsNaN(msPerPixel) || msPerPixel < constants.MinMsPerPixel {
		return constants.MinMsPerPixel
	}
	if msPerPixel > constants.MaxMsPerPixel {
		return constants.MaxMsPerPixel
	}
	return msPerPixel
}

// TimeToPixel maps an instant to a horizontal pixel offset.
func (v Viewport) TimeToPixel(ms float64) float64 {
	return (ms - v.VisibleStartMs) / v.MsPerPixel
}

// PixelToTime maps a horizontal pixel offset to an instant.
func (v Viewport) PixelToTime(px float64) float64 {
	return v.VisibleStartMs + px*v.MsPerPixel
}

// VisibleEndMs is the instant at the right edge.
func (v Viewport) VisibleEndMs() float64 {
	return v.VisibleStartMs + float64(v.WidthPx)*v.MsPerPixel
}

// SpanMs is the visible duration.
func (v Viewport) SpanMs() float64 {
	return float64(v.WidthPx) * v.MsPerPixel
}

// Range returns the visible [start, end].
func (v Viewport) Range() (float64, float64) {
	return v.VisibleStartMs, v.VisibleEndMs()
}

// BufferedRange widens the visible range by one full viewport on each side.
func (v Viewport) BufferedRange() (float64, float64) {
	span := v.SpanMs()
	return v.VisibleStartMs - span, v.VisibleEndMs() + span
}

// ZoomAt scales msPerPixel by factor keeping the instant under pixelX fixed.
// While glued to now the anchor is the right edge regardless of pixelX.
func (v Viewport) ZoomAt(pixelX, factor float64) Viewport {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return v
	}
	if v.GlueToNow {
		pixelX = float64(v.WidthPx)
	}

	anchor := v.PixelToTime(pixelX)
	v.MsPerPixel = ClampMsPerPixel(v.MsPerPixel * factor)
	v.VisibleStartMs = anchor - pixelX*v.MsPerPixel
	return v
}

// PanByPixels shifts the window so content moves right by dx pixels.
// It is a no-op while glued to now.
func (v Viewport) PanByPixels(dx float64) Viewport {
	if v.GlueToNow {
		return v
	}
	v.VisibleStartMs -= dx * v.MsPerPixel
	return v
}

// Resize changes the width. The start is only recomputed while glued.
func (v Viewport) Resize(widthPx int, nowMs float64) Viewport {
	if widthPx < 1 {
		widthPx = 1
	}
	v.WidthPx = widthPx
	return v.Tick(nowMs)
}

// SetGlueToNow toggles the glued mode; enabling it snaps the right edge to nowMs.
func (v Viewport) SetGlueToNow(glue bool, nowMs float64) Viewport {
	v.GlueToNow = glue
	return v.Tick(nowMs)
}

// Tick advances a glued viewport so its right edge equals nowMs.
func (v Viewport) Tick(nowMs float64) Viewport {
	if !v.GlueToNow {
		return v
	}
	v.VisibleStartMs = nowMs - float64(v.WidthPx)*v.MsPerPixel
	return v
}

// Show repositions the viewport to display [startMs, endMs] at the current width.
// External navigation releases glue-to-now.
func (v Viewport) Show(startMs, endMs float64) Viewport {
	return New(startMs, endMs, v.WidthPx)
}
