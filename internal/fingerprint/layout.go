package fingerprint

import (
	"math"
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	centerTolerance   = 0.05
	centerMaxWidth    = 0.8
	splitMinMediaFrac = 0.25
)

// Layout and alignment values.
const (
	LayoutCentered = "centered"
	LayoutSplit    = "split"
	LayoutLeft     = "left"
	LayoutUnknown  = "unknown"

	AlignCenter  = "center"
	AlignLeft    = "left"
	AlignRight   = "right"
	AlignUnknown = "unknown"
)

// textAlignOf returns the nearest declared text-align.
func textAlignOf(n *render.Node) string {
	for a := n; a != nil; a = a.Parent() {
		if v := strings.ToLower(strings.TrimSpace(a.Style.TextAlign)); v != "" {
			return v
		}
	}
	return ""
}

// headlineAlignment prefers declared centering, then geometric centering of
// a headline narrower than most of the viewport.
func headlineAlignment(h *headline, vp render.Viewport) string {
	if h == nil {
		return AlignUnknown
	}
	align := textAlignOf(h.node)
	if align == "center" {
		return AlignCenter
	}
	if h.box.Width < vp.Width*centerMaxWidth && math.Abs(h.box.CenterX()-vp.Width/2) <= vp.Width*centerTolerance {
		return AlignCenter
	}
	if align == "right" || align == "end" {
		return AlignRight
	}
	return AlignLeft
}

// heroLayout: split when the largest media sits beside the headline, else
// centered or left by alignment.
func heroLayout(h *headline, align string, media []*render.Node, vp render.Viewport) string {
	if h == nil {
		return LayoutUnknown
	}
	if len(media) > 0 {
		m := media[0].Box
		beside := m.Left >= h.box.Right()-1 || m.Right() <= h.box.Left+1
		overlapY := m.Top < h.box.Bottom() && m.Bottom() > h.box.Top
		if beside && overlapY && m.Width >= vp.Width*splitMinMediaFrac {
			return LayoutSplit
		}
	}
	if align == AlignCenter {
		return LayoutCentered
	}
	return LayoutLeft
}

func heightRatio(bottom float64, vp render.Viewport) float64 {
	if vp.Height <= 0 {
		return 0
	}
	return math.Round(bottom/vp.Height*1000) / 1000
}
