package fingerprint

import (
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	heroCapFactor      = 1.15
	wrapperDepthFactor = 1.5
	wrapperMaxChildren = 3
)

var nonRendered = map[string]bool{
	"script": true, "style": true, "link": true, "meta": true,
	"noscript": true, "template": true, "head": true, "title": true,
}

// topLevelSections returns the direct children of the content container. A
// container with few children is usually an SPA root wrapper, so any child
// taller than 1.5 viewports is replaced by its own children.
func topLevelSections(body *render.Node, vp render.Viewport) []*render.Node {
	if body == nil {
		return nil
	}
	kids := renderedChildren(body)
	if len(kids) > wrapperMaxChildren {
		return kids
	}
	out := make([]*render.Node, 0, len(kids))
	for _, k := range kids {
		if k.Box.Height > wrapperDepthFactor*vp.Height {
			out = append(out, renderedChildren(k)...)
			continue
		}
		out = append(out, k)
	}
	return out
}

func renderedChildren(n *render.Node) []*render.Node {
	var out []*render.Node
	for _, c := range n.ElementChildren() {
		if !nonRendered[c.Tag] {
			out = append(out, c)
		}
	}
	return out
}

// HeroBoundary computes heroBottom: the deepest bottom edge among top-level
// sections that start above 1.15 viewport heights and reach on-screen,
// capped at that same line. It depends on section geometry only.
func HeroBoundary(snap *render.Snapshot) float64 {
	return heroBottom(topLevelSections(snap.Body(), snap.Viewport), snap.Viewport)
}

func heroBottom(sections []*render.Node, vp render.Viewport) float64 {
	limit := heroCapFactor * vp.Height
	best := 0.0
	found := false
	for _, s := range sections {
		if s.Box.Top >= limit || s.Box.Bottom() <= 0 {
			continue
		}
		b := s.Box.Bottom()
		if b > limit {
			b = limit
		}
		if !found || b > best {
			best = b
			found = true
		}
	}
	if !found {
		return vp.Height
	}
	return best
}

// heroSet is the filtered node set every detector reads: visible elements
// overlapping the hero band, in document order.
type heroSet struct {
	snap   *render.Snapshot
	vp     render.Viewport
	bottom float64
	// all visible hero elements, chrome included
	nodes []*render.Node
	// nodes outside nav/footer/legal regions
	content []*render.Node
	// normalised text of content nodes
	text string
}

func newHeroSet(snap *render.Snapshot, bottom float64) *heroSet {
	hs := &heroSet{snap: snap, vp: snap.Viewport, bottom: bottom}
	body := snap.Body()
	var parts []string
	body.Walk(func(n *render.Node) bool {
		if strings.EqualFold(n.Style.Display, "none") || (n.Style.Opacity != "" && n.Style.OpacityValue() <= 0) {
			return false
		}
		if nonRendered[n.Tag] {
			return false
		}
		if n == body || !isVisible(n) {
			return true
		}
		if n.Box.Top >= bottom || n.Box.Bottom() <= 0 {
			return true
		}
		hs.nodes = append(hs.nodes, n)
		if !isNavOrFooterRegion(n, hs.vp) {
			hs.content = append(hs.content, n)
			if own := n.OwnText(); own != "" {
				parts = append(parts, own)
			}
		}
		return true
	})
	hs.text = normalizeText(strings.Join(parts, " "))
	return hs
}

func (hs *heroSet) inNav(n *render.Node) bool {
	return isNavOrFooterRegion(n, hs.vp)
}
