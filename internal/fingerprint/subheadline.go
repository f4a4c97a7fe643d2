package fingerprint

import (
	"math"
	"sort"
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	subMinChars       = 10
	subMinWords       = 3
	subMaxWords       = 60
	subBandAbove      = 50.0
	subBandBelow      = 320.0
	subAncestorLevels = 3
	subSiblingSkips   = 3
	subMinFontRatio   = 0.35
)

type subheadlinePicker struct {
	hs       *heroSet
	h        headline
	ctaTexts map[string]bool
}

// selectSubheadline tries, in order: the headline's next sibling, the
// parent's next sibling, a paragraph in the band below the headline within
// three ancestor levels, and finally the closest generic hero text.
func selectSubheadline(hs *heroSet, h headline, cands []textCandidate, ctas []ctaCandidate) (string, bool) {
	p := subheadlinePicker{hs: hs, h: h, ctaTexts: map[string]bool{}}
	for _, c := range ctas {
		p.ctaTexts[strings.ToLower(c.text)] = true
	}
	if t, ok := p.fromSibling(h.node); ok {
		return t, true
	}
	if parent := h.node.Parent(); parent != nil && parent.Tag != "body" {
		if t, ok := p.fromSibling(parent); ok {
			return t, true
		}
	}
	if t, ok := p.fromBand(); ok {
		return t, true
	}
	return p.fromCandidates(cands)
}

// qualifies reports clean body text: long enough, not inside a control, not
// a CTA label, not the headline.
func (p subheadlinePicker) qualifies(n *render.Node) (string, bool) {
	if !isVisible(n) || p.hs.inNav(n) || insideInteractive(n) {
		return "", false
	}
	if n.Contains(p.h.node) || p.h.node.Contains(n) {
		return "", false
	}
	t := nodeText(n)
	if len(t) < subMinChars {
		return "", false
	}
	w := wordCount(t)
	if w < subMinWords || w > subMaxWords {
		return "", false
	}
	if p.ctaTexts[strings.ToLower(t)] || t == p.h.text {
		return "", false
	}
	return t, true
}

func (p subheadlinePicker) fromSibling(start *render.Node) (string, bool) {
	sib := start.NextElementSibling()
	for skips := 0; sib != nil && skips < subSiblingSkips; skips++ {
		if isVisible(sib) && nodeText(sib) != "" {
			break
		}
		sib = sib.NextElementSibling()
	}
	if sib == nil || !isVisible(sib) {
		return "", false
	}
	if containsInteractive(sib) {
		for _, c := range sib.ElementChildren() {
			if !isParagraphLike(c) {
				continue
			}
			if t, ok := p.qualifies(c); ok {
				return t, true
			}
		}
		return "", false
	}
	return p.qualifies(sib)
}

func isParagraphLike(n *render.Node) bool {
	switch n.Tag {
	case "p", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// fromBand scans up to three ancestor levels for a paragraph overlapping the
// band from 50px above the headline to 320px below it, nearest first.
func (p subheadlinePicker) fromBand() (string, bool) {
	top := p.h.box.Top - subBandAbove
	bottom := p.h.box.Bottom() + subBandBelow
	anc := p.h.node.Parent()
	for level := 0; level < subAncestorLevels && anc != nil; level++ {
		best := ""
		bestDist := math.Inf(1)
		for _, para := range collectDescendants(anc, isTag("p")) {
			if para.Box.Top >= bottom || para.Box.Bottom() <= top {
				continue
			}
			t, ok := p.qualifies(para)
			if !ok {
				continue
			}
			if d := math.Abs(para.Box.Top - p.h.box.Bottom()); d < bestDist {
				best, bestDist = t, d
			}
		}
		if best != "" {
			return best, true
		}
		anc = anc.Parent()
	}
	return "", false
}

// fromCandidates picks the generic hero text closest to the headline's
// vertical centre whose font is no larger than, and not much smaller than,
// the headline's. Ties prefer larger fonts, then shorter text.
func (p subheadlinePicker) fromCandidates(cands []textCandidate) (string, bool) {
	type scored struct {
		text     string
		dist     float64
		fontSize float64
	}
	var pool []scored
	for _, c := range cands {
		if c.fontSize > p.h.fontSize || c.fontSize < p.h.fontSize*subMinFontRatio {
			continue
		}
		t, ok := p.qualifies(c.node)
		if !ok {
			continue
		}
		pool = append(pool, scored{
			text:     t,
			dist:     math.Abs(c.node.Box.CenterY() - p.h.box.CenterY()),
			fontSize: c.fontSize,
		})
	}
	if len(pool) == 0 {
		return "", false
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].dist != pool[j].dist {
			return pool[i].dist < pool[j].dist
		}
		if pool[i].fontSize != pool[j].fontSize {
			return pool[i].fontSize > pool[j].fontSize
		}
		return len(pool[i].text) < len(pool[j].text)
	})
	return pool[0].text, true
}
