package fingerprint

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	logoMaxWords    = 3
	logoMaxTop      = 200.0
	logoMaxHeight   = 80.0
	logoMaxFontSize = 28.0
	logoNarrowFrac  = 0.25
	shortHeadline   = 2
)

var (
	skipLinkTextRe    = regexp.MustCompile(`(?i)^\s*(skip|jump) to\b|skip navigation`)
	skipLinkClassRe   = regexp.MustCompile(`(?i)skip-?link|sr-only|visually-?hidden|screen-?reader`)
	richTextWrapperRe = regexp.MustCompile(`(?i)rich-?text|framer-text|typewriter|split-?text|text-?rotat|animated|heading-?wrap|title-?wrap`)
)

// textCandidate is a hero text block competing for the headline.
type textCandidate struct {
	node     *render.Node
	text     string
	words    int
	fontSize float64
	top      float64
}

type headline struct {
	node     *render.Node
	text     string
	fontSize float64
	box      render.Box
}

// heroTextCandidates lists hero elements that own alphabetic text of at most
// thirty words, outside chrome and interactive controls, largest font first.
// Ties keep document order.
func heroTextCandidates(hs *heroSet) []textCandidate {
	var out []textCandidate
	for _, n := range hs.content {
		if strings.TrimSpace(n.OwnText()) == "" || insideInteractive(n) {
			continue
		}
		text := nodeText(n)
		if !hasLetter(text) {
			continue
		}
		w := wordCount(text)
		if w == 0 || w > maxHeadlineWords {
			continue
		}
		out = append(out, textCandidate{
			node:     n,
			text:     text,
			words:    w,
			fontSize: fontSizeOf(n),
			top:      n.Box.Top,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].fontSize > out[j].fontSize
	})
	return out
}

// selectHeadline prefers the first visible non-chrome <h1>, then any hero
// <h1>; without one the largest-font candidate wins. The logo override is
// judged on the heading's own text and box, before any widening.
func selectHeadline(hs *heroSet, cands []textCandidate) (headline, bool) {
	h1 := firstHeading(hs.content)
	if h1 == nil {
		h1 = firstHeading(hs.nodes)
	}
	if h1 == nil {
		return bestCandidate(cands, nil)
	}

	h := headline{node: h1, text: headingText(h1), fontSize: fontSizeOf(h1), box: h1.Box}
	if looksLikeLogo(h, hs.vp) || hs.inNav(h1) {
		if alt, ok := largerLowerCandidate(cands, h); ok {
			return alt, true
		}
	}
	if wordCount(h.text) <= shortHeadline {
		h.text = widenHeadingText(h1, h.text, hs, cands)
	}
	if h.text == "" || wordCount(h.text) > maxHeadlineWords {
		// A heading this long is an accidental whole-page capture.
		return bestCandidate(cands, h1)
	}
	return h, true
}

func firstHeading(nodes []*render.Node) *render.Node {
	for _, n := range nodes {
		if n.Tag == "h1" {
			return n
		}
	}
	return nil
}

func bestCandidate(cands []textCandidate, exclude *render.Node) (headline, bool) {
	for _, c := range cands {
		if exclude != nil && (exclude.Contains(c.node) || c.node.Contains(exclude)) {
			continue
		}
		return fromCandidate(c), true
	}
	return headline{}, false
}

func fromCandidate(c textCandidate) headline {
	return headline{node: c.node, text: c.text, fontSize: c.fontSize, box: c.node.Box}
}

// largerLowerCandidate finds the largest-font candidate that is strictly
// larger than and positioned below h.
func largerLowerCandidate(cands []textCandidate, h headline) (headline, bool) {
	for _, c := range cands {
		if h.node.Contains(c.node) || c.node.Contains(h.node) {
			continue
		}
		if c.fontSize > h.fontSize && c.top > h.box.Top {
			return fromCandidate(c), true
		}
	}
	return headline{}, false
}

// looksLikeLogo: a few words near the top in a short box with a small font,
// either wrapped in a link or narrow.
func looksLikeLogo(h headline, vp render.Viewport) bool {
	if wordCount(h.text) > logoMaxWords {
		return false
	}
	if h.box.Top >= logoMaxTop || h.box.Height >= logoMaxHeight || h.fontSize >= logoMaxFontSize {
		return false
	}
	return wrappedInLink(h.node) || h.box.Width < vp.Width*logoNarrowFrac
}

func wrappedInLink(n *render.Node) bool {
	if searchAncestors(n, 3, nil, isTag("a")) != nil || n.Tag == "a" {
		return true
	}
	text := nodeText(n)
	return searchDescendants(n, func(d *render.Node) bool {
		return d.Tag == "a" && nodeText(d) == text
	}) != nil
}

// headingText extracts the heading's own text without skip links. Nested
// interactive text is only dropped when the heading holds three or more
// controls; a single inline link is kept since the heading may itself be a
// wrapped link.
func headingText(h *render.Node) string {
	controls := countDescendants(h, isInteractiveElement)
	return normalizeText(h.TextContentSkipping(func(n *render.Node) bool {
		if n == h {
			return false
		}
		if isSkipLink(n) || strings.EqualFold(n.Style.Display, "none") {
			return true
		}
		return controls >= 3 && isInteractiveElement(n)
	}))
}

func isSkipLink(n *render.Node) bool {
	if n.Tag != "a" {
		return false
	}
	if skipLinkClassRe.MatchString(n.IDAndClass()) {
		return true
	}
	return strings.HasPrefix(n.Attr("href"), "#") && skipLinkTextRe.MatchString(nodeText(n))
}

// widenHeadingText recovers split or animated headings whose <h1> only holds
// a word or two: first a rich-text wrapper, then the nearest longer ancestor
// below the section boundary. A container holding text set larger than the
// heading is a layout block, not the heading, and is never taken.
func widenHeadingText(h1 *render.Node, text string, hs *heroSet, cands []textCandidate) string {
	size := fontSizeOf(h1)
	usable := func(a *render.Node, t string) bool {
		return len(t) > len(text) && !hs.inNav(a) && !holdsLargerText(a, cands, size)
	}
	if w := searchAncestors(h1, 3, isSectionBoundary, isRichTextWrapper); w != nil {
		if t := nodeText(w); usable(w, t) {
			return truncateHeadline(t)
		}
	}
	anc := searchAncestors(h1, 0, isSectionBoundary, func(a *render.Node) bool {
		t := nodeText(a)
		return usable(a, t) && wordCount(t) <= maxHeadlineWords
	})
	if anc != nil {
		return nodeText(anc)
	}
	return text
}

func holdsLargerText(a *render.Node, cands []textCandidate, size float64) bool {
	for _, c := range cands {
		if c.fontSize > size && a.Contains(c.node) {
			return true
		}
	}
	return false
}

func isSectionBoundary(n *render.Node) bool {
	switch n.Tag {
	case "section", "header", "main", "article", "body", "html":
		return true
	}
	return false
}

func isRichTextWrapper(n *render.Node) bool {
	if richTextWrapperRe.MatchString(n.IDAndClass()) {
		return true
	}
	return strings.EqualFold(n.Attr("data-framer-component-type"), "RichTextContainer")
}
