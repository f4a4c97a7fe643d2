package fingerprint

import (
	"regexp"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	listBulletMinWords   = 4
	iconBulletMinWords   = 5
	virtualMinChildren   = 3
	virtualChildMinWords = 2
	virtualChildMaxWords = 25
)

var actionHintRe = regexp.MustCompile(`(?i)^(click|tap|scroll|swipe|press|drag|hover|no credit card|cancel any ?time|free forever)\b`)

// BulletSignals separates real feature bullets (list marker or leading icon
// plus a phrase) from icon grids that read as bullets.
type BulletSignals struct {
	FeatureBullets int
	VirtualBullets int
}

func detectBullets(hs *heroSet) BulletSignals {
	var bs BulletSignals
	virtual := map[*render.Node]bool{}
	for _, n := range hs.content {
		if !isFlexOrGrid(n) || selfOrAncestor(n.Parent(), func(a *render.Node) bool { return virtual[a] }) {
			continue
		}
		count := 0
		for _, c := range visibleChildren(n) {
			if isIconTextItem(c) {
				count++
			}
		}
		if count >= virtualMinChildren {
			virtual[n] = true
			bs.VirtualBullets += count
		}
	}

	for _, n := range hs.content {
		if n.Tag == "li" {
			if isListBullet(n) {
				bs.FeatureBullets++
			}
			continue
		}
		if virtual[n.Parent()] || insideInteractive(n) {
			continue
		}
		if isIconBullet(n) {
			bs.FeatureBullets++
		}
	}
	return bs
}

func isListBullet(li *render.Node) bool {
	parent := li.Parent()
	if parent == nil || (parent.Tag != "ul" && parent.Tag != "ol") {
		return false
	}
	t := nodeText(li)
	if wordCount(t) < listBulletMinWords || actionHintRe.MatchString(t) {
		return false
	}
	// A list item that is just a link is navigation, not a feature.
	if a := searchDescendants(li, isInteractiveElement); a != nil && nodeText(a) == t {
		return false
	}
	return true
}

func isIconBullet(n *render.Node) bool {
	kids := n.ElementChildren()
	if len(kids) < 2 || !isIconLike(kids[0]) || kids[0].Box.Width > 64 {
		return false
	}
	t := nodeText(n)
	return wordCount(t) >= iconBulletMinWords && wordCount(t) <= virtualChildMaxWords && !actionHintRe.MatchString(t)
}

func isIconTextItem(n *render.Node) bool {
	if !hasIcon(n) || insideInteractive(n) {
		return false
	}
	w := wordCount(nodeText(n))
	return w >= virtualChildMinWords && w <= virtualChildMaxWords
}
