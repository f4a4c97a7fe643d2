package fingerprint

import (
	"math"
	"regexp"
	"sort"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	logoRowTolerance = 25.0
	logoRowMinItems  = 3
	logoRowMinSpan   = 200.0
	logoMaxH         = 80.0
	logoMaxW         = 260.0
	logoMinW         = 16.0
)

var trustLanguageRe = regexp.MustCompile(`(?i)\b(trusted by|used by|loved by|relied on by|backed by|as seen (in|on)|featured in|join(ing)? (over )?[\d,.]+[km]?\+?|[\d,.]+[km]?\+? (users|developers|companies|teams|customers|businesses|creators))\b|★|⭐`)

// SocialProof is the logo-row and trust-language signal.
type SocialProof struct {
	LogoCount      int
	HasSocialProof bool
}

func isSmallMedia(n *render.Node) bool {
	if n.Tag != "img" && n.Tag != "svg" {
		return false
	}
	b := n.Box
	return b.Height <= logoMaxH && b.Width <= logoMaxW && b.Width >= logoMinW && b.Height >= minMediaSide
}

// detectSocialProof clusters small media by vertical centre; a row needs at
// least three items spanning more than 200px. Without such a row, flex/grid
// containers of image-only children are accepted.
func detectSocialProof(hs *heroSet) SocialProof {
	var small []*render.Node
	for _, n := range hs.content {
		if isSmallMedia(n) && searchAncestors(n, 0, nil, isTag("svg")) == nil {
			small = append(small, n)
		}
	}
	count := logoRowCount(small)
	if count == 0 {
		count = logoContainerCount(hs)
	}
	return SocialProof{
		LogoCount:      count,
		HasSocialProof: count >= logoRowMinItems || trustLanguageRe.MatchString(hs.text),
	}
}

func logoRowCount(items []*render.Node) int {
	if len(items) < logoRowMinItems {
		return 0
	}
	sorted := make([]*render.Node, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box.CenterY() < sorted[j].Box.CenterY()
	})
	best := 0
	start := 0
	for start < len(sorted) {
		anchor := sorted[start].Box.CenterY()
		end := start
		minLeft, maxRight := math.Inf(1), math.Inf(-1)
		for end < len(sorted) && sorted[end].Box.CenterY()-anchor <= logoRowTolerance {
			minLeft = math.Min(minLeft, sorted[end].Box.Left)
			maxRight = math.Max(maxRight, sorted[end].Box.Right())
			end++
		}
		if n := end - start; n >= logoRowMinItems && maxRight-minLeft > logoRowMinSpan && n > best {
			best = n
		}
		start = end
	}
	return best
}

func logoContainerCount(hs *heroSet) int {
	best := 0
	for _, n := range hs.content {
		if !isFlexOrGrid(n) {
			continue
		}
		kids := visibleChildren(n)
		if len(kids) < logoRowMinItems {
			continue
		}
		all := true
		for _, k := range kids {
			if !isLogoItem(k) {
				all = false
				break
			}
		}
		if all && len(kids) > best {
			best = len(kids)
		}
	}
	return best
}

func isLogoItem(n *render.Node) bool {
	if wordCount(nodeText(n)) > 2 {
		return false
	}
	if n.Tag == "img" || n.Tag == "svg" {
		return true
	}
	return searchDescendants(n, isTag("img", "svg")) != nil
}
