package fingerprint

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	maxMediaItems = 10
	minMediaSide  = 8.0
)

var (
	productUIRe    = regexp.MustCompile(`(?i)dashboard|screenshot|screen-shot|app[-_ ]?(ui|preview|screen)|product[-_ ]?(ui|shot|screen)|interface|editor|console|mockup|ui[-_ ]preview|\bpreview\b|\bdemo\b`)
	videoEmbedRe   = regexp.MustCompile(`(?i)youtube\.com|youtu\.be|vimeo\.com|wistia|loom\.com`)
	animationCSSRe = regexp.MustCompile(`(?i)(?:^|[\s_-])(animate|animated|aos|motion|lottie|marquee|parallax)(?:$|[\s_-])`)
)

// MediaItem summarises one hero image or video.
type MediaItem struct {
	Type   string  `json:"type" yaml:"type"`
	Src    string  `json:"src" yaml:"src"`
	Alt    string  `json:"alt" yaml:"alt"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Top    float64 `json:"top" yaml:"top"`
	Left   float64 `json:"left" yaml:"left"`
}

func mediaKind(n *render.Node) string {
	switch n.Tag {
	case "img", "video", "svg", "canvas":
		return n.Tag
	case "iframe":
		if videoEmbedRe.MatchString(n.Attr("src")) {
			return "video"
		}
		return "iframe"
	case "figure":
		if searchDescendants(n, isTag("img", "video", "svg", "canvas", "picture")) == nil {
			return "figure"
		}
	}
	return ""
}

// mediaInventory returns hero media, largest first (document order on ties),
// capped at ten.
func mediaInventory(hs *heroSet) []*render.Node {
	var out []*render.Node
	for _, n := range hs.content {
		if mediaKind(n) == "" || n.Box.Width < minMediaSide || n.Box.Height < minMediaSide {
			continue
		}
		// Skip glyphs drawn inside other media.
		if searchAncestors(n, 0, nil, isTag("svg")) != nil {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Box.Area() > out[j].Box.Area()
	})
	if len(out) > maxMediaItems {
		out = out[:maxMediaItems]
	}
	return out
}

func mediaItems(nodes []*render.Node) []MediaItem {
	out := make([]MediaItem, 0, len(nodes))
	for _, n := range nodes {
		src := n.Attr("src")
		if src == "" {
			src = n.Attr("poster")
		}
		out = append(out, MediaItem{
			Type:   mediaKind(n),
			Src:    src,
			Alt:    normalizeText(n.Attr("alt")),
			Width:  n.Box.Width,
			Height: n.Box.Height,
			Top:    n.Box.Top,
			Left:   n.Box.Left,
		})
	}
	return out
}

// heroMediaType classifies the single largest media element.
func heroMediaType(nodes []*render.Node) string {
	if len(nodes) == 0 {
		return "none"
	}
	n := nodes[0]
	switch mediaKind(n) {
	case "video":
		return "video"
	case "canvas":
		return "canvas"
	}
	hay := strings.Join([]string{n.Attr("src"), n.Attr("alt"), n.IDAndClass(), n.Attr("aria-label")}, " ")
	if p := n.Parent(); p != nil {
		hay += " " + p.IDAndClass()
	}
	if productUIRe.MatchString(hay) {
		return "product_ui"
	}
	if n.Tag == "svg" {
		return "illustration"
	}
	return "image"
}

// hasAnimation reports CSS animations, animation utility classes or
// animation players in the hero.
func hasAnimation(hs *heroSet) bool {
	for _, n := range hs.content {
		if a := strings.TrimSpace(strings.ToLower(n.Style.AnimationName)); a != "" && a != "none" {
			return true
		}
		switch n.Tag {
		case "lottie-player", "dotlottie-player", "rive-canvas":
			return true
		}
		if animationCSSRe.MatchString(n.IDAndClass()) {
			return true
		}
	}
	return false
}

func hasCanvas(hs *heroSet) bool {
	for _, n := range hs.content {
		if n.Tag == "canvas" {
			return true
		}
	}
	return false
}
