package fingerprint

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	shortHeaderMaxHeight = 150.0
	shortAsideMaxHeight  = 150.0
	narrowAsideFraction  = 0.3
	navKeywordMaxTop     = 200.0
	navKeywordMaxHeight  = 150.0
)

var (
	navKeywordRe    = regexp.MustCompile(`(?:^|[\s_-])(?:nav|navbar|navigation|menu|menubar|topbar|top-bar|header|site-header|masthead|breadcrumbs?)(?:$|[\s_-])`)
	footerKeywordRe = regexp.MustCompile(`(?:^|[\s_-])(?:footer|site-footer|legal|copyright|colophon)(?:$|[\s_-])`)
	namedNavRe      = regexp.MustCompile(`(?i)footer|navigation|\bnav\b|navbar|\bmenu\b|topbar`)
	namedHeaderRe   = regexp.MustCompile(`(?i)header`)
)

// builderNameAttrs carry component names written by site builders (Framer,
// Webflow, Shopify sections) in place of semantic tags.
var builderNameAttrs = []string{
	"data-framer-name", "data-name", "data-component-name",
	"data-block-name", "data-section-type", "data-element-name",
}

// isVisible is false for display:none, visibility:hidden, opacity 0 and
// zero-area boxes.
func isVisible(n *render.Node) bool {
	if n == nil || !n.IsElement() {
		return false
	}
	if strings.EqualFold(n.Style.Display, "none") {
		return false
	}
	switch strings.ToLower(n.Style.Visibility) {
	case "hidden", "collapse":
		return false
	}
	if n.Style.OpacityValue() <= 0 {
		return false
	}
	return n.Box.Width > 0 && n.Box.Height > 0
}

func isFixedOrSticky(n *render.Node) bool {
	switch strings.ToLower(n.Style.Position) {
	case "fixed", "sticky", "-webkit-sticky":
		return true
	}
	return false
}

// isNavOrFooterRegion reports whether n sits in navigation, footer or legal
// chrome. Semantic tags alone are not trusted: builders wrap whole heroes in
// <header> or <aside>, so those only count when short or narrow.
func isNavOrFooterRegion(n *render.Node, vp render.Viewport) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Tag == "body" || cur.Tag == "html" {
			return false
		}
		if navRegionSelf(cur, vp) {
			return true
		}
	}
	return false
}

func navRegionSelf(n *render.Node, vp render.Viewport) bool {
	switch n.Tag {
	case "nav", "footer":
		return true
	case "header":
		if n.Box.Height < shortHeaderMaxHeight {
			return true
		}
	case "aside":
		if n.Box.Height < shortAsideMaxHeight || n.Box.Width < vp.Width*narrowAsideFraction {
			return true
		}
	}
	switch n.Role() {
	case "navigation", "contentinfo", "toolbar", "menubar", "menu":
		return true
	case "banner":
		if n.Box.Height < shortHeaderMaxHeight {
			return true
		}
	}
	if isFixedOrSticky(n) && n.Box.Top < navKeywordMaxTop && n.Box.Height < navKeywordMaxHeight {
		return true
	}
	if key := n.IDAndClass(); key != "" {
		if footerKeywordRe.MatchString(key) {
			return true
		}
		if navKeywordRe.MatchString(key) && n.Box.Top < navKeywordMaxTop && n.Box.Height < navKeywordMaxHeight {
			return true
		}
	}
	return namedRegion(n)
}

// namedRegion flags builder-named regions with footer/nav semantics. A
// region named "header" only counts when short, since builders also name
// full-height heroes that way.
func namedRegion(n *render.Node) bool {
	for _, attr := range builderNameAttrs {
		name := n.Attr(attr)
		if name == "" {
			continue
		}
		if namedNavRe.MatchString(name) {
			return true
		}
		if namedHeaderRe.MatchString(name) && n.Box.Height < shortHeaderMaxHeight {
			return true
		}
	}
	return false
}
