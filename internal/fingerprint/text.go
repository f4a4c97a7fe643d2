package fingerprint

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	maxHeadlineWords   = 30
	truncatedWordCount = 15
)

// normalizeText folds compatibility forms (NBSP, ligatures, full-width
// letters), drops zero-width characters and collapses whitespace.
func normalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func nodeText(n *render.Node) string {
	return normalizeText(n.TextContent())
}

// truncateHeadline keeps the first sentence when it fits the headline budget,
// otherwise the first fifteen words.
func truncateHeadline(s string) string {
	if wordCount(s) <= maxHeadlineWords {
		return s
	}
	if i := sentenceEnd(s); i > 0 {
		first := strings.TrimSpace(s[:i])
		if first != "" && wordCount(first) <= maxHeadlineWords {
			return first
		}
	}
	return strings.Join(strings.Fields(s)[:truncatedWordCount], " ")
}

// sentenceEnd returns the byte index just past the first sentence terminator
// that is followed by whitespace, or -1.
func sentenceEnd(s string) int {
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '.', '!', '?':
			if s[i+1] == ' ' {
				return i + 1
			}
		}
	}
	return -1
}

// fontSizeOf resolves the node's font size, inheriting when unset.
func fontSizeOf(n *render.Node) float64 {
	for cur := n; cur != nil; cur = cur.Parent() {
		if fs := cur.Style.FontSizePx(); fs > 0 {
			return fs
		}
	}
	return 16
}

// isInteractiveElement reports controls a visitor can activate.
func isInteractiveElement(n *render.Node) bool {
	switch n.Tag {
	case "a", "button", "select", "textarea", "summary", "label":
		return true
	case "input":
		return strings.ToLower(n.Attr("type")) != "hidden"
	}
	switch n.Role() {
	case "button", "link", "menuitem", "tab", "checkbox", "switch", "option":
		return true
	}
	return false
}

func insideInteractive(n *render.Node) bool {
	return selfOrAncestor(n, isInteractiveElement)
}

func containsInteractive(n *render.Node) bool {
	return searchDescendants(n, isInteractiveElement) != nil
}

// isIconLike reports glyph-sized media or icon-font elements.
func isIconLike(n *render.Node) bool {
	switch n.Tag {
	case "svg", "img", "picture":
		return true
	case "i", "span":
		cls := n.IDAndClass()
		return strings.Contains(cls, "icon") || strings.Contains(cls, "fa-") || strings.Contains(cls, "material-symbols")
	}
	cls := n.IDAndClass()
	return strings.Contains(cls, "icon") || strings.Contains(cls, "avatar")
}

// hasIcon reports an icon-like element at or just below n.
func hasIcon(n *render.Node) bool {
	if isIconLike(n) {
		return true
	}
	return searchDescendants(n, func(d *render.Node) bool {
		return isIconLike(d) && d.Box.Width <= 96 && d.Box.Height <= 96
	}) != nil
}
