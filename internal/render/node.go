// Package render models a laid-out document tree as delivered by a rendering
// collaborator: tag, attributes, resolved style subset, and bounding geometry
// for every node. Trees are read-only snapshots; nothing here mutates a
// snapshot after Link has run.
package render

import (
	"strconv"
	"strings"
)

// TextTag is the tag assigned to text nodes.
const TextTag = "#text"

// Box is a bounding rectangle in page coordinates (CSS pixels).
type Box struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b Box) Bottom() float64  { return b.Top + b.Height }
func (b Box) Right() float64   { return b.Left + b.Width }
func (b Box) Area() float64    { return b.Width * b.Height }
func (b Box) CenterX() float64 { return b.Left + b.Width/2 }
func (b Box) CenterY() float64 { return b.Top + b.Height/2 }

// Contains reports whether the point lies inside the box (edges inclusive on
// the top/left side, exclusive on the bottom/right side).
func (b Box) Contains(x, y float64) bool {
	return x >= b.Left && x < b.Right() && y >= b.Top && y < b.Bottom()
}

// Style is the resolved (computed) style subset the engine reads. Values keep
// their CSS textual form, e.g. "32px" or "rgb(0, 0, 0)".
type Style struct {
	Display         string `json:"display,omitempty"`
	Position        string `json:"position,omitempty"`
	Visibility      string `json:"visibility,omitempty"`
	Opacity         string `json:"opacity,omitempty"`
	FontSize        string `json:"fontSize,omitempty"`
	FontWeight      string `json:"fontWeight,omitempty"`
	TextAlign       string `json:"textAlign,omitempty"`
	Color           string `json:"color,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
	AnimationName   string `json:"animationName,omitempty"`
}

// FontSizePx returns the font size in pixels, or 0 when unset or unparsable.
func (s Style) FontSizePx() float64 {
	return parsePx(s.FontSize)
}

// OpacityValue returns the opacity, defaulting to 1.
func (s Style) OpacityValue() float64 {
	v := strings.TrimSpace(s.Opacity)
	if v == "" {
		return 1
	}
	if strings.HasSuffix(v, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil {
			return 1
		}
		return f / 100
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 1
	}
	return f
}

func parsePx(v string) float64 {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return 0
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
	case strings.HasSuffix(v, "rem"):
		v = strings.TrimSuffix(v, "rem")
		mult = 16
	case strings.HasSuffix(v, "em"):
		v = strings.TrimSuffix(v, "em")
		mult = 16
	case strings.HasSuffix(v, "pt"):
		v = strings.TrimSuffix(v, "pt")
		mult = 4.0 / 3.0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f * mult
}

// Node is one node of the rendered tree. Element nodes carry a lower-case tag;
// text nodes carry TextTag and their character data in Text.
type Node struct {
	ID       int               `json:"id,omitempty"`
	Tag      string            `json:"tag,omitempty"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Style    Style             `json:"style"`
	Box      Box               `json:"box"`
	Children []*Node           `json:"children,omitempty"`

	parent *Node
	index  int
	order  int
}

func (n *Node) IsText() bool    { return n != nil && n.Tag == TextTag }
func (n *Node) IsElement() bool { return n != nil && n.Tag != TextTag }

// Parent returns the parent node, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Order is the node's position in document (pre-)order. Only meaningful
// after the owning snapshot has been linked.
func (n *Node) Order() int { return n.order }

// Attr returns the attribute value, or "" when absent.
func (n *Node) Attr(name string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// HasAttr reports attribute presence regardless of value.
func (n *Node) HasAttr(name string) bool {
	if n == nil || n.Attrs == nil {
		return false
	}
	_, ok := n.Attrs[name]
	return ok
}

// Classes splits the class attribute.
func (n *Node) Classes() []string {
	return strings.Fields(n.Attr("class"))
}

// IDAndClass returns "id class" lower-cased, the usual haystack for keyword
// heuristics.
func (n *Node) IDAndClass() string {
	return strings.ToLower(strings.TrimSpace(n.Attr("id") + " " + n.Attr("class")))
}

// Role returns the lower-cased ARIA role.
func (n *Node) Role() string {
	return strings.ToLower(strings.TrimSpace(n.Attr("role")))
}

// ElementChildren returns the element children in order.
func (n *Node) ElementChildren() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.IsElement() {
			out = append(out, c)
		}
	}
	return out
}

// NextElementSibling returns the following element sibling, if any.
func (n *Node) NextElementSibling() *Node {
	if n == nil || n.parent == nil {
		return nil
	}
	sibs := n.parent.Children
	for i := n.index + 1; i < len(sibs); i++ {
		if sibs[i].IsElement() {
			return sibs[i]
		}
	}
	return nil
}

// PrevElementSibling returns the preceding element sibling, if any.
func (n *Node) PrevElementSibling() *Node {
	if n == nil || n.parent == nil {
		return nil
	}
	sibs := n.parent.Children
	for i := n.index - 1; i >= 0; i-- {
		if sibs[i].IsElement() {
			return sibs[i]
		}
	}
	return nil
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Walk visits element descendants of n (n included) in document order. If fn
// returns false the subtree below the visited node is skipped.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !n.IsElement() {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// OwnText joins the node's direct text children.
func (n *Node) OwnText() string {
	if n == nil {
		return ""
	}
	if n.IsText() {
		return n.Text
	}
	var parts []string
	for _, c := range n.Children {
		if c.IsText() && strings.TrimSpace(c.Text) != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

// TextContent concatenates all descendant text. Pieces are separated by a
// space so adjacent blocks do not fuse into one word; callers normalise
// whitespace.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.appendText(&b, nil)
	return b.String()
}

// TextContentSkipping is TextContent with whole subtrees excluded by skip.
func (n *Node) TextContentSkipping(skip func(*Node) bool) string {
	var b strings.Builder
	n.appendText(&b, skip)
	return b.String()
}

func (n *Node) appendText(b *strings.Builder, skip func(*Node) bool) {
	if n == nil {
		return
	}
	if n.IsText() {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(n.Text)
		return
	}
	if skip != nil && skip(n) {
		return
	}
	switch n.Tag {
	case "script", "style", "noscript", "template":
		return
	}
	for _, c := range n.Children {
		c.appendText(b, skip)
	}
}
