// Package htmlsnap is a simulated renderer: it turns HTML whose elements carry
// their geometry in data-box attributes and their resolved styles in inline
// style declarations into a render.Snapshot. Elements without data-box take
// the union of their children's boxes.
//
//	<h1 data-box="120,80,600,64" style="font-size:56px;color:#fff">…</h1>
package htmlsnap

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hyperifyio/heroprint/internal/render"
)

// BoxAttr holds "top,left,width,height" in page pixels.
const BoxAttr = "data-box"

var windowAssign = regexp.MustCompile(`window\.([A-Za-z_$][\w$]*)\s*=`)

// Parse reads HTML and builds a linked snapshot for the given viewport.
func Parse(r io.Reader, vp render.Viewport) (*render.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("htmlsnap: parse: %w", err)
	}
	root := doc.Find("html").First()
	if root.Length() == 0 {
		return nil, render.ErrNoRoot
	}
	b := &builder{}
	tree := b.convert(root.Nodes[0], inherited{fontSize: "16px", color: "rgb(0, 0, 0)"})
	if tree == nil {
		return nil, render.ErrNoRoot
	}
	snap := &render.Snapshot{
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		Viewport: vp,
		Scripts:  scriptSources(doc),
		Globals:  pageGlobals(doc),
		Meta:     metaTags(doc),
		Root:     tree,
	}
	if err := snap.Link(); err != nil {
		return nil, err
	}
	return snap, nil
}

// ParseString is Parse over an in-memory document.
func ParseString(s string, vp render.Viewport) (*render.Snapshot, error) {
	return Parse(bytes.NewReader([]byte(s)), vp)
}

type inherited struct {
	fontSize   string
	fontWeight string
	color      string
	textAlign  string
	visibility string
	hidden     bool
}

type builder struct {
	nextID int
}

// skipped elements never produce boxes.
var skipped = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true,
	"template": true, "meta": true, "link": true, "title": true,
}

var defaultFontSize = map[string]string{
	"h1": "32px", "h2": "24px", "h3": "18.72px", "h4": "16px",
	"h5": "13.28px", "h6": "10.72px", "small": "13.33px",
}

func (b *builder) convert(n *html.Node, inh inherited) *render.Node {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		return &render.Node{Tag: render.TextTag, Text: n.Data}
	case html.ElementNode:
	default:
		return nil
	}
	tag := strings.ToLower(n.Data)
	if skipped[tag] {
		return nil
	}
	b.nextID++
	out := &render.Node{ID: b.nextID, Tag: tag, Attrs: map[string]string{}}
	var styleAttr, boxAttr string
	hasBox := false
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		switch key {
		case "style":
			styleAttr = a.Val
		case BoxAttr:
			boxAttr = a.Val
			hasBox = true
		default:
			out.Attrs[key] = a.Val
		}
	}
	out.Style = resolveStyle(tag, parseDeclarations(styleAttr), &inh)
	if hasBox && !inh.hidden {
		out.Box = parseBox(boxAttr)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := b.convert(c, inh); child != nil {
			out.Children = append(out.Children, child)
		}
	}
	if !hasBox && !inh.hidden {
		out.Box = unionBox(out.Children)
	}
	return out
}

// resolveStyle applies declarations over inherited values and updates inh for
// the subtree.
func resolveStyle(tag string, decl map[string]string, inh *inherited) render.Style {
	st := render.Style{
		Display:         decl["display"],
		Position:        decl["position"],
		Opacity:         decl["opacity"],
		BackgroundColor: decl["background-color"],
		BackgroundImage: decl["background-image"],
		AnimationName:   decl["animation-name"],
	}
	if bg, ok := decl["background"]; ok {
		if strings.Contains(bg, "gradient(") || strings.Contains(bg, "url(") {
			if st.BackgroundImage == "" {
				st.BackgroundImage = bg
			}
		} else if st.BackgroundColor == "" {
			st.BackgroundColor = bg
		}
	}
	if anim, ok := decl["animation"]; ok && st.AnimationName == "" {
		if f := strings.Fields(anim); len(f) > 0 {
			st.AnimationName = f[0]
		}
	}
	if v, ok := decl["font-size"]; ok {
		inh.fontSize = v
	} else if v, ok := defaultFontSize[tag]; ok {
		inh.fontSize = v
	}
	if v, ok := decl["font-weight"]; ok {
		inh.fontWeight = v
	}
	if v, ok := decl["color"]; ok {
		inh.color = v
	}
	if v, ok := decl["text-align"]; ok {
		inh.textAlign = v
	}
	if v, ok := decl["visibility"]; ok {
		inh.visibility = v
	}
	if st.Display == "none" {
		inh.hidden = true
	}
	st.FontSize = inh.fontSize
	st.FontWeight = inh.fontWeight
	st.Color = inh.color
	st.TextAlign = inh.textAlign
	st.Visibility = inh.visibility
	return st
}

func parseDeclarations(s string) map[string]string {
	out := map[string]string{}
	for _, part := range splitDeclarations(s) {
		i := strings.IndexByte(part, ':')
		if i <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(part[:i]))
		val := strings.TrimSpace(part[i+1:])
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))
		if key != "" && val != "" {
			out[key] = val
		}
	}
	return out
}

// splitDeclarations splits on ';' outside parentheses so data URIs and
// color functions survive.
func splitDeclarations(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

func parseBox(s string) render.Box {
	f := strings.Split(s, ",")
	vals := make([]float64, 4)
	for i := 0; i < len(f) && i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(f[i]), 64)
		if err == nil {
			vals[i] = v
		}
	}
	return render.Box{Top: vals[0], Left: vals[1], Width: vals[2], Height: vals[3]}
}

func unionBox(children []*render.Node) render.Box {
	var out render.Box
	first := true
	for _, c := range children {
		if !c.IsElement() || c.Box.Width <= 0 || c.Box.Height <= 0 {
			continue
		}
		if first {
			out = c.Box
			first = false
			continue
		}
		top := minf(out.Top, c.Box.Top)
		left := minf(out.Left, c.Box.Left)
		bottom := maxf(out.Bottom(), c.Box.Bottom())
		right := maxf(out.Right(), c.Box.Right())
		out = render.Box{Top: top, Left: left, Width: right - left, Height: bottom - top}
	}
	return out
}

func scriptSources(doc *goquery.Document) []string {
	var out []string
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
			out = append(out, strings.TrimSpace(src))
		}
	})
	return out
}

// pageGlobals approximates the window globals a live page would expose: ids
// of data-carrying scripts (__NEXT_DATA__) and top-level window assignments
// in inline scripts.
func pageGlobals(doc *goquery.Document) []string {
	seen := map[string]bool{}
	var out []string
	add := func(g string) {
		if g != "" && !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && strings.HasPrefix(id, "__") {
			add(id)
		}
		if _, ok := s.Attr("src"); ok {
			return
		}
		for _, m := range windowAssign.FindAllStringSubmatch(s.Text(), -1) {
			add(m[1])
		}
	})
	return out
}

func metaTags(doc *goquery.Document) map[string]string {
	out := map[string]string{}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok {
			name, ok = s.Attr("property")
		}
		if !ok || strings.TrimSpace(name) == "" {
			return
		}
		content, _ := s.Attr("content")
		out[strings.ToLower(strings.TrimSpace(name))] = content
	})
	return out
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
