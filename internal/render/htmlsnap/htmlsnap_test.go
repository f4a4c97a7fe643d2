package htmlsnap

import (
	"strings"
	"testing"

	"github.com/hyperifyio/heroprint/internal/render"
)

var vp = render.Viewport{Width: 1280, Height: 800}

const page = `<!doctype html>
<html>
<head>
  <title> Example Store </title>
  <meta name="generator" content="WordPress 6.5">
  <meta property="og:title" content="Example">
  <script src="https://example.com/wp-content/themes/x/app.js"></script>
  <script id="__NEXT_DATA__" type="application/json">{"props":{}}</script>
  <script>window.dataLayer = []; window.Shopify = {};</script>
  <style>body { color: red }</style>
</head>
<body style="color:#111;font-size:18px">
  <section id="hero" style="background: linear-gradient(90deg, #000, #333); text-align:center">
    <h1 data-box="100,100,600,60" style="color:white">Fresh coffee, delivered</h1>
    <p data-box="180,100,600,40" style="font-size:1.25rem; opacity: 0.8">Roasted this week.</p>
    <div style="display:none" data-box="300,100,200,40"><span data-box="300,100,100,20">Hidden</span></div>
  </section>
</body>
</html>`

func parsePage(t *testing.T) *render.Snapshot {
	t.Helper()
	snap, err := ParseString(page, vp)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return snap
}

func find(snap *render.Snapshot, tag string) *render.Node {
	for _, n := range snap.Elements() {
		if n.Tag == tag {
			return n
		}
	}
	return nil
}

func TestParse_PageMetadata(t *testing.T) {
	snap := parsePage(t)
	if snap.Title != "Example Store" {
		t.Fatalf("unexpected title %q", snap.Title)
	}
	if snap.Meta["generator"] != "WordPress 6.5" || snap.Meta["og:title"] != "Example" {
		t.Fatalf("unexpected meta %+v", snap.Meta)
	}
	if len(snap.Scripts) != 1 || !strings.Contains(snap.Scripts[0], "wp-content") {
		t.Fatalf("unexpected scripts %v", snap.Scripts)
	}
	want := []string{"__NEXT_DATA__", "dataLayer", "Shopify"}
	if strings.Join(snap.Globals, ",") != strings.Join(want, ",") {
		t.Fatalf("expected globals %v, got %v", want, snap.Globals)
	}
	if snap.Viewport != vp {
		t.Fatalf("viewport not carried over")
	}
}

func TestParse_SkipsNonRenderedElements(t *testing.T) {
	snap := parsePage(t)
	for _, tag := range []string{"head", "script", "style", "meta", "title"} {
		if find(snap, tag) != nil {
			t.Fatalf("expected %s to be dropped", tag)
		}
	}
	if snap.Body() == nil || snap.Body().Tag != "body" {
		t.Fatalf("expected a body")
	}
}

func TestParse_GeometryAndUnionBoxes(t *testing.T) {
	snap := parsePage(t)
	h1 := find(snap, "h1")
	if h1.Box != (render.Box{Top: 100, Left: 100, Width: 600, Height: 60}) {
		t.Fatalf("unexpected h1 box %+v", h1.Box)
	}
	section := find(snap, "section")
	want := render.Box{Top: 100, Left: 100, Width: 600, Height: 120}
	if section.Box != want {
		t.Fatalf("expected union box %+v, got %+v", want, section.Box)
	}
	span := find(snap, "span")
	if span.Box != (render.Box{}) {
		t.Fatalf("display:none subtree must have no geometry, got %+v", span.Box)
	}
	if _, ok := section.Attrs["style"]; ok {
		t.Fatalf("style attribute must not be copied into attrs")
	}
	if section.Attr("id") != "hero" {
		t.Fatalf("expected id attribute preserved")
	}
}

func TestParse_StyleResolution(t *testing.T) {
	snap := parsePage(t)
	section := find(snap, "section")
	if !strings.Contains(section.Style.BackgroundImage, "linear-gradient") || section.Style.BackgroundColor != "" {
		t.Fatalf("background shorthand not split: %+v", section.Style)
	}
	h1 := find(snap, "h1")
	if h1.Style.Color != "white" || h1.Style.FontSize != "32px" || h1.Style.TextAlign != "center" {
		t.Fatalf("unexpected h1 style %+v", h1.Style)
	}
	p := find(snap, "p")
	if p.Style.Color != "#111" || p.Style.FontSizePx() != 20 || p.Style.Opacity != "0.8" {
		t.Fatalf("unexpected p style %+v", p.Style)
	}
	if section.Style.Opacity != "" {
		t.Fatalf("opacity must not inherit")
	}
}

func TestParseDeclarations_ParenthesesAware(t *testing.T) {
	d := parseDeclarations(`background-image: url("data:image/png;base64,AAA"); color: rgb(1, 2, 3) !important;;bogus`)
	if d["background-image"] != `url("data:image/png;base64,AAA")` {
		t.Fatalf("unexpected background-image %q", d["background-image"])
	}
	if d["color"] != "rgb(1, 2, 3)" {
		t.Fatalf("unexpected color %q", d["color"])
	}
	if len(d) != 2 {
		t.Fatalf("expected two declarations, got %v", d)
	}
}

func TestParseBox_Partial(t *testing.T) {
	if got := parseBox("10, 20"); got != (render.Box{Top: 10, Left: 20}) {
		t.Fatalf("unexpected partial box %+v", got)
	}
	if got := parseBox("a,b,c,d"); got != (render.Box{}) {
		t.Fatalf("expected zero box, got %+v", got)
	}
}
