package fingerprint

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperifyio/heroprint/internal/render"
	"github.com/hyperifyio/heroprint/internal/render/htmlsnap"
)

var desktop = render.Viewport{Width: 1440, Height: 900}

func mustParse(t *testing.T, src string) *render.Snapshot {
	t.Helper()
	snap, err := htmlsnap.ParseString(src, desktop)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return snap
}

func mustExtract(t *testing.T, snap *render.Snapshot) Fingerprint {
	t.Helper()
	fp, err := Extract(snap, Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return fp
}

const saasHero = `<!doctype html>
<html>
<head>
  <title>Launchpad - ship faster</title>
  <script id="__NEXT_DATA__" type="application/json">{}</script>
  <script src="/_next/static/chunks/react-dom.production.min.js"></script>
</head>
<body>
  <nav data-box="0,0,1440,64">
    <a href="/" data-box="16,40,90,32">Launchpad</a>
    <a href="/pricing" data-box="20,600,70,24">Pricing</a>
    <a href="/login" data-box="16,1200,100,32">Sign up</a>
  </nav>
  <section data-box="64,0,1440,760" style="background-color:#0b0b14;text-align:center">
    <h1 data-box="220,320,800,72" style="font-size:64px;color:#ffffff">Ship code faster, together</h1>
    <p data-box="310,360,720,56" style="font-size:20px;color:#c0c0c0">Launchpad gives every team preview deploys, instant rollbacks and shared environments.</p>
    <div data-box="400,520,400,48" style="display:flex">
      <a href="/docs" data-box="400,520,180,48">Learn more</a>
      <button data-box="400,720,200,48">Start free trial</button>
    </div>
    <div data-reactroot="" data-box="480,320,800,24"><span data-box="480,320,800,24">Trusted by 4,000+ teams</span></div>
  </section>
  <section data-box="1100,0,1440,900">
    <h2 data-box="1150,100,600,40">More below the fold</h2>
  </section>
</body>
</html>`

func TestExtract_SaaSHero(t *testing.T) {
	fp := mustExtract(t, mustParse(t, saasHero))

	if fp.Headline == nil || *fp.Headline != "Ship code faster, together" {
		t.Fatalf("unexpected headline: %v", fp.Headline)
	}
	if fp.HeadlineWordCount != 4 {
		t.Fatalf("expected 4 headline words, got %d", fp.HeadlineWordCount)
	}
	if fp.Subheadline == nil || *fp.Subheadline != "Launchpad gives every team preview deploys, instant rollbacks and shared environments." {
		t.Fatalf("unexpected subheadline: %v", fp.Subheadline)
	}
	if fp.PrimaryCTA == nil || *fp.PrimaryCTA != "Start free trial" {
		t.Fatalf("expected primary CTA 'Start free trial', got %v", fp.PrimaryCTA)
	}
	if fp.CTACount != 2 || len(fp.CTAs) != 2 {
		t.Fatalf("expected 2 CTAs (nav excluded), got %d: %+v", fp.CTACount, fp.CTAs)
	}
	if fp.CTAs[0].Type != "button" || fp.CTAs[0].Tier != "self_serve" {
		t.Fatalf("unexpected primary CTA entry: %+v", fp.CTAs[0])
	}
	if fp.CTAs[1].Tier != "info" {
		t.Fatalf("expected second CTA in info tier, got %+v", fp.CTAs[1])
	}
	if len(fp.Stack) != 1 || fp.Stack[0] != "nextjs" {
		t.Fatalf("expected stack [nextjs], got %v", fp.Stack)
	}
	if !fp.DarkThemeHero {
		t.Fatalf("expected dark theme hero")
	}
	if fp.Alignment != AlignCenter || fp.Layout != LayoutCentered {
		t.Fatalf("expected centered layout, got %s/%s", fp.Layout, fp.Alignment)
	}
	if !fp.HasSocialProof {
		t.Fatalf("expected trust language to count as social proof")
	}
	if fp.HeroBottom != 824 {
		t.Fatalf("expected hero bottom 824, got %v", fp.HeroBottom)
	}
	if fp.IsErrorPage || fp.IsCommerceHero {
		t.Fatalf("unexpected classification: error=%v commerce=%v", fp.IsErrorPage, fp.IsCommerceHero)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	first, err := json.Marshal(mustExtract(t, mustParse(t, saasHero)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(mustExtract(t, mustParse(t, saasHero)))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, again, first)
		}
	}
}

func TestExtract_RepeatedOnSameSnapshot(t *testing.T) {
	snap := mustParse(t, saasHero)
	a, _ := json.Marshal(mustExtract(t, snap))
	b, _ := json.Marshal(mustExtract(t, snap))
	if string(a) != string(b) {
		t.Fatalf("second extraction on the same snapshot differs")
	}
}

func TestHeroBoundary_IndependentOfDetectors(t *testing.T) {
	snap := mustParse(t, saasHero)
	before := HeroBoundary(snap)
	hs := newHeroSet(snap, before)
	_ = detectBullets(hs)
	_ = heroTextCandidates(hs)
	if after := HeroBoundary(snap); after != before {
		t.Fatalf("boundary changed from %v to %v", before, after)
	}
	mustExtract(t, snap)
	if after := HeroBoundary(snap); after != before {
		t.Fatalf("boundary changed after extract: %v vs %v", before, after)
	}
}

func TestExtract_EmptyBody(t *testing.T) {
	snap := mustParse(t, `<html><head><title>Blank</title></head><body></body></html>`)
	if got := HeroBoundary(snap); got != desktop.Height {
		t.Fatalf("expected heroBottom == viewport height, got %v", got)
	}
	fp := mustExtract(t, snap)
	if fp.Headline != nil || fp.Subheadline != nil || fp.PrimaryCTA != nil {
		t.Fatalf("expected null text fields, got %+v", fp)
	}
	if fp.CTAs == nil || len(fp.CTAs) != 0 || fp.CTACount != 0 {
		t.Fatalf("expected empty non-nil CTA list, got %v", fp.CTAs)
	}
	if fp.Stack == nil || len(fp.Stack) != 0 || fp.Media == nil {
		t.Fatalf("expected empty non-nil slices")
	}
	if fp.HasForm || fp.IsCommerceHero || fp.IsShowcaseHero || fp.HasPromotion || fp.IsErrorPage ||
		fp.HasSocialProof || fp.DarkThemeHero || fp.HasAnimation || fp.HasCanvas || fp.InteractiveDemo.Detected {
		t.Fatalf("expected all flags false, got %+v", fp)
	}
	if fp.HeroMediaType != "none" || fp.Layout != LayoutUnknown {
		t.Fatalf("unexpected defaults: media=%q layout=%q", fp.HeroMediaType, fp.Layout)
	}
}

func TestExtract_EmptyFieldsStillEncoded(t *testing.T) {
	fp := mustExtract(t, mustParse(t, `<html><body></body></html>`))
	raw, err := json.Marshal(fp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"headline", "primary_cta", "ctas", "stack", "error_reason", "gradient_tag", "background_color", "interactive_demo"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("expected key %q in output", key)
		}
	}
	if m["headline"] != nil {
		t.Fatalf("expected null headline, got %v", m["headline"])
	}
}

func TestExtract_LogoHeadingFallsBackToLargerText(t *testing.T) {
	snap := mustParse(t, `<html><body>
  <section data-box="0,0,1440,900">
    <div data-box="20,40,120,40">
      <h1 data-box="20,40,80,30" style="font-size:20px"><a href="/">Acme</a></h1>
    </div>
    <div data-box="300,200,900,200">
      <p data-box="300,200,900,80" style="font-size:56px">Ship code faster, together</p>
    </div>
  </section>
</body></html>`)
	fp := mustExtract(t, snap)
	if fp.Headline == nil || *fp.Headline != "Ship code faster, together" {
		t.Fatalf("expected larger text to replace logo heading, got %v", fp.Headline)
	}
	if fp.HeadlineFontSize != 56 {
		t.Fatalf("expected 56px headline, got %v", fp.HeadlineFontSize)
	}
}

func TestExtract_LogoHeadingSharingContainer(t *testing.T) {
	snap := mustParse(t, `<html><body>
  <section data-box="0,0,1440,900">
    <div data-box="20,40,1000,500">
      <h1 data-box="20,40,80,30" style="font-size:20px"><a href="/">Acme</a></h1>
      <p data-box="300,200,900,80" style="font-size:56px">Ship code faster, together</p>
    </div>
  </section>
</body></html>`)
	fp := mustExtract(t, snap)
	if fp.Headline == nil || *fp.Headline != "Ship code faster, together" {
		t.Fatalf("expected logo heading not merged with hero text, got %v", fp.Headline)
	}
}

func TestExtract_NoH1UsesLargestText(t *testing.T) {
	snap := mustParse(t, `<html><body>
  <section data-box="0,0,1440,800">
    <p data-box="100,100,600,20" style="font-size:14px">Announcing our series A</p>
    <div data-box="200,100,900,70" style="font-size:48px">Observability for every request</div>
  </section>
</body></html>`)
	fp := mustExtract(t, snap)
	if fp.Headline == nil || *fp.Headline != "Observability for every request" {
		t.Fatalf("unexpected headline %v", fp.Headline)
	}
}

func TestExtract_OverlongHeadingRejected(t *testing.T) {
	long := "word "
	for i := 0; i < 6; i++ {
		long += long
	}
	snap := mustParse(t, `<html><body><section data-box="0,0,1440,800">
    <h1 data-box="100,100,1200,600" style="font-size:18px">`+long+`</h1>
    <h2 data-box="720,100,800,40" style="font-size:40px">Payments infrastructure for the internet</h2>
  </section></body></html>`)
	fp := mustExtract(t, snap)
	if fp.Headline == nil || *fp.Headline != "Payments infrastructure for the internet" {
		t.Fatalf("expected fallback to candidate, got %v", fp.Headline)
	}
}

const themeFixture = `<html><body>
  <section data-box="0,0,1440,800" style="background-color:%s">
    <h1 data-box="200,100,800,80" style="font-size:64px;color:%s">Build better products</h1>
  </section>
</body></html>`

func TestExtract_DarkTheme(t *testing.T) {
	cases := []struct {
		bg, fg string
		dark   bool
	}{
		{"rgb(10,10,20)", "rgb(255,255,255)", true},
		{"rgb(255,255,255)", "rgb(10,10,20)", false},
		{"rgba(0,0,0,0)", "rgb(255,255,255)", false},
	}
	for _, c := range cases {
		fp := mustExtract(t, mustParse(t, fmt.Sprintf(themeFixture, c.bg, c.fg)))
		if fp.DarkThemeHero != c.dark {
			t.Fatalf("bg=%s fg=%s: expected dark=%v, got %v (bg sample %+v)", c.bg, c.fg, c.dark, fp.DarkThemeHero, fp.BackgroundColor)
		}
	}
}

func TestExtract_GradientBackground(t *testing.T) {
	fp := mustExtract(t, mustParse(t, fmt.Sprintf(themeFixture,
		"transparent;background-image:linear-gradient(90deg, rgba(0,0,0,0) 0%, #1e1b4b 30%, #312e81 60%, #c026d3 100%)", "#fff")))
	if fp.BackgroundColor == nil || fp.BackgroundColor.Hex() != "#1e1b4b" {
		t.Fatalf("expected first opaque stop, got %+v", fp.BackgroundColor)
	}
	if fp.GradientTag == nil || *fp.GradientTag != "blue-magenta-gradient" {
		t.Fatalf("unexpected gradient tag %v", fp.GradientTag)
	}
	if !fp.DarkThemeHero {
		t.Fatalf("expected dark theme over dark gradient")
	}
}

type failingHitTester struct{ panics bool }

func (f failingHitTester) ElementAt(x, y float64) (*render.Node, error) {
	if f.panics {
		panic("renderer went away")
	}
	return nil, errors.New("hit test unavailable")
}

func TestExtract_HitTestFailureDegradesColorOnly(t *testing.T) {
	for _, panics := range []bool{false, true} {
		snap := mustParse(t, fmt.Sprintf(themeFixture, "rgb(10,10,20)", "rgb(255,255,255)"))
		snap.HitTester = failingHitTester{panics: panics}
		fp, err := Extract(snap, Options{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fp.BackgroundColor != nil || fp.DarkThemeHero {
			t.Fatalf("expected background sample dropped, got %+v", fp.BackgroundColor)
		}
		if fp.Headline == nil || fp.TextColor == nil {
			t.Fatalf("expected the rest of the fingerprint intact")
		}
	}
}

func TestExtract_StackSuppression(t *testing.T) {
	snap := mustParse(t, `<html><head>
  <script id="__NEXT_DATA__" type="application/json">{}</script>
  <script>window.React = {};</script>
</head><body><div id="__next" data-reactroot="" data-box="0,0,1440,800"><h1 data-box="100,100,600,60">Hello there world</h1></div></body></html>`)
	fp := mustExtract(t, snap)
	if hasTag(fp.Stack, "react") {
		t.Fatalf("react must be suppressed by nextjs, got %v", fp.Stack)
	}
	if !hasTag(fp.Stack, "nextjs") {
		t.Fatalf("expected nextjs, got %v", fp.Stack)
	}
}

func TestExtract_CommerceCards(t *testing.T) {
	card := func(top, left int, name, price string) string {
		return fmt.Sprintf(`<div class="card" data-box="%d,%d,300,360">
      <img src="/p/%s.jpg" alt="%s" data-box="%d,%d,300,280">
      <p data-box="%d,%d,300,40">%s %s</p>
    </div>`, top, left, name, name, top, left, top+290, left, name, price)
	}
	snap := mustParse(t, `<html><body><main data-box="0,0,1440,900">
    <h1 data-box="60,100,900,56" style="font-size:44px">New season arrivals</h1>`+
		card(200, 100, "Trail Runner", "$129.00")+
		card(200, 500, "Court Classic", "$89.00")+
		card(200, 900, "Road Racer", "€149,00")+
		`</main></body></html>`)
	fp := mustExtract(t, snap)
	if fp.ProductCardCount != 3 {
		t.Fatalf("expected 3 product cards, got %d", fp.ProductCardCount)
	}
	if !fp.IsCommerceHero || fp.AddToCartCount != 0 {
		t.Fatalf("expected commerce without cart buttons, got commerce=%v cart=%d", fp.IsCommerceHero, fp.AddToCartCount)
	}
	if !fp.HasPrice {
		t.Fatalf("expected visible price")
	}
}

func TestExtract_FormsAndAuth(t *testing.T) {
	snap := mustParse(t, `<html><body><section data-box="0,0,1440,800">
    <h1 data-box="100,100,600,60" style="font-size:48px">Welcome back to Ledger</h1>
    <form data-box="200,100,400,240">
      <input type="email" name="email" data-box="200,100,400,40">
      <input type="password" name="password" data-box="250,100,400,40">
      <button type="submit" data-box="300,100,400,40">Sign in</button>
      <a href="/auth/google" data-box="350,100,400,40">Continue with Google</a>
    </form>
  </section></body></html>`)
	fp := mustExtract(t, snap)
	if !fp.HasForm || fp.FormFieldCount != 2 || fp.SingleEmailField {
		t.Fatalf("unexpected form signals: %+v", fp)
	}
	if !fp.HasAuthGate || !fp.HasOAuth {
		t.Fatalf("expected auth gate and OAuth, got gate=%v oauth=%v", fp.HasAuthGate, fp.HasOAuth)
	}
	if fp.PrimaryCTA == nil || *fp.PrimaryCTA != "Sign in" {
		t.Fatalf("OAuth control must not be primary, got %v", fp.PrimaryCTA)
	}
}

func TestExtract_InvalidInput(t *testing.T) {
	if _, err := Extract(nil, Options{}); !errors.Is(err, ErrExtractionFailure) {
		t.Fatalf("expected extraction failure for nil snapshot, got %v", err)
	}
	_, err := Extract(&render.Snapshot{Viewport: desktop}, Options{})
	if !errors.Is(err, ErrExtractionFailure) || !errors.Is(err, render.ErrNoRoot) {
		t.Fatalf("expected wrapped ErrNoRoot, got %v", err)
	}
	snap := mustParse(t, `<html><body></body></html>`)
	snap.Viewport = render.Viewport{}
	if _, err := Extract(snap, Options{}); !errors.Is(err, ErrExtractionFailure) {
		t.Fatalf("expected failure for zero viewport, got %v", err)
	}
}

func TestExtract_LinksDecodedSnapshot(t *testing.T) {
	snap := &render.Snapshot{
		Viewport: desktop,
		Root: &render.Node{Tag: "BODY", Box: render.Box{Width: 1440, Height: 800}, Children: []*render.Node{
			{Tag: "H1", Box: render.Box{Top: 100, Left: 100, Width: 600, Height: 60}, Style: render.Style{FontSize: "48px"},
				Children: []*render.Node{{Text: "Decoded trees work too"}}},
		}},
	}
	fp := mustExtract(t, snap)
	if fp.Headline == nil || *fp.Headline != "Decoded trees work too" {
		t.Fatalf("unexpected headline %v", fp.Headline)
	}
}
