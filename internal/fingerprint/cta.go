package fingerprint

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

// CTA priority tiers; lower ranks first.
const (
	tierSelfServe = iota
	tierSales
	tierInfo
	tierOther
	tierNone
)

var tierNames = [...]string{"self_serve", "sales", "info", "other", "none"}

const (
	ctaAboveHeadline   = 40.0
	ctaBelowHeadline   = 420.0
	ctaIdealOffset     = 20.0
	ctaDistanceSlack   = 30.0
	ctaBottomBandFrac  = 0.8
	ctaNearHeadline    = 160.0
	ctaMaxWords        = 8
	ctaMaxChars        = 60
	ctaShortLabelChars = 12
	maxListedCTAs      = 8
)

var (
	tierPatterns = [...]*regexp.Regexp{
		tierSelfServe: regexp.MustCompile(`\b(start|try|get started|sign ?up|create|deploy|join|install|download|build|begin|launch|register|subscribe|claim|get)\b`),
		tierSales:     regexp.MustCompile(`\b(book|schedule|contact|talk to|demo|request|speak)\b`),
		tierInfo:      regexp.MustCompile(`\b(learn|explore|watch|see|discover|read|view|find out|how it works|tour)\b`),
		tierOther:     regexp.MustCompile(`\b(buy|shop|order|add|play|chat|apply|continue|go|compare|browse|upgrade|open|use|listen)\b`),
	}

	legalLinkRe   = regexp.MustCompile(`(?i)\b(privacy|terms|cookies?|legal|imprint|gdpr|do not sell)\b`)
	utilityLinkRe = regexp.MustCompile(`(?i)\b(forgot|reset|lost|recover)\b.*\b(password|username)\b|\bskip to\b|\bback to top\b|^\s*(log ?out|sign ?out|language)\s*$|change language`)
	oauthProvider = regexp.MustCompile(`(?i)\b(google|github|gitlab|apple|microsoft|facebook|twitter|linkedin|slack|okta|sso|saml|bitbucket|discord)\b`)
	oauthVerb     = regexp.MustCompile(`(?i)\b(sign|log|continue|connect|register|join|with)\b`)
)

// footerSocialLabels are single-word labels that are site chrome, not CTAs.
var footerSocialLabels = map[string]bool{
	"about": true, "blog": true, "careers": true, "jobs": true, "press": true,
	"twitter": true, "x": true, "linkedin": true, "facebook": true, "instagram": true,
	"youtube": true, "github": true, "discord": true, "tiktok": true, "help": true,
	"support": true, "faq": true, "status": true, "home": true, "menu": true,
	"close": true, "search": true, "changelog": true, "community": true, "partners": true,
}

var actionPrefixes = []string{
	"start", "try", "get", "sign", "join", "book", "schedule", "contact", "request",
	"buy", "shop", "order", "download", "install", "deploy", "create", "build",
	"learn", "explore", "watch", "see", "view", "discover", "subscribe", "register",
	"launch", "claim", "apply", "chat", "talk", "demo", "free", "go", "continue",
	"play", "add", "listen", "upgrade", "begin",
}

// CTA is one ranked call-to-action in the fingerprint.
type CTA struct {
	Text     string   `json:"text" yaml:"text"`
	Type     string   `json:"type" yaml:"type"`
	Tier     string   `json:"tier" yaml:"tier"`
	IsOAuth  bool     `json:"is_oauth" yaml:"is_oauth"`
	Position Position `json:"position" yaml:"position"`
}

// Position is a node's box in page pixels.
type Position struct {
	Top    float64 `json:"top" yaml:"top"`
	Left   float64 `json:"left" yaml:"left"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

func positionOf(b render.Box) Position {
	return Position{Top: b.Top, Left: b.Left, Width: b.Width, Height: b.Height}
}

type ctaCandidate struct {
	node   *render.Node
	text   string
	native bool
	kind   string
	oauth  bool
	tier   int
	box    render.Box
}

func isCTAElement(n *render.Node) bool {
	switch n.Tag {
	case "button", "a":
		return true
	case "input":
		switch strings.ToLower(n.Attr("type")) {
		case "submit", "button":
			return true
		}
	}
	return n.Role() == "button"
}

func ctaLabel(n *render.Node) string {
	if t := nodeText(n); t != "" {
		return t
	}
	for _, attr := range []string{"aria-label", "value", "title"} {
		if v := normalizeText(n.Attr(attr)); v != "" {
			return v
		}
	}
	return ""
}

// extractCTAs collects actionable hero elements, drops chrome and noise, and
// returns them ranked; the first is the primary CTA. h may be nil.
func extractCTAs(hs *heroSet, h *headline) []ctaCandidate {
	var raw []*render.Node
	for _, n := range hs.content {
		if isCTAElement(n) {
			raw = append(raw, n)
		}
	}
	// Keep the innermost control when controls nest (<a><button>).
	nested := map[*render.Node]bool{}
	for _, n := range raw {
		if p := searchAncestors(n, 0, nil, isCTAElement); p != nil {
			nested[p] = true
		}
	}

	var out []ctaCandidate
	for _, n := range raw {
		if nested[n] {
			continue
		}
		text := ctaLabel(n)
		if text == "" || wordCount(text) > ctaMaxWords || len(text) > ctaMaxChars {
			continue
		}
		if isNoiseCTA(text) {
			continue
		}
		if !ctaInBand(n.Box, h, hs.vp) {
			continue
		}
		native := n.Tag == "button" || n.Tag == "input"
		kind := "link"
		if native || n.Role() == "button" {
			kind = "button"
		}
		out = append(out, ctaCandidate{
			node:   n,
			text:   text,
			native: native,
			kind:   kind,
			oauth:  isOAuthControl(n, text),
			tier:   ctaTier(text),
			box:    n.Box,
		})
	}
	rankCTAs(out, h)
	return out
}

func isNoiseCTA(text string) bool {
	lower := strings.ToLower(text)
	if legalLinkRe.MatchString(lower) || utilityLinkRe.MatchString(lower) {
		return true
	}
	if wordCount(lower) == 1 {
		word := strings.Trim(lower, ".,!?→›»")
		if footerSocialLabels[word] {
			return true
		}
		if len(text) < ctaShortLabelChars && !hasActionPrefix(word) {
			return true
		}
	}
	return false
}

func hasActionPrefix(s string) bool {
	for _, p := range actionPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// ctaInBand keeps controls between 40px above the headline and 420px below
// it. Controls in the bottom fifth of the viewport only count when close to
// the headline.
func ctaInBand(b render.Box, h *headline, vp render.Viewport) bool {
	if h == nil {
		return true
	}
	if b.Top < h.box.Top-ctaAboveHeadline || b.Top > h.box.Bottom()+ctaBelowHeadline {
		return false
	}
	if b.Top > vp.Height*ctaBottomBandFrac && b.Top-h.box.Bottom() > ctaNearHeadline {
		return false
	}
	return true
}

func isOAuthControl(n *render.Node, text string) bool {
	if oauthProvider.MatchString(text) && oauthVerb.MatchString(text) {
		return true
	}
	return oauthMarker(n)
}

// ctaTier classifies by the earliest-starting verb first, then by any verb.
func ctaTier(text string) int {
	lower := strings.ToLower(text)
	for tier, re := range tierPatterns {
		if loc := re.FindStringIndex(lower); loc != nil && loc[0] == 0 {
			return tier
		}
	}
	for tier, re := range tierPatterns {
		if re.MatchString(lower) {
			return tier
		}
	}
	return tierNone
}

// rankCTAs orders candidates: non-OAuth first, native controls before links,
// semantic tier, distance from 20px below the headline in 30px buckets,
// larger area, then left to right.
func rankCTAs(c []ctaCandidate, h *headline) {
	bucket := func(ctaCandidate) int { return 0 }
	if h != nil {
		ideal := h.box.Bottom() + ctaIdealOffset
		bucket = func(x ctaCandidate) int {
			return int(math.Abs(x.box.Top-ideal) / ctaDistanceSlack)
		}
	}
	sort.SliceStable(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.oauth != b.oauth {
			return !a.oauth
		}
		if a.native != b.native {
			return a.native
		}
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if ba, bb := bucket(a), bucket(b); ba != bb {
			return ba < bb
		}
		if aa, ab := a.box.Area(), b.box.Area(); aa != ab {
			return aa > ab
		}
		return a.box.Left < b.box.Left
	})
}

func ctaList(c []ctaCandidate) []CTA {
	out := make([]CTA, 0, len(c))
	for i, cand := range c {
		if i >= maxListedCTAs {
			break
		}
		out = append(out, CTA{
			Text:     cand.text,
			Type:     cand.kind,
			Tier:     tierNames[cand.tier],
			IsOAuth:  cand.oauth,
			Position: positionOf(cand.box),
		})
	}
	return out
}
