package fingerprint

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	productCardMaxChars = 300
	minProductCards     = 2
	minAddToCart        = 2
	leadingTextChars    = 300
	shortPageWords      = 200
)

var (
	promotionRe     = regexp.MustCompile(`(?i)\b\d{1,2}\s?% off\b|\bsave (up to )?\d+\s?%|\blimited[- ]time\b|\b(flash |summer |winter |spring )?sale\b|\bdiscount\b|\bpromo(tion)? code\b|\bcoupon\b|\bfree shipping\b|\bblack friday\b|\bcyber monday\b|\boffer ends\b|\bends (soon|today|tonight)\b|\bclearance\b`)
	priceRe         = regexp.MustCompile(`[$€£¥₹]\s?\d[\d,]*(?:[.,]\d{2})?|\b\d[\d,]*(?:[.,]\d{2})?\s?(?:€|(?:USD|EUR|GBP|kr)\b)`)
	transactionalRe = regexp.MustCompile(`(?i)\b(buy|shop|order|add to (cart|bag|basket)|checkout|subscribe|get (it|yours)|claim)\b`)
	addToCartRe     = regexp.MustCompile(`(?i)\badd to (cart|bag|basket)\b|\bbuy now\b`)
	showcaseLangRe  = regexp.MustCompile(`(?i)\b(showcase|portfolio|our work|case stud(y|ies)|gallery|immersive|interactive|experience|3d|webgl)\b`)

	botBlockRe    = regexp.MustCompile(`(?i)access denied|are you a robot|verify (that )?you are (a )?human|captcha|attention required|you have been blocked|request blocked|unusual traffic|just a moment\.\.\.|cloudflare ray id`)
	notFoundRe    = regexp.MustCompile(`(?i)\b404\b|page not found|doesn.?t exist|no longer available`)
	titleMissRe   = regexp.MustCompile(`(?i)\bnot found\b`)
	serverErrorRe = regexp.MustCompile(`(?i)\b50[0234]\b|internal server error|service unavailable|bad gateway|gateway time-?out|something went wrong`)
	genericErrRe  = regexp.MustCompile(`(?i)^\s*(error|oops)\b|\berror\s+\d{3}\b`)
)

// Error-page reasons in priority order.
const (
	ReasonBotBlock    = "bot_block"
	ReasonNotFound    = "not_found"
	ReasonServerError = "server_error"
	ReasonUnknown     = "unknown"
)

// Promotion is the promotional-language signal.
type Promotion struct {
	HasPromotion bool
	Text         string
	HasPrice     bool
}

// detectPromotion: promotional language, or a transactional CTA next to a
// visible price.
func detectPromotion(heroText string, ctas []ctaCandidate) Promotion {
	p := Promotion{HasPrice: priceRe.MatchString(heroText)}
	if m := promotionRe.FindString(heroText); m != "" {
		p.HasPromotion = true
		p.Text = m
		return p
	}
	if p.HasPrice {
		for _, c := range ctas {
			if transactionalRe.MatchString(c.text) {
				p.HasPromotion = true
				return p
			}
		}
	}
	return p
}

// Commerce carries the product-card and cart signals.
type Commerce struct {
	ProductCards int
	AddToCart    int
	IsCommerce   bool
}

// detectCommerce: two or more product cards, or two or more add-to-cart
// actions alongside a price.
func detectCommerce(hs *heroSet, hasPrice bool) Commerce {
	c := Commerce{ProductCards: productCardCount(hs)}
	for _, n := range hs.content {
		if isCTAElement(n) && addToCartRe.MatchString(ctaLabel(n)) {
			c.AddToCart++
		}
	}
	c.IsCommerce = c.ProductCards >= minProductCards || (c.AddToCart >= minAddToCart && hasPrice)
	return c
}

// productCardCount counts the innermost elements holding an image and a
// price within a short text.
func productCardCount(hs *heroSet) int {
	var cards []*render.Node
	for _, n := range hs.content {
		if n.Tag == "img" || n.Tag == "picture" {
			continue
		}
		text := nodeText(n)
		if text == "" || len(text) >= productCardMaxChars || !priceRe.MatchString(text) {
			continue
		}
		if searchDescendants(n, isTag("img", "picture")) == nil {
			continue
		}
		cards = append(cards, n)
	}
	outer := map[*render.Node]bool{}
	for _, c := range cards {
		for a := c.Parent(); a != nil; a = a.Parent() {
			outer[a] = true
		}
	}
	count := 0
	for _, c := range cards {
		if !outer[c] {
			count++
		}
	}
	return count
}

// isShowcase: a motion/canvas/demo signal, plus at most one CTA, showcase
// language, or an interactive demo.
func isShowcase(motion bool, demo DemoDebug, ctaCount int, heroText string) bool {
	if !motion && !demo.Detected {
		return false
	}
	return ctaCount <= 1 || showcaseLangRe.MatchString(heroText) || demo.Detected
}

// classifyErrorPage matches error vocabulary in the title, the leading body
// text and the hero. Body and hero only count on short pages, and generic
// wording only in the title. The reason follows bot-block > not-found >
// server-error > unknown.
func classifyErrorPage(title, leading, hero string, bodyWords int) (bool, string) {
	sources := []string{title}
	if bodyWords < shortPageWords {
		sources = append(sources, leading, hero)
	}
	hit := func(re *regexp.Regexp) bool {
		for _, s := range sources {
			if s != "" && re.MatchString(s) {
				return true
			}
		}
		return false
	}
	switch {
	case hit(botBlockRe):
		return true, ReasonBotBlock
	case hit(notFoundRe) || titleMissRe.MatchString(title):
		return true, ReasonNotFound
	case hit(serverErrorRe):
		return true, ReasonServerError
	case title != "" && genericErrRe.MatchString(title):
		return true, ReasonUnknown
	}
	return false, ""
}

func leadingText(body string) string {
	if len(body) <= leadingTextChars {
		return body
	}
	cut := body[:leadingTextChars]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}
