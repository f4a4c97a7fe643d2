// Package fingerprint derives a structured summary of a rendered page's
// above-the-fold hero: headline, CTAs, structural and commerce signals,
// technology stack, media and theme. Extraction is a pure, synchronous
// function of a render.Snapshot.
package fingerprint

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/heroprint/internal/render"
)

// ErrExtractionFailure is returned only for structurally invalid input.
// Unusual page content never fails extraction.
var ErrExtractionFailure = errors.New("fingerprint: extraction failure")

// Options tunes an extraction.
type Options struct {
	// Logger receives Debug events for degraded sub-results. Nil is silent.
	Logger *zerolog.Logger
}

// Extract computes the fingerprint of snap. The snapshot must not change
// during the call; it is linked first if needed.
func Extract(snap *render.Snapshot, opt Options) (Fingerprint, error) {
	if snap == nil {
		return Fingerprint{}, fmt.Errorf("%w: nil snapshot", ErrExtractionFailure)
	}
	if snap.Root == nil {
		return Fingerprint{}, fmt.Errorf("%w: %w", ErrExtractionFailure, render.ErrNoRoot)
	}
	if snap.Viewport.Width <= 0 || snap.Viewport.Height <= 0 {
		return Fingerprint{}, fmt.Errorf("%w: invalid viewport %.0fx%.0f", ErrExtractionFailure, snap.Viewport.Width, snap.Viewport.Height)
	}
	if len(snap.Elements()) == 0 {
		if err := snap.Link(); err != nil {
			return Fingerprint{}, fmt.Errorf("%w: %w", ErrExtractionFailure, err)
		}
	}
	logger := zerolog.Nop()
	if opt.Logger != nil {
		logger = *opt.Logger
	}

	vp := snap.Viewport
	fp := empty()
	bottom := HeroBoundary(snap)
	fp.HeroBottom = bottom
	fp.HeroHeightRatio = heightRatio(bottom, vp)

	hs := newHeroSet(snap, bottom)
	cands := heroTextCandidates(hs)
	var hp *headline
	if h, ok := selectHeadline(hs, cands); ok {
		hp = &h
		fp.Headline = strPtr(h.text)
		fp.HeadlineWordCount = wordCount(h.text)
		fp.HeadlineFontSize = h.fontSize
	}

	ctas := extractCTAs(hs, hp)
	fp.CTACount = len(ctas)
	fp.CTAs = ctaList(ctas)
	if len(ctas) > 0 {
		fp.PrimaryCTA = strPtr(ctas[0].text)
	}

	if hp != nil {
		if sub, ok := selectSubheadline(hs, *hp, cands, ctas); ok {
			fp.Subheadline = strPtr(sub)
			fp.SubheadlineWordCount = wordCount(sub)
		}
	}

	forms := detectForms(hs)
	fp.HasForm = forms.HasForm
	fp.FormFieldCount = forms.FieldCount
	fp.SingleEmailField = forms.SingleEmailField
	fp.HasAuthGate = forms.HasAuthGate
	fp.HasOAuth = forms.HasOAuth
	for _, c := range ctas {
		if c.oauth {
			fp.HasOAuth = true
		}
	}
	fp.MaxGridChildren = maxGridChildren(hs)
	fp.HasFilters = hasFilters(hs)

	bullets := detectBullets(hs)
	fp.FeatureBulletCount = bullets.FeatureBullets
	fp.VirtualBulletCount = bullets.VirtualBullets

	media := mediaInventory(hs)
	fp.Media = mediaItems(media)
	fp.HeroMediaType = heroMediaType(media)
	fp.HasAnimation = hasAnimation(hs)
	fp.HasCanvas = hasCanvas(hs)

	proof := detectSocialProof(hs)
	fp.LogoCount = proof.LogoCount
	fp.HasSocialProof = proof.HasSocialProof

	fp.Stack = detectStack(newStackSignals(snap), stackRules)

	promo := detectPromotion(hs.text, ctas)
	fp.HasPromotion = promo.HasPromotion
	fp.PromotionText = strPtr(promo.Text)
	fp.HasPrice = promo.HasPrice

	commerce := detectCommerce(hs, promo.HasPrice)
	fp.ProductCardCount = commerce.ProductCards
	fp.AddToCartCount = commerce.AddToCart
	fp.IsCommerceHero = commerce.IsCommerce

	demo := detectInteractiveDemo(hs)
	fp.InteractiveDemo = demo
	motion := fp.HasAnimation || fp.HasCanvas || hasTag(fp.Stack, "threejs")
	fp.IsShowcaseHero = isShowcase(motion, demo, len(ctas), hs.text)

	bodyText := normalizeText(snap.Body().TextContent())
	if isErr, reason := classifyErrorPage(snap.Title, leadingText(bodyText), hs.text, wordCount(bodyText)); isErr {
		fp.IsErrorPage = true
		fp.ErrorReason = strPtr(reason)
	}

	fp.Alignment = headlineAlignment(hp, vp)
	fp.Layout = heroLayout(hp, fp.Alignment, media, vp)

	th := analyzeTheme(snap, hp, logger)
	fp.DarkThemeHero = th.dark
	fp.BackgroundColor = th.background
	fp.TextColor = th.text
	if th.background != nil {
		fp.BackgroundColorName = strPtr(colorName(*th.background))
	}
	if th.text != nil {
		fp.TextColorName = strPtr(colorName(*th.text))
	}
	fp.GradientTag = strPtr(th.gradient)
	return fp, nil
}
