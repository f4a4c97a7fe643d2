package fingerprint

// Fingerprint summarises a page's hero. Every field is always present in
// encoded output; absent signals are false, zero, null or empty.
type Fingerprint struct {
	Layout          string  `json:"layout" yaml:"layout"`
	Alignment       string  `json:"alignment" yaml:"alignment"`
	HeroHeightRatio float64 `json:"hero_height_ratio" yaml:"hero_height_ratio"`
	HeroBottom      float64 `json:"hero_bottom" yaml:"hero_bottom"`

	Headline             *string `json:"headline" yaml:"headline"`
	Subheadline          *string `json:"subheadline" yaml:"subheadline"`
	HeadlineWordCount    int     `json:"headline_word_count" yaml:"headline_word_count"`
	SubheadlineWordCount int     `json:"subheadline_word_count" yaml:"subheadline_word_count"`
	HeadlineFontSize     float64 `json:"headline_font_size" yaml:"headline_font_size"`

	CTACount   int     `json:"cta_count" yaml:"cta_count"`
	PrimaryCTA *string `json:"primary_cta" yaml:"primary_cta"`
	CTAs       []CTA   `json:"ctas" yaml:"ctas"`

	HasForm          bool `json:"has_form" yaml:"has_form"`
	FormFieldCount   int  `json:"form_field_count" yaml:"form_field_count"`
	SingleEmailField bool `json:"single_email_field" yaml:"single_email_field"`
	HasAuthGate      bool `json:"has_auth_gate" yaml:"has_auth_gate"`
	HasOAuth         bool `json:"has_oauth" yaml:"has_oauth"`
	MaxGridChildren  int  `json:"max_grid_children" yaml:"max_grid_children"`
	HasFilters       bool `json:"has_filters" yaml:"has_filters"`

	Stack []string `json:"stack" yaml:"stack"`

	IsCommerceHero     bool    `json:"is_commerce_hero" yaml:"is_commerce_hero"`
	ProductCardCount   int     `json:"product_card_count" yaml:"product_card_count"`
	AddToCartCount     int     `json:"add_to_cart_count" yaml:"add_to_cart_count"`
	HasPrice           bool    `json:"has_price" yaml:"has_price"`
	IsShowcaseHero     bool    `json:"is_showcase_hero" yaml:"is_showcase_hero"`
	HasPromotion       bool    `json:"has_promotion" yaml:"has_promotion"`
	PromotionText      *string `json:"promotion_text" yaml:"promotion_text"`
	IsErrorPage        bool    `json:"is_error_page" yaml:"is_error_page"`
	ErrorReason        *string `json:"error_reason" yaml:"error_reason"`
	FeatureBulletCount int     `json:"feature_bullet_count" yaml:"feature_bullet_count"`
	VirtualBulletCount int     `json:"virtual_bullet_count" yaml:"virtual_bullet_count"`
	HasSocialProof     bool    `json:"has_social_proof" yaml:"has_social_proof"`
	LogoCount          int     `json:"logo_count" yaml:"logo_count"`
	HasAnimation       bool    `json:"has_animation" yaml:"has_animation"`
	HasCanvas          bool    `json:"has_canvas" yaml:"has_canvas"`

	DarkThemeHero       bool         `json:"dark_theme_hero" yaml:"dark_theme_hero"`
	BackgroundColor     *ColorSample `json:"background_color" yaml:"background_color"`
	TextColor           *ColorSample `json:"text_color" yaml:"text_color"`
	BackgroundColorName *string      `json:"background_color_name" yaml:"background_color_name"`
	TextColorName       *string      `json:"text_color_name" yaml:"text_color_name"`
	GradientTag         *string      `json:"gradient_tag" yaml:"gradient_tag"`

	HeroMediaType string      `json:"hero_media_type" yaml:"hero_media_type"`
	Media         []MediaItem `json:"media" yaml:"media"`

	InteractiveDemo DemoDebug `json:"interactive_demo" yaml:"interactive_demo"`
}

// empty returns the fingerprint of a page with no hero content.
func empty() Fingerprint {
	return Fingerprint{
		Layout:        LayoutUnknown,
		Alignment:     AlignUnknown,
		CTAs:          []CTA{},
		Stack:         []string{},
		HeroMediaType: "none",
		Media:         []MediaItem{},
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
