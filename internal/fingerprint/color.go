package fingerprint

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	bgSampleInset    = 4.0
	bgMaxHops        = 10
	darkBgLuminance  = 0.2
	lightTextLum     = 0.7
	greyChroma       = 20
	blackLuminance   = 0.15
	whiteLuminance   = 0.9
	lightLuminance   = 0.7
	maxGradientNames = 3
)

var (
	colorTokenRe = regexp.MustCompile(`(?i)#[0-9a-f]{3,8}\b|rgba?\([^)]*\)|hsla?\([^)]*\)|\b(?:transparent|black|white|red|green|blue|gray|grey|yellow|orange|purple|pink|navy|teal|silver)\b`)
	colorArgSep  = regexp.MustCompile(`[\s,/]+`)
)

var namedColors = map[string]ColorSample{
	"black":  {0, 0, 0, 1},
	"white":  {255, 255, 255, 1},
	"red":    {255, 0, 0, 1},
	"green":  {0, 128, 0, 1},
	"blue":   {0, 0, 255, 1},
	"gray":   {128, 128, 128, 1},
	"grey":   {128, 128, 128, 1},
	"yellow": {255, 255, 0, 1},
	"orange": {255, 165, 0, 1},
	"purple": {128, 0, 128, 1},
	"pink":   {255, 192, 203, 1},
	"navy":   {0, 0, 128, 1},
	"teal":   {0, 128, 128, 1},
	"silver": {192, 192, 192, 1},
}

// ColorSample is a parsed color. Channels are in [0,255], alpha in [0,1].
type ColorSample struct {
	R int     `json:"r" yaml:"r"`
	G int     `json:"g" yaml:"g"`
	B int     `json:"b" yaml:"b"`
	A float64 `json:"a" yaml:"a"`
}

// Hex renders the color as #rrggbb, dropping alpha.
func (c ColorSample) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func newSample(r, g, b, a float64) ColorSample {
	ch := func(v float64) int {
		return int(math.Round(math.Max(0, math.Min(255, v))))
	}
	return ColorSample{R: ch(r), G: ch(g), B: ch(b), A: math.Max(0, math.Min(1, a))}
}

// parseColor reads a single CSS color token: hex, rgb(a), hsl(a), a small set
// of keywords, or transparent.
func parseColor(s string) (ColorSample, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return ColorSample{}, false
	case s == "transparent":
		return ColorSample{}, true
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		return parseRGB(s)
	case strings.HasPrefix(s, "hsl"):
		return parseHSL(s)
	}
	c, ok := namedColors[s]
	return c, ok
}

func parseHex(h string) (ColorSample, bool) {
	switch len(h) {
	case 3, 4:
		var b strings.Builder
		for _, r := range h {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		h = b.String()
	case 6, 8:
	default:
		return ColorSample{}, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return ColorSample{}, false
	}
	if len(h) == 6 {
		return newSample(float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff), 1), true
	}
	return newSample(float64(v>>24&0xff), float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)/255), true
}

// colorArgs splits "rgb(1, 2, 3 / 50%)" into its numeric arguments.
func colorArgs(s string) []string {
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end <= open {
		return nil
	}
	var out []string
	for _, f := range colorArgSep.Split(strings.TrimSpace(s[open+1:end]), -1) {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// number parses a CSS number; percentages scale to full.
func number(v string, full float64) (float64, bool) {
	pct := strings.HasSuffix(v, "%")
	v = strings.TrimSuffix(v, "%")
	v = strings.TrimSuffix(v, "deg")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	if pct {
		return f / 100 * full, true
	}
	return f, true
}

func alphaArg(args []string) (float64, bool) {
	if len(args) < 4 {
		return 1, true
	}
	return number(args[3], 1)
}

func parseRGB(s string) (ColorSample, bool) {
	args := colorArgs(s)
	if len(args) < 3 {
		return ColorSample{}, false
	}
	var ch [3]float64
	for i := 0; i < 3; i++ {
		v, ok := number(args[i], 255)
		if !ok {
			return ColorSample{}, false
		}
		ch[i] = v
	}
	a, ok := alphaArg(args)
	if !ok {
		return ColorSample{}, false
	}
	return newSample(ch[0], ch[1], ch[2], a), true
}

func parseHSL(s string) (ColorSample, bool) {
	args := colorArgs(s)
	if len(args) < 3 {
		return ColorSample{}, false
	}
	h, ok1 := number(args[0], 360)
	sat, ok2 := number(args[1], 1)
	l, ok3 := number(args[2], 1)
	a, ok4 := alphaArg(args)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return ColorSample{}, false
	}
	h = math.Mod(math.Mod(h, 360)+360, 360) / 360
	sat = math.Max(0, math.Min(1, sat))
	l = math.Max(0, math.Min(1, l))
	if sat == 0 {
		return newSample(l*255, l*255, l*255, a), true
	}
	q := l * (1 + sat)
	if l >= 0.5 {
		q = l + sat - l*sat
	}
	p := 2*l - q
	return newSample(
		hueToChannel(p, q, h+1.0/3)*255,
		hueToChannel(p, q, h)*255,
		hueToChannel(p, q, h-1.0/3)*255,
		a,
	), true
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

// gradientStops extracts every parsable color stop in textual order.
func gradientStops(image string) []ColorSample {
	var out []ColorSample
	for _, tok := range colorTokenRe.FindAllString(image, -1) {
		if c, ok := parseColor(tok); ok {
			out = append(out, c)
		}
	}
	return out
}

// firstOpaque returns the first fully opaque stop, else the first visible one.
func firstOpaque(stops []ColorSample) (ColorSample, bool) {
	for _, c := range stops {
		if c.A >= 1 {
			return c, true
		}
	}
	for _, c := range stops {
		if c.A > 0 {
			return c, true
		}
	}
	return ColorSample{}, false
}

// luminance is perceived brightness in [0,1].
func luminance(c ColorSample) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

// colorName buckets a color: greys by low chroma, otherwise the hue sextant,
// with a light- prefix for bright colors.
func colorName(c ColorSample) string {
	maxC := max(c.R, c.G, c.B)
	minC := min(c.R, c.G, c.B)
	lum := luminance(c)
	if maxC-minC < greyChroma {
		switch {
		case lum < blackLuminance:
			return "black"
		case lum > whiteLuminance:
			return "white"
		case lum > 0.6:
			return "light-gray"
		case lum < 0.35:
			return "dark-gray"
		}
		return "gray"
	}
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	d := float64(maxC - minC)
	var hue float64
	switch maxC {
	case c.R:
		hue = math.Mod((g-b)/d, 6)
	case c.G:
		hue = (b-r)/d + 2
	default:
		hue = (r-g)/d + 4
	}
	hue *= 60
	if hue < 0 {
		hue += 360
	}
	var name string
	switch {
	case hue < 30 || hue >= 330:
		name = "red"
	case hue < 90:
		name = "yellow"
	case hue < 150:
		name = "green"
	case hue < 210:
		name = "cyan"
	case hue < 270:
		name = "blue"
	default:
		name = "magenta"
	}
	if lum > lightLuminance {
		return "light-" + name
	}
	return name
}

// gradientTag names up to three consecutive-distinct stop colors.
func gradientTag(stops []ColorSample) string {
	var names []string
	for _, c := range stops {
		if c.A <= 0 {
			continue
		}
		n := colorName(c)
		if len(names) > 0 && names[len(names)-1] == n {
			continue
		}
		names = append(names, n)
		if len(names) == maxGradientNames {
			break
		}
	}
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, "-") + "-gradient"
}

// theme is the color analysis of the hero behind the headline.
type theme struct {
	background *ColorSample
	text       *ColorSample
	gradient   string
	dark       bool
}

// analyzeTheme samples the page just left of the headline's vertical center
// and walks up to ten ancestors for a gradient or a non-transparent
// background. A failing hit test only loses the background sample.
func analyzeTheme(snap *render.Snapshot, h *headline, log zerolog.Logger) theme {
	var t theme
	if h == nil {
		return t
	}
	t.text = textColor(h.node)

	x := math.Max(h.box.Left-bgSampleInset, 0)
	y := h.box.CenterY()
	hit, err := safeElementAt(snap, x, y)
	if err != nil {
		log.Debug().Str("component", "color").Err(err).Float64("x", x).Float64("y", y).Msg("background sample failed")
		return t
	}
	hops := 0
	for n := hit; n != nil && hops <= bgMaxHops; n = n.Parent() {
		hops++
		if img := n.Style.BackgroundImage; strings.Contains(strings.ToLower(img), "gradient") {
			stops := gradientStops(img)
			if c, ok := firstOpaque(stops); ok {
				t.background = &c
				t.gradient = gradientTag(stops)
				break
			}
		}
		if c, ok := parseColor(n.Style.BackgroundColor); ok && c.A > 0 {
			t.background = &c
			break
		}
	}
	t.dark = t.background != nil && t.text != nil &&
		luminance(*t.background) < darkBgLuminance && luminance(*t.text) > lightTextLum
	return t
}

// safeElementAt turns renderer panics into errors.
func safeElementAt(snap *render.Snapshot, x, y float64) (n *render.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = nil, fmt.Errorf("hit test panicked: %v", r)
		}
	}()
	return snap.ElementAt(x, y)
}

func textColor(n *render.Node) *ColorSample {
	for a := n; a != nil; a = a.Parent() {
		if a.IsText() {
			continue
		}
		if c, ok := parseColor(a.Style.Color); ok {
			return &c
		}
	}
	return nil
}
