package fingerprint

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

// stackSignals indexes the markup once so every rule is a cheap lookup.
type stackSignals struct {
	globals    map[string]bool
	scripts    []string
	generator  string
	ids        map[string]bool
	tags       map[string]bool
	attrNames  map[string]bool
	classNames map[string]int
}

func newStackSignals(snap *render.Snapshot) *stackSignals {
	s := &stackSignals{
		globals:    map[string]bool{},
		ids:        map[string]bool{},
		tags:       map[string]bool{},
		attrNames:  map[string]bool{},
		classNames: map[string]int{},
		generator:  strings.ToLower(snap.Meta["generator"]),
	}
	for _, g := range snap.Globals {
		s.globals[g] = true
	}
	for _, src := range snap.Scripts {
		s.scripts = append(s.scripts, strings.ToLower(src))
	}
	for _, n := range snap.Elements() {
		s.tags[n.Tag] = true
		for k := range n.Attrs {
			s.attrNames[k] = true
		}
		if id := n.Attr("id"); id != "" {
			s.ids[id] = true
		}
		for _, c := range n.Classes() {
			s.classNames[c]++
		}
	}
	return s
}

// stackRule tags a technology when Match fires. Suppresses names the generic
// tags it makes redundant: they are removed if already present and blocked
// for later rules.
type stackRule struct {
	Tag        string
	Match      func(*stackSignals) bool
	Suppresses []string
}

func global(name string) func(*stackSignals) bool {
	return func(s *stackSignals) bool { return s.globals[name] }
}

func script(fragment string) func(*stackSignals) bool {
	fragment = strings.ToLower(fragment)
	return func(s *stackSignals) bool {
		for _, src := range s.scripts {
			if strings.Contains(src, fragment) {
				return true
			}
		}
		return false
	}
}

func generator(name string) func(*stackSignals) bool {
	return func(s *stackSignals) bool { return strings.Contains(s.generator, name) }
}

func elementID(id string) func(*stackSignals) bool {
	return func(s *stackSignals) bool { return s.ids[id] }
}

func elementTag(tag string) func(*stackSignals) bool {
	return func(s *stackSignals) bool { return s.tags[tag] }
}

func attr(name string) func(*stackSignals) bool {
	return func(s *stackSignals) bool { return s.attrNames[name] }
}

func attrPrefix(prefix string) func(*stackSignals) bool {
	return func(s *stackSignals) bool {
		for k := range s.attrNames {
			if strings.HasPrefix(k, prefix) {
				return true
			}
		}
		return false
	}
}

// classHits fires when at least min class occurrences match the pattern.
// Noisy utility patterns need a higher floor.
func classHits(pattern string, min int) func(*stackSignals) bool {
	re := regexp.MustCompile(pattern)
	return func(s *stackSignals) bool {
		hits := 0
		for c, n := range s.classNames {
			if re.MatchString(c) {
				hits += n
				if hits >= min {
					return true
				}
			}
		}
		return false
	}
}

func anyOf(preds ...func(*stackSignals) bool) func(*stackSignals) bool {
	return func(s *stackSignals) bool {
		for _, p := range preds {
			if p(s) {
				return true
			}
		}
		return false
	}
}

const tailwindPattern = `^(?:[a-z0-9]+:)*(?:-?(?:m|p)[trblxy]?-\d+(?:\.5)?|flex|grid|items-(?:start|center|end)|justify-(?:start|center|end|between)|gap-\d+|text-(?:xs|sm|base|lg|[2-9]?xl|center|left|right)|(?:bg|text|border)-[a-z]+-\d{2,3}|rounded(?:-[a-z0-9]+)?|w-(?:full|\d+)|h-(?:full|\d+)|max-w-[a-z0-9]+|font-(?:bold|semibold|medium))$`

// stackRules is evaluated in order. Meta-frameworks precede the base
// libraries they suppress.
var stackRules = []stackRule{
	{Tag: "nextjs", Suppresses: []string{"react"}, Match: anyOf(global("__NEXT_DATA__"), global("next"), elementID("__next"), script("/_next/"))},
	{Tag: "gatsby", Suppresses: []string{"react"}, Match: anyOf(elementID("___gatsby"), global("___gatsby"))},
	{Tag: "remix", Suppresses: []string{"react"}, Match: anyOf(global("__remixContext"), global("__remixManifest"))},
	{Tag: "docusaurus", Suppresses: []string{"react"}, Match: anyOf(generator("docusaurus"), global("docusaurus"), classHits(`^docusaurus`, 1))},
	{Tag: "framer", Suppresses: []string{"react"}, Match: anyOf(generator("framer"), attrPrefix("data-framer-"), script("framerusercontent.com"))},
	{Tag: "nuxt", Suppresses: []string{"vue"}, Match: anyOf(global("__NUXT__"), global("__NUXT_DATA__"), elementID("__nuxt"), script("/_nuxt/"))},
	{Tag: "vitepress", Suppresses: []string{"vue"}, Match: anyOf(generator("vitepress"), classHits(`^VPNav`, 1), elementID("VPContent"))},
	{Tag: "sveltekit", Suppresses: []string{"svelte"}, Match: anyOf(global("__sveltekit"), attrPrefix("data-sveltekit-"), script("/_app/immutable/"))},
	{Tag: "astro", Match: anyOf(elementTag("astro-island"), attrPrefix("data-astro-cid"), generator("astro"))},
	{Tag: "angular", Match: anyOf(attr("ng-version"), global("ng"), attrPrefix("_ngcontent"))},
	{Tag: "react", Match: anyOf(global("React"), attr("data-reactroot"), global("__REACT_DEVTOOLS_GLOBAL_HOOK__"), script("react-dom"), script("react.production"))},
	{Tag: "vue", Match: anyOf(global("Vue"), global("__VUE__"), attrPrefix("data-v-"), attr("data-server-rendered"))},
	{Tag: "svelte", Match: classHits(`^svelte-[a-z0-9]{4,}$`, 1)},
	{Tag: "webflow", Match: anyOf(generator("webflow"), attr("data-wf-page"), script("webflow"))},
	{Tag: "wordpress", Match: anyOf(generator("wordpress"), script("wp-content"), script("wp-includes"))},
	{Tag: "shopify", Match: anyOf(global("Shopify"), script("cdn.shopify.com"))},
	{Tag: "wix", Match: anyOf(generator("wix"), script("parastorage.com"))},
	{Tag: "squarespace", Match: anyOf(generator("squarespace"), script("squarespace"))},
	{Tag: "tailwind", Match: classHits(tailwindPattern, 8)},
	{Tag: "bootstrap", Match: anyOf(classHits(`^(col-(xs|sm|md|lg|xl)-\d+|btn-primary|navbar-expand(-[a-z]+)?)$`, 3), script("bootstrap"))},
	{Tag: "chakra-ui", Match: classHits(`^chakra-`, 2)},
	{Tag: "mui", Match: classHits(`^Mui[A-Z]`, 2)},
	{Tag: "gsap", Match: anyOf(global("gsap"), global("ScrollTrigger"), script("gsap"))},
	{Tag: "lottie", Match: anyOf(elementTag("lottie-player"), elementTag("dotlottie-player"), global("lottie"), script("lottie"))},
	{Tag: "threejs", Match: anyOf(global("THREE"), global("__THREE__"), script("three.module"), script("three.min"), script("/three@"))},
	{Tag: "vercel", Match: anyOf(script("/_vercel/"), script("vercel-insights"), script("vercel.live"))},
	{Tag: "netlify", Match: script("netlify")},
	{Tag: "cloudflare", Match: anyOf(script("/cdn-cgi/"), script("cloudflareinsights"))},
	{Tag: "google-analytics", Match: anyOf(script("googletagmanager.com"), script("google-analytics.com"), global("gtag"))},
	{Tag: "hubspot", Match: anyOf(script("hs-scripts.com"), script("hubspot"))},
	{Tag: "intercom", Match: anyOf(global("Intercom"), script("widget.intercom.io"))},
	{Tag: "segment", Match: script("cdn.segment.com")},
}

// detectStack evaluates rules in order into an ordered set. Insertion order
// is detection order and tags never repeat.
func detectStack(sig *stackSignals, rules []stackRule) []string {
	out := []string{}
	present := map[string]bool{}
	blocked := map[string]bool{}
	for _, r := range rules {
		if present[r.Tag] || blocked[r.Tag] || !r.Match(sig) {
			continue
		}
		out = append(out, r.Tag)
		present[r.Tag] = true
		for _, s := range r.Suppresses {
			blocked[s] = true
			if present[s] {
				out = removeTag(out, s)
				delete(present, s)
			}
		}
	}
	return out
}

func removeTag(tags []string, tag string) []string {
	kept := tags[:0]
	for _, t := range tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	return kept
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
