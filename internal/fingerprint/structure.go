package fingerprint

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

// FormSignals summarises form and authentication structure in the hero.
type FormSignals struct {
	HasForm          bool
	FieldCount       int
	SingleEmailField bool
	HasAuthGate      bool
	HasOAuth         bool
}

var textFieldTypes = map[string]bool{
	"": true, "text": true, "email": true, "password": true, "tel": true,
	"number": true, "search": true, "url": true,
}

// oauthMarkers are class/id fragments of provider sign-in widgets.
var oauthMarkers = []string{
	"oauth", "social-login", "social-auth", "google-signin", "g_id_signin",
	"gsi-material-button", "appleid-signin", "sign-in-with", "login-with",
	"auth-provider", "firebaseui-idp",
}

var oauthHrefRe = regexp.MustCompile(`(?i)/oauth|accounts\.google\.com|login/oauth|/auth/(google|github|apple|microsoft|gitlab)|/sso\b`)

func isFormField(n *render.Node) bool {
	switch n.Tag {
	case "textarea", "select":
		return true
	case "input":
		return textFieldTypes[strings.ToLower(n.Attr("type"))]
	}
	return false
}

func isEmailField(n *render.Node) bool {
	if n.Tag != "input" {
		return false
	}
	if strings.EqualFold(n.Attr("type"), "email") {
		return true
	}
	hay := strings.ToLower(n.Attr("name") + " " + n.Attr("placeholder") + " " + n.Attr("autocomplete") + " " + n.Attr("id"))
	return strings.Contains(hay, "email") || strings.Contains(hay, "e-mail")
}

// detectForms counts hero fields, flags a lone email capture, password
// fields (inside or outside a <form>) and OAuth affordances.
func detectForms(hs *heroSet) FormSignals {
	var fs FormSignals
	var fields []*render.Node
	for _, n := range hs.content {
		if isFormField(n) {
			fields = append(fields, n)
		}
		if n.Tag == "input" && strings.EqualFold(n.Attr("type"), "password") {
			fs.HasAuthGate = true
		}
		if !fs.HasOAuth && hasOAuthAffordance(n) {
			fs.HasOAuth = true
		}
	}
	fs.FieldCount = len(fields)
	fs.HasForm = fs.FieldCount > 0
	fs.SingleEmailField = len(fields) == 1 && isEmailField(fields[0])
	return fs
}

func oauthMarker(n *render.Node) bool {
	key := n.IDAndClass()
	for _, m := range oauthMarkers {
		if strings.Contains(key, m) {
			return true
		}
	}
	if n.Attr("data-provider") != "" {
		return true
	}
	return oauthHrefRe.MatchString(n.Attr("href"))
}

func hasOAuthAffordance(n *render.Node) bool {
	if oauthMarker(n) {
		return true
	}
	if !isCTAElement(n) {
		return false
	}
	text := ctaLabel(n)
	return oauthProvider.MatchString(text) && oauthVerb.MatchString(text)
}

func isGridContainer(n *render.Node) bool {
	switch strings.ToLower(n.Style.Display) {
	case "grid", "inline-grid":
		return true
	}
	for _, c := range n.Classes() {
		if c == "grid" || strings.HasPrefix(c, "grid-cols-") || strings.Contains(c, ":grid-cols-") {
			return true
		}
	}
	return false
}

func isFlexOrGrid(n *render.Node) bool {
	switch strings.ToLower(n.Style.Display) {
	case "flex", "inline-flex", "grid", "inline-grid":
		return true
	}
	return false
}

func visibleChildren(n *render.Node) []*render.Node {
	var out []*render.Node
	for _, c := range n.ElementChildren() {
		if isVisible(c) {
			out = append(out, c)
		}
	}
	return out
}

// maxGridChildren is the largest visible child count of any hero grid.
func maxGridChildren(hs *heroSet) int {
	best := 0
	for _, n := range hs.content {
		if !isGridContainer(n) {
			continue
		}
		if c := len(visibleChildren(n)); c > best {
			best = c
		}
	}
	return best
}

// hasFilters reports search, select, listbox or checkbox controls.
func hasFilters(hs *heroSet) bool {
	for _, n := range hs.content {
		switch n.Tag {
		case "select":
			return true
		case "input":
			switch strings.ToLower(n.Attr("type")) {
			case "search", "checkbox":
				return true
			}
			ph := strings.ToLower(n.Attr("placeholder"))
			if strings.Contains(ph, "search") || strings.Contains(ph, "filter") {
				return true
			}
		}
		switch n.Role() {
		case "searchbox", "listbox", "combobox", "checkbox":
			return true
		}
	}
	return false
}
