package fingerprint

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/heroprint/internal/render"
)

const (
	optionRowMinItems  = 4
	optionLabelMaxWord = 3
)

var (
	playControlRe = regexp.MustCompile(`(?i)\b(play|pause|listen|speak|record|microphone|mic|generate audio)\b`)
	voiceVocabRe  = regexp.MustCompile(`(?i)\b(voices?|speech|speak|audio|listen|text[- ]to[- ]speech|tts|podcasts?|narrat\w*|voiceover)\b`)
)

// DemoDebug explains the interactive-demo decision.
type DemoDebug struct {
	HasTextInput       bool   `json:"has_text_input" yaml:"has_text_input"`
	HasAudio           bool   `json:"has_audio" yaml:"has_audio"`
	HasPlayControl     bool   `json:"has_play_control" yaml:"has_play_control"`
	HasOptionRow       bool   `json:"has_option_row" yaml:"has_option_row"`
	HasVoiceVocabulary bool   `json:"has_voice_vocabulary" yaml:"has_voice_vocabulary"`
	Detected           bool   `json:"detected" yaml:"detected"`
	Rule               string `json:"rule" yaml:"rule"`
}

// detectInteractiveDemo fuses five primitive signals. A demo is detected when
// any of three pairings holds: a text input with playback, a selectable
// option row with playback or voice wording, or audio with voice wording.
func detectInteractiveDemo(hs *heroSet) DemoDebug {
	var d DemoDebug
	for _, n := range hs.content {
		switch {
		case n.Tag == "textarea",
			n.Tag == "input" && isTextInputType(n.Attr("type")),
			strings.EqualFold(n.Attr("contenteditable"), "true"):
			d.HasTextInput = true
		case n.Tag == "audio":
			d.HasAudio = true
		}
		if !d.HasPlayControl && isCTAElement(n) {
			label := ctaLabel(n) + " " + n.Attr("aria-label") + " " + n.IDAndClass()
			if playControlRe.MatchString(label) {
				d.HasPlayControl = true
			}
		}
		if !d.HasOptionRow && isOptionRow(n) {
			d.HasOptionRow = true
		}
	}
	d.HasVoiceVocabulary = voiceVocabRe.MatchString(hs.text)

	playback := d.HasPlayControl || d.HasAudio
	switch {
	case d.HasTextInput && playback:
		d.Detected, d.Rule = true, "text_input+playback"
	case d.HasOptionRow && (d.HasPlayControl || d.HasVoiceVocabulary):
		d.Detected, d.Rule = true, "option_row+play_or_voice"
	case d.HasAudio && d.HasVoiceVocabulary:
		d.Detected, d.Rule = true, "audio+voice"
	}
	return d
}

func isTextInputType(t string) bool {
	switch strings.ToLower(t) {
	case "", "text", "search":
		return true
	}
	return false
}

// isOptionRow: a flex/grid row of four or more siblings, each an icon or
// avatar with a short label (voice pickers, persona selectors).
func isOptionRow(n *render.Node) bool {
	if !isFlexOrGrid(n) {
		return false
	}
	kids := visibleChildren(n)
	if len(kids) < optionRowMinItems {
		return false
	}
	for _, k := range kids {
		w := wordCount(nodeText(k))
		if w == 0 || w > optionLabelMaxWord || !hasIcon(k) {
			return false
		}
	}
	return true
}
