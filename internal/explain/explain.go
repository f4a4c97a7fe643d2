// Package explain turns a Fingerprint into a short Markdown breakdown using
// a chat model. Answers are cached by model and prompt.
package explain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/heroprint/internal/cache"
	"github.com/hyperifyio/heroprint/internal/fingerprint"
)

const defaultSystemPrompt = `You review landing pages. You are given the URL of a page and a JSON
fingerprint of its hero section produced by heuristics. Write a short
Markdown breakdown with three sections: "What it is", "How it converts"
and "Notable signals". Only state what the fingerprint supports. Do not
invent copy that is not in the fingerprint. Keep it under 200 words.`

// ErrNoExplanation indicates the model produced no usable text.
var ErrNoExplanation = errors.New("explain: empty model response")

// Explainer asks a chat model to describe a fingerprint.
type Explainer struct {
	Client Client
	Model  string
	Cache  *cache.ResultCache
	// SystemPrompt, when non-empty, overrides the default instructions.
	SystemPrompt string
	// CacheOnly returns cached answers and fails when none exists.
	CacheOnly bool
	// RetryDelay is the pause before the single retry. Zero means 250ms.
	RetryDelay time.Duration
}

// Explain returns Markdown describing fp as observed at pageURL.
func (e *Explainer) Explain(ctx context.Context, pageURL string, fp fingerprint.Fingerprint) (string, error) {
	if e.Client == nil || strings.TrimSpace(e.Model) == "" {
		return "", errors.New("explain: not configured")
	}
	system := defaultSystemPrompt
	if strings.TrimSpace(e.SystemPrompt) != "" {
		system = e.SystemPrompt
	}
	user, err := buildUserMessage(pageURL, fp)
	if err != nil {
		return "", err
	}
	key := cache.ExplainKey(e.Model, system+"\n\n"+user)
	if e.Cache != nil {
		if raw, ok, _ := e.Cache.Get(ctx, key); ok {
			var out struct {
				Markdown string `json:"markdown"`
			}
			if err := json.Unmarshal(raw, &out); err == nil && strings.TrimSpace(out.Markdown) != "" {
				log.Debug().Str("url", pageURL).Msg("explanation from cache")
				return out.Markdown, nil
			}
		}
	}
	if e.CacheOnly {
		return "", ErrNoExplanation
	}

	req := openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		N:           1,
	}
	resp, err := e.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("explain call failed; retrying once")
		delay := e.RetryDelay
		if delay <= 0 {
			delay = 250 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		resp, err = e.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("explain call (after retry): %w", err)
		}
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoExplanation
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrNoExplanation
	}
	if e.Cache != nil {
		payload, _ := json.Marshal(map[string]string{"markdown": out})
		_ = e.Cache.Save(ctx, key, payload)
	}
	return out, nil
}

func buildUserMessage(pageURL string, fp fingerprint.Fingerprint) (string, error) {
	b, err := json.MarshalIndent(fp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("explain: encode fingerprint: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("URL: ")
	if strings.TrimSpace(pageURL) == "" {
		sb.WriteString("(local snapshot)")
	} else {
		sb.WriteString(pageURL)
	}
	sb.WriteString("\n\nFingerprint:\n```json\n")
	sb.Write(b)
	sb.WriteString("\n```\n\nOutput only the Markdown.")
	return sb.String(), nil
}
