package explain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/heroprint/internal/cache"
	"github.com/hyperifyio/heroprint/internal/fingerprint"
)

type scriptedClient struct {
	calls   int
	fail    int
	content string
	lastReq openai.ChatCompletionRequest
}

func (c *scriptedClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	c.lastReq = req
	if c.calls <= c.fail {
		return openai.ChatCompletionResponse{}, errors.New("upstream unavailable")
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.content},
		}},
	}, nil
}

func sampleFingerprint() fingerprint.Fingerprint {
	h := "Ship code faster, together"
	return fingerprint.Fingerprint{Layout: "centered", Headline: &h, CTAs: []fingerprint.CTA{}, Stack: []string{"nextjs"}}
}

func TestExplain_PromptCarriesFingerprint(t *testing.T) {
	c := &scriptedClient{content: "## What it is\nA dev tool."}
	e := &Explainer{Client: c, Model: "test-model"}
	out, err := e.Explain(context.Background(), "https://example.com", sampleFingerprint())
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.HasPrefix(out, "## What it is") {
		t.Fatalf("unexpected output %q", out)
	}
	if len(c.lastReq.Messages) != 2 || c.lastReq.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("expected system and user messages, got %+v", c.lastReq.Messages)
	}
	user := c.lastReq.Messages[1].Content
	for _, want := range []string{"https://example.com", `"headline": "Ship code faster, together"`, `"nextjs"`} {
		if !strings.Contains(user, want) {
			t.Fatalf("user message missing %q:\n%s", want, user)
		}
	}
}

func TestExplain_RetriesOnce(t *testing.T) {
	c := &scriptedClient{fail: 1, content: "ok"}
	e := &Explainer{Client: c, Model: "m", RetryDelay: time.Millisecond}
	if _, err := e.Explain(context.Background(), "", sampleFingerprint()); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	c2 := &scriptedClient{fail: 2, content: "ok"}
	e2 := &Explainer{Client: c2, Model: "m", RetryDelay: time.Millisecond}
	if _, err := e2.Explain(context.Background(), "", sampleFingerprint()); err == nil {
		t.Fatalf("expected failure after two errors")
	}
	if c2.calls != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", c2.calls)
	}
}

func TestExplain_EmptyAnswer(t *testing.T) {
	e := &Explainer{Client: &scriptedClient{content: "   "}, Model: "m"}
	if _, err := e.Explain(context.Background(), "", sampleFingerprint()); !errors.Is(err, ErrNoExplanation) {
		t.Fatalf("expected ErrNoExplanation, got %v", err)
	}
	if _, err := (&Explainer{}).Explain(context.Background(), "", sampleFingerprint()); err == nil {
		t.Fatalf("expected error when unconfigured")
	}
}

func TestExplain_CachesByModelAndPrompt(t *testing.T) {
	rc := &cache.ResultCache{Dir: t.TempDir()}
	c := &scriptedClient{content: "cached answer"}
	e := &Explainer{Client: c, Model: "m", Cache: rc}
	for i := 0; i < 2; i++ {
		out, err := e.Explain(context.Background(), "https://example.com", sampleFingerprint())
		if err != nil || out != "cached answer" {
			t.Fatalf("call %d: %q err=%v", i, out, err)
		}
	}
	if c.calls != 1 {
		t.Fatalf("expected second call served from cache, got %d calls", c.calls)
	}
	only := &Explainer{Client: c, Model: "other", Cache: rc, CacheOnly: true}
	if _, err := only.Explain(context.Background(), "https://example.com", sampleFingerprint()); !errors.Is(err, ErrNoExplanation) {
		t.Fatalf("expected cache-only miss for another model, got %v", err)
	}
}

func TestOpenAIClient_AgainstStub(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			http.Error(w, "bad auth "+got, http.StatusUnauthorized)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model != "stub-model" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "1",
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:   0,
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "## Stubbed"},
			}},
		})
	}))
	defer srv.Close()

	e := &Explainer{Client: NewOpenAIClient(srv.URL+"/v1/", "secret", srv.Client()), Model: "stub-model"}
	out, err := e.Explain(context.Background(), "https://example.com", sampleFingerprint())
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if out != "## Stubbed" || atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("unexpected output %q after %d hits", out, atomic.LoadInt32(&hits))
	}
}
