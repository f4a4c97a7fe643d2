package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ResultCache stores derived results (fingerprints, explanations) as
// <key>.json files.
type ResultCache struct {
	Dir         string
	StrictPerms bool
}

// FingerprintKey identifies the fingerprint of a page captured by a
// renderer at a viewport.
func FingerprintKey(renderer, url string, width, height float64) string {
	return digest(fmt.Sprintf("fingerprint\n%s\n%s\n%gx%g", renderer, strings.TrimSpace(url), width, height))
}

// ExplainKey identifies a model answer for a prompt.
func ExplainKey(model, prompt string) string {
	return digest("explain\n" + model + "\n\n" + prompt)
}

func digest(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func (c *ResultCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	return mkdir(c.Dir, c.StrictPerms)
}

func (c *ResultCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Get returns cached bytes if present. Read errors count as a miss.
func (c *ResultCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.ensureDir(); err != nil {
		return nil, false, err
	}
	p := c.pathFor(key)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, nil
	}
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return b, true, nil
}

// Save writes bytes to the cache atomically.
func (c *ResultCache) Save(_ context.Context, key string, data []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	p := c.pathFor(key)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, fileMode(c.StrictPerms)); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
