package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperifyio/heroprint/internal/render"
)

func TestResolveInputs_OrderAndDedup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "# seed list\nhttps://b.example\n\nhttps://a.example\nhttps://c.example\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Config{
		URLs:          []string{"https://a.example", " https://b.example "},
		URLsFile:      path,
		HTMLPaths:     []string{"page.html"},
		SnapshotPaths: []string{"snap.json"},
	}
	got, err := ResolveInputs(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []Input{
		{KindSnapshot, "snap.json"},
		{KindHTML, "page.html"},
		{KindURL, "https://a.example"},
		{KindURL, "https://b.example"},
		{KindURL, "https://c.example"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d inputs, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("input %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestResolveInputs_Errors(t *testing.T) {
	if _, err := ResolveInputs(Config{}); !errors.Is(err, ErrNoInputs) {
		t.Fatalf("expected ErrNoInputs, got %v", err)
	}
	if _, err := ResolveInputs(Config{URLsFile: filepath.Join(t.TempDir(), "nope.txt")}); err == nil {
		t.Fatalf("expected error for missing urls file")
	}
}

func TestLoadSnapshotFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.snapshot.yaml")
	content := `
url: https://example.com/
title: Example
viewport: {width: 1280, height: 720}
root:
  id: 1
  tag: html
  box: {top: 0, left: 0, width: 1280, height: 720}
  children:
    - id: 2
      tag: body
      box: {top: 0, left: 0, width: 1280, height: 720}
      children:
        - id: 3
          tag: h1
          box: {top: 100, left: 100, width: 500, height: 60}
          children:
            - text: Hello from YAML
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := loadSnapshotFile(path, render.Viewport{Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Viewport.Width != 1280 || snap.NodeByID(3) == nil || snap.NodeByID(3).TextContent() != "Hello from YAML" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestLoadSnapshotFile_DefaultsViewport(t *testing.T) {
	vp := render.Viewport{Width: 1440, Height: 900}
	snap, err := loadSnapshotFile(filepath.Join("testdata", "empty.snapshot.json"), vp)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Viewport != vp {
		t.Fatalf("expected configured viewport, got %+v", snap.Viewport)
	}
}
