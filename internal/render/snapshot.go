package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoRoot is returned when a snapshot carries no root node.
var ErrNoRoot = errors.New("render: snapshot has no root node")

// Viewport is the visible window size in CSS pixels; its height defines the fold.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// HitTester resolves the topmost element at a page coordinate. Renderers
// backed by a live page implement it; the query may fail.
type HitTester interface {
	ElementAt(x, y float64) (*Node, error)
}

// Snapshot is one captured page: the laid-out tree plus page-level metadata
// the renderer could observe (script sources, window globals, meta tags).
type Snapshot struct {
	URL      string            `json:"url,omitempty"`
	Title    string            `json:"title,omitempty"`
	Viewport Viewport          `json:"viewport"`
	Scripts  []string          `json:"scripts,omitempty"`
	Globals  []string          `json:"globals,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
	Root     *Node             `json:"root"`

	// HitTester overrides the geometric hit test when set.
	HitTester HitTester `json:"-"`

	elements []*Node
	byID     map[int]*Node
}

// Decode reads a JSON snapshot as produced by a renderer and links it.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.Link(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Link normalises the tree (lower-case tags, text-node tags) and wires parent,
// sibling and document-order relations. It must run before the snapshot is
// read and is idempotent.
func (s *Snapshot) Link() error {
	if s == nil || s.Root == nil {
		return ErrNoRoot
	}
	s.elements = s.elements[:0]
	s.byID = map[int]*Node{}
	order := 0
	var link func(n, parent *Node, idx int)
	link = func(n, parent *Node, idx int) {
		if n.Tag == "" && n.Text != "" && len(n.Children) == 0 {
			n.Tag = TextTag
		}
		if n.Tag != TextTag {
			n.Tag = strings.ToLower(n.Tag)
		}
		n.parent = parent
		n.index = idx
		n.order = order
		order++
		if n.IsElement() {
			s.elements = append(s.elements, n)
			if n.ID != 0 {
				s.byID[n.ID] = n
			}
		}
		for i, c := range n.Children {
			if c == nil {
				continue
			}
			link(c, n, i)
		}
	}
	// Drop nil children up front so sibling indexes stay dense.
	var compact func(n *Node)
	compact = func(n *Node) {
		kept := n.Children[:0]
		for _, c := range n.Children {
			if c != nil {
				compact(c)
				kept = append(kept, c)
			}
		}
		n.Children = kept
	}
	compact(s.Root)
	link(s.Root, nil, 0)
	return nil
}

// Elements returns every element node in document order.
func (s *Snapshot) Elements() []*Node { return s.elements }

// NodeByID resolves a renderer-assigned node id.
func (s *Snapshot) NodeByID(id int) *Node { return s.byID[id] }

// Body returns the root content container: <body> when present, the root
// otherwise.
func (s *Snapshot) Body() *Node {
	if s == nil || s.Root == nil {
		return nil
	}
	if s.Root.Tag == "body" {
		return s.Root
	}
	for _, c := range s.Root.ElementChildren() {
		if c.Tag == "body" {
			return c
		}
	}
	return s.Root
}

// ElementAt returns the topmost element whose box contains the point. It
// delegates to HitTester when one is installed, otherwise picks the deepest,
// last-painted element among visible boxes.
func (s *Snapshot) ElementAt(x, y float64) (*Node, error) {
	if s.HitTester != nil {
		return s.HitTester.ElementAt(x, y)
	}
	var hit *Node
	for _, n := range s.elements {
		if n.Box.Width <= 0 || n.Box.Height <= 0 {
			continue
		}
		if n.Style.Display == "none" || n.Style.Visibility == "hidden" {
			continue
		}
		if !n.Box.Contains(x, y) {
			continue
		}
		// Later elements in document order paint over earlier ones, which
		// also makes descendants win over their ancestors.
		hit = n
	}
	if hit == nil {
		return nil, fmt.Errorf("render: no element at (%.0f, %.0f)", x, y)
	}
	return hit, nil
}
