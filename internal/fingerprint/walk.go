package fingerprint

import "github.com/hyperifyio/heroprint/internal/render"

// searchAncestors walks upward from start (exclusive). It gives up after
// maxHops ancestors (maxHops <= 0 means unbounded) or when stop accepts an
// ancestor; a stopping ancestor is not offered to match.
func searchAncestors(start *render.Node, maxHops int, stop, match func(*render.Node) bool) *render.Node {
	if start == nil {
		return nil
	}
	hops := 0
	for cur := start.Parent(); cur != nil; cur = cur.Parent() {
		if maxHops > 0 && hops >= maxHops {
			return nil
		}
		hops++
		if stop != nil && stop(cur) {
			return nil
		}
		if match(cur) {
			return cur
		}
	}
	return nil
}

// selfOrAncestor reports whether n or any ancestor satisfies pred.
func selfOrAncestor(n *render.Node, pred func(*render.Node) bool) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if pred(cur) {
			return true
		}
	}
	return false
}

// searchDescendants returns the first element below root (root excluded) in
// document order that satisfies match.
func searchDescendants(root *render.Node, match func(*render.Node) bool) *render.Node {
	var found *render.Node
	root.Walk(func(n *render.Node) bool {
		if found != nil {
			return false
		}
		if n != root && match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// countDescendants counts elements below root (root excluded) satisfying match.
func countDescendants(root *render.Node, match func(*render.Node) bool) int {
	count := 0
	root.Walk(func(n *render.Node) bool {
		if n != root && match(n) {
			count++
		}
		return true
	})
	return count
}

// collectDescendants returns all elements below root satisfying match.
func collectDescendants(root *render.Node, match func(*render.Node) bool) []*render.Node {
	var out []*render.Node
	root.Walk(func(n *render.Node) bool {
		if n != root && match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func isTag(tags ...string) func(*render.Node) bool {
	return func(n *render.Node) bool {
		for _, t := range tags {
			if n.Tag == t {
				return true
			}
		}
		return false
	}
}
