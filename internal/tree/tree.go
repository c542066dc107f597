// Package tree prunes and assembles the organizational hierarchies (materials,
// admin regions, suppliers, business units). Trees are values: every operation
// flattens its input into an arena keyed by id and rebuilds new nodes from it.
package tree

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/impact-cli/internal/model"
)

// Node is the capability set the tree operations need. T is the node type
// itself, so WithChildren returns a copy rather than mutating the receiver.
type Node[T any] interface {
	NodeID() string
	NodeParentID() string
	NodeChildren() []T
	WithChildren(children []T) T
}

// Named is a Node that also carries a display name.
type Named[T any] interface {
	Node[T]
	NodeName() string
}

// arena holds detached nodes by id plus the order they were first seen in.
type arena[T Node[T]] struct {
	nodes map[string]T
	order []string
}

func newArena[T Node[T]]() *arena[T] {
	return &arena[T]{nodes: make(map[string]T)}
}

func (a *arena[T]) add(n T) {
	id := n.NodeID()
	if _, ok := a.nodes[id]; ok {
		return
	}
	a.nodes[id] = n.WithChildren(nil)
	a.order = append(a.order, id)
}

// flatten adds every node of forest depth-first, children detached.
func (a *arena[T]) flatten(forest []T) {
	for _, n := range forest {
		a.add(n)
		a.flatten(n.NodeChildren())
	}
}

// Flatten returns every node of forest depth-first with children detached.
func Flatten[T Node[T]](forest []T) []T {
	a := newArena[T]()
	a.flatten(forest)
	out := make([]T, len(a.order))
	for i, id := range a.order {
		out[i] = a.nodes[id]
	}
	return out
}

// IDs returns the ids of every node of forest, depth-first.
func IDs[T Node[T]](forest []T) []string {
	a := newArena[T]()
	a.flatten(forest)
	return a.order
}

// Prune keeps each in-use node together with its direct parent (one level,
// not the full ancestry) and rebuilds parent-child edges among the retained
// nodes. Nodes without a retained parent become roots. Children and roots are
// ordered by the in-use id order; unknown ids are ignored.
func Prune[T Node[T]](forest []T, inUse []string) []T {
	all := newArena[T]()
	all.flatten(forest)

	kept := newArena[T]()
	for _, id := range inUse {
		n, ok := all.nodes[id]
		if !ok {
			continue
		}
		kept.add(n)
		if parent, ok := all.nodes[n.NodeParentID()]; ok {
			kept.add(parent)
		}
	}
	return kept.link()
}

// Build assembles a forest from flat parent-linked nodes, keeping input
// order among siblings and roots.
func Build[T Node[T]](flat []T) []T {
	a := newArena[T]()
	for _, n := range flat {
		a.add(n)
	}
	return a.link()
}

// link rebuilds the edges among the arena's nodes.
func (a *arena[T]) link() []T {
	children := make(map[string][]string, len(a.order))
	var roots []string
	for _, id := range a.order {
		pid := a.nodes[id].NodeParentID()
		if _, ok := a.nodes[pid]; ok && pid != id {
			children[pid] = append(children[pid], id)
			continue
		}
		roots = append(roots, id)
	}

	seen := make(map[string]bool, len(a.order))
	var build func(id string) T
	build = func(id string) T {
		seen[id] = true
		n := a.nodes[id]
		kids := make([]T, 0, len(children[id]))
		for _, c := range children[id] {
			if !seen[c] {
				kids = append(kids, build(c))
			}
		}
		if len(kids) == 0 {
			return n
		}
		return n.WithChildren(kids)
	}

	out := make([]T, 0, len(roots))
	for _, id := range roots {
		out = append(out, build(id))
	}
	return out
}

// DescendantSource resolves ancestry-path descendants.
type DescendantSource interface {
	// Descendants returns the ids of every node whose MPath lies under one
	// of ids. The nodes themselves may or may not be part of the result.
	Descendants(ctx context.Context, kind model.EntityKind, ids []string) ([]string, error)
}

// Descendants expands ids to include all their descendants. The input ids
// come first, in order, followed by the newly found ones. An empty ids means
// "no filter" and is returned unchanged.
func Descendants(ctx context.Context, src DescendantSource, kind model.EntityKind, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return ids, nil
	}
	found, err := src.Descendants(ctx, kind, ids)
	if err != nil {
		return nil, eris.Wrapf(err, "tree: descendants of %s", kind)
	}

	seen := make(map[string]bool, len(ids)+len(found))
	out := make([]string, 0, len(ids)+len(found))
	for _, list := range [][]string{ids, found} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}
