package index

import (
	"sort"
	"strings"

	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// Node is one entry of a namespace tree.
//
// A node with a children table is interior: a directory, or the namespace
// root when it carries no item. A node without one is a leaf.
type Node struct {
	id     string
	item   *domain.Item
	parent *Node
	dir    *children

	// placeholder marks a directory created only to reach a deeper path id
	placeholder bool
}

// children keeps both views of one directory level. The two maps are
// only ever changed together by attach and detach.
type children struct {
	byName map[string]*Node
	byID   map[string]*Node
}

func newChildren() *children {
	return &children{
		byName: make(map[string]*Node),
		byID:   make(map[string]*Node),
	}
}

// ID returns the last path id component, "" for the root
func (n *Node) ID() string { return n.id }

// Item returns the node payload, nil for the root
func (n *Node) Item() *domain.Item { return n.item }

// Parent returns the parent node, nil for the root
func (n *Node) Parent() *Node { return n.parent }

// IsDir reports whether the node can hold children
func (n *Node) IsDir() bool { return n.dir != nil }

// IsRoot reports whether n is the namespace root
func (n *Node) IsRoot() bool { return n.parent == nil }

// IsPlaceholder reports whether the directory was created implicitly
func (n *Node) IsPlaceholder() bool { return n.placeholder }

// Len returns the number of direct children
func (n *Node) Len() int {
	if n.dir == nil {
		return 0
	}
	return len(n.dir.byID)
}

// Child looks up a direct child by name
func (n *Node) Child(name string) (*Node, bool) {
	if n.dir == nil {
		return nil, false
	}
	c, ok := n.dir.byName[name]
	return c, ok
}

// ChildByID looks up a direct child by path id component
func (n *Node) ChildByID(id string) (*Node, bool) {
	if n.dir == nil {
		return nil, false
	}
	c, ok := n.dir.byID[id]
	return c, ok
}

// PathID returns the full path id of the node
func (n *Node) PathID() string {
	var ids []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		ids = append(ids, cur.id)
	}
	reverse(ids)
	return strings.Join(ids, "/")
}

// Path returns the resolved catalog path of the node
func (n *Node) Path() string {
	var names []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		names = append(names, cur.item.Name)
	}
	reverse(names)
	return strings.Join(names, "/")
}

// Children returns the direct children, directories first, each group
// ordered by name
func (n *Node) Children() []*Node {
	if n.dir == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.dir.byID))
	for _, c := range n.dir.byID {
		out = append(out, c)
	}
	sortNodes(out)
	return out
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		if a.item.Name != b.item.Name {
			return a.item.Name < b.item.Name
		}
		return a.id < b.id
	})
}

// usedIDs collects numeric ids of the children, skipping named entries
// such as the index sentinel
func (n *Node) usedIDs() map[int64]struct{} {
	used := make(map[int64]struct{}, n.Len())
	if n.dir == nil {
		return used
	}
	for id := range n.dir.byID {
		if v, ok := parseNumeric(id); ok {
			used[v] = struct{}{}
		}
	}
	return used
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
