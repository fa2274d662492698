package index

import (
	"fmt"
	"iter"

	"github.com/bitdust-io/devel-sub003/internal/core/pathid"
	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// Entry is one visited item
type Entry struct {
	PathID string
	Path   string
	Item   *domain.Item
	Node   *Node
}

// WalkByPath resolves a catalog path to its node and path id.
// A name bound by PutItem may contain '/', so at every level the whole
// remaining path is tried as one name before its first component.
// The empty path resolves to the root.
func (x *Index) WalkByPath(path string) (*Node, string, bool) {
	p := pathid.Normalize(path)
	if p == "" {
		return x.root, "", true
	}
	parts := pathid.Split(p)
	cur := x.root
	for i, name := range parts {
		if cur.dir == nil {
			return nil, "", false
		}
		if i < len(parts)-1 {
			if n, ok := cur.dir.byName[pathid.Join(parts[i:]...)]; ok {
				return n, n.PathID(), true
			}
		}
		next, ok := cur.dir.byName[name]
		if !ok {
			return nil, "", false
		}
		cur = next
	}
	return cur, cur.PathID(), true
}

// WalkByID resolves a path id to its node and catalog path.
// The empty id resolves to the root.
func (x *Index) WalkByID(id string) (*Node, string, bool) {
	cur := x.root
	for _, c := range pathid.Split(id) {
		if cur.dir == nil {
			return nil, "", false
		}
		next, ok := cur.dir.byID[c]
		if !ok {
			return nil, "", false
		}
		cur = next
	}
	return cur, cur.Path(), true
}

// TraverseByID visits every item in pre-order, siblings in no particular order
func (x *Index) TraverseByID(fn func(pathID, path string, item *domain.Item)) {
	traverse(x.root, "", "", func(n *Node, pathID, path string) {
		fn(pathID, path, n.item)
	})
}

// TraverseFrom visits the node with the given path id and everything below it.
// It returns false when the id does not exist.
func (x *Index) TraverseFrom(pathID string, fn func(pathID, path string, item *domain.Item)) bool {
	n, path, ok := x.WalkByID(pathID)
	if !ok {
		return false
	}
	if !n.IsRoot() {
		fn(n.PathID(), path, n.item)
	}
	traverse(n, n.PathID(), path, func(c *Node, pathID, path string) {
		fn(pathID, path, c.item)
	})
	return true
}

func traverse(n *Node, pathID, path string, fn func(n *Node, pathID, path string)) {
	if n.dir == nil {
		return
	}
	for id, c := range n.dir.byID {
		cid, cpath := join(pathID, id), join(path, c.item.Name)
		fn(c, cid, cpath)
		traverse(c, cid, cpath, fn)
	}
}

// TraverseByIDSorted visits every item in pre-order. At each level
// directories come first, then files, each group ordered by name.
func (x *Index) TraverseByIDSorted(fn func(pathID, path string, item *domain.Item, hasChilds bool)) {
	var walk func(n *Node, pathID, path string)
	walk = func(n *Node, pathID, path string) {
		for _, c := range n.Children() {
			cid, cpath := join(pathID, c.id), join(path, c.item.Name)
			fn(cid, cpath, c.item, c.Len() > 0)
			if c.IsDir() {
				walk(c, cid, cpath)
			}
		}
	}
	walk(x.root, "", "")
}

// TraverseChildsByID lists the direct children of the directory with the
// given path id, directories first. It returns false when pathID does not
// name a directory.
func (x *Index) TraverseChildsByID(pathID string, fn func(typ domain.ItemType, name, pathID string, item *domain.Item, numChilds int)) bool {
	n, _, ok := x.WalkByID(pathID)
	if !ok || !n.IsDir() {
		return false
	}
	base := n.PathID()
	for _, c := range n.Children() {
		typ := domain.ItemTypeFile
		if c.IsDir() {
			typ = domain.ItemTypeDir
		}
		fn(typ, c.item.Name, join(base, c.id), c.item, c.Len())
	}
	return true
}

// IterateIDs returns a lazy depth-first sequence over all items. Every
// call starts again from the root.
func (x *Index) IterateIDs() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		var walk func(n *Node, pathID, path string) bool
		walk = func(n *Node, pathID, path string) bool {
			if n.dir == nil {
				return true
			}
			for id, c := range n.dir.byID {
				cid, cpath := join(pathID, id), join(path, c.item.Name)
				if !yield(Entry{PathID: cid, Path: cpath, Item: c.item, Node: c}) {
					return false
				}
				if !walk(c, cid, cpath) {
					return false
				}
			}
			return true
		}
		walk(x.root, "", "")
	}
}

// Check verifies that the by-name and by-id views agree on every level
func (x *Index) Check() error {
	var check func(n *Node) error
	check = func(n *Node) error {
		if n.dir == nil {
			return nil
		}
		if len(n.dir.byID) != len(n.dir.byName) {
			return fmt.Errorf("%w: %q has %d ids but %d names",
				domain.ErrIndexCorrupted, n.PathID(), len(n.dir.byID), len(n.dir.byName))
		}
		for id, c := range n.dir.byID {
			if c.item == nil {
				return fmt.Errorf("%w: %q has no item", domain.ErrIndexCorrupted, join(n.PathID(), id))
			}
			if c.id != id || c.parent != n {
				return fmt.Errorf("%w: %q is linked under the wrong id", domain.ErrIndexCorrupted, join(n.PathID(), id))
			}
			if n.dir.byName[c.item.Name] != c {
				return fmt.Errorf("%w: name %q does not lead to id %q", domain.ErrIndexCorrupted, c.item.Name, c.PathID())
			}
			if c.IsDir() != c.item.IsDir() {
				return fmt.Errorf("%w: %q is a %s stored as the other variant", domain.ErrIndexCorrupted, c.PathID(), c.item.Type)
			}
			if err := check(c); err != nil {
				return err
			}
		}
		return nil
	}
	return check(x.root)
}

func join(head, tail string) string {
	if head == "" {
		return tail
	}
	if tail == "" {
		return head
	}
	return head + "/" + tail
}
