// Package index implements the dual path/id tree of one catalog namespace.
//
// Every node is reachable both by walking display names from the root and
// by walking path id components. Both views live in the same children table
// of a directory, so they cannot diverge as long as the tree is only changed
// through Index methods.
package index

import (
	"fmt"
	"strconv"

	"github.com/bitdust-io/devel-sub003/internal/core/diff"
	"github.com/bitdust-io/devel-sub003/internal/core/pathid"
	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// Options configures id allocation
type Options struct {
	// Randomized hides creation order behind random sibling ids
	Randomized bool

	// Rand overrides the random source, mostly for tests
	Rand pathid.Rand
}

// Index is the tree of one (owner, key alias) namespace.
// It has no internal locking.
type Index struct {
	root     *Node
	opts     Options
	comparer diff.Comparer
}

// New creates an empty index
func New(opts Options) *Index {
	return &Index{
		root:     &Node{dir: newChildren()},
		opts:     opts,
		comparer: diff.NewDefaultComparer(),
	}
}

// Root returns the namespace root
func (x *Index) Root() *Node {
	return x.root
}

// Empty reports whether the namespace holds no items
func (x *Index) Empty() bool {
	return x.root.Len() == 0
}

// Len counts all items in the namespace
func (x *Index) Len() int {
	n := 0
	x.TraverseByID(func(string, string, *domain.Item) { n++ })
	return n
}

// Clear drops every item
func (x *Index) Clear() {
	x.root = &Node{dir: newChildren()}
}

func (x *Index) allocID(parent *Node) string {
	return strconv.FormatInt(pathid.MakeID(parent.usedIDs(), x.opts.Randomized, x.opts.Rand), 10)
}

func attach(parent, child *Node) {
	child.parent = parent
	parent.dir.byName[child.item.Name] = child
	parent.dir.byID[child.id] = child
}

func detach(child *Node) {
	parent := child.parent
	if parent == nil || parent.dir == nil {
		return
	}
	if parent.dir.byID[child.id] == child {
		delete(parent.dir.byID, child.id)
	}
	if parent.dir.byName[child.item.Name] == child {
		delete(parent.dir.byName, child.item.Name)
	}
	child.parent = nil
}

func newNode(id string, item *domain.Item) *Node {
	n := &Node{id: id, item: item}
	if item.IsDir() {
		n.dir = newChildren()
	}
	return n
}

// evict removes whatever sibling currently holds name, unless it is keep
func evict(parent *Node, name string, keep *Node) {
	if other, ok := parent.dir.byName[name]; ok && other != keep {
		detach(other)
	}
}

// rename moves n to a new display name, evicting a sibling holding it
func rename(n *Node, item *domain.Item) {
	parent := n.parent
	if n.item.Name != item.Name {
		evict(parent, item.Name, n)
		if parent.dir.byName[n.item.Name] == n {
			delete(parent.dir.byName, n.item.Name)
		}
	}
	n.item = item
	parent.dir.byName[item.Name] = n
}

func inheritKey(keyID, inherited string) string {
	if keyID != "" {
		return keyID
	}
	return inherited
}

// ensureDir returns the child directory called name, creating it with id
// (or a fresh id) when missing
func (x *Index) ensureDir(parent *Node, name, keyID, id string) (*Node, bool, error) {
	if n, ok := parent.dir.byName[name]; ok {
		if !n.IsDir() {
			return nil, false, fmt.Errorf("%w: %q", domain.ErrNotDirectory, n.Path())
		}
		return n, false, nil
	}
	if id == "" {
		id = x.allocID(parent)
	} else if _, taken := parent.dir.byID[id]; taken {
		return nil, false, fmt.Errorf("%w: id %s under %q", domain.ErrAlreadyExists, id, parent.PathID())
	}
	n := newNode(id, domain.NewItem(name, "", domain.ItemTypeDir, keyID))
	attach(parent, n)
	n.item.PathID = n.PathID()
	return n, true, nil
}

// AddFile creates every missing directory of path and a file entry for its
// last component. Key ids are inherited from the nearest ancestor when
// keyID is empty. An existing file entry is returned unchanged.
//
// The returned node is the directory holding the file.
func (x *Index) AddFile(path, keyID string) (string, *domain.Item, *Node, error) {
	parts := pathid.Split(path)
	if len(parts) == 0 {
		return "", nil, nil, fmt.Errorf("%w: empty path", domain.ErrInvalidPathID)
	}
	cur := x.root
	inherited := ""
	for _, name := range parts[:len(parts)-1] {
		next, _, err := x.ensureDir(cur, name, inheritKey(keyID, inherited), "")
		if err != nil {
			return "", nil, nil, err
		}
		inherited = next.item.KeyID
		cur = next
	}

	name := parts[len(parts)-1]
	if existing, ok := cur.dir.byName[name]; ok {
		if existing.IsDir() {
			return "", nil, nil, fmt.Errorf("%w: %q", domain.ErrNotFile, existing.Path())
		}
		return existing.PathID(), existing.item, cur, nil
	}
	leaf := newNode(x.allocID(cur), domain.NewItem(name, "", domain.ItemTypeFile, inheritKey(keyID, inherited)))
	attach(cur, leaf)
	leaf.item.PathID = leaf.PathID()
	return leaf.item.PathID, leaf.item, cur, nil
}

// AddDir creates every missing directory of path. When forcePathID is set,
// newly created directories take their id from the matching component of
// forcePathID instead of allocating one.
//
// The returned node is the directory itself.
func (x *Index) AddDir(path, keyID, forcePathID string) (string, *domain.Item, *Node, error) {
	parts := pathid.Split(path)
	if len(parts) == 0 {
		return "", nil, nil, fmt.Errorf("%w: empty path", domain.ErrInvalidPathID)
	}
	var forced []string
	if forcePathID != "" {
		if err := pathid.Validate(forcePathID); err != nil {
			return "", nil, nil, err
		}
		forced = pathid.Split(forcePathID)
	}
	cur := x.root
	inherited := ""
	for i, name := range parts {
		id := ""
		if i < len(forced) {
			id = forced[i]
		}
		next, _, err := x.ensureDir(cur, name, inheritKey(keyID, inherited), id)
		if err != nil {
			return "", nil, nil, err
		}
		inherited = next.item.KeyID
		cur = next
	}
	return cur.PathID(), cur.item, cur, nil
}

// PutItem binds name as a single entry directly under the directory with
// path id parentPathID ("" for the root). The name may contain '/'.
func (x *Index) PutItem(name, parentPathID string, asFolder bool, keyID string) (string, *domain.Item, *Node, error) {
	name = pathid.Normalize(name)
	if name == "" {
		return "", nil, nil, fmt.Errorf("%w: empty name", domain.ErrInvalidPathID)
	}
	parent, _, ok := x.WalkByID(parentPathID)
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: parent %q", domain.ErrNotFound, parentPathID)
	}
	if !parent.IsDir() {
		return "", nil, nil, fmt.Errorf("%w: parent %q", domain.ErrNotDirectory, parentPathID)
	}
	if _, exists := parent.dir.byName[name]; exists {
		return "", nil, nil, fmt.Errorf("%w: %q", domain.ErrAlreadyExists, name)
	}
	typ := domain.ItemTypeFile
	if asFolder {
		typ = domain.ItemTypeDir
	}
	n := newNode(x.allocID(parent), domain.NewItem(name, "", typ, keyID))
	attach(parent, n)
	n.item.PathID = n.PathID()
	return n.item.PathID, n.item, parent, nil
}

// Rename changes the display name of the entry with the given path id
func (x *Index) Rename(pathID, name string) error {
	n, _, ok := x.WalkByID(pathID)
	if !ok || n.IsRoot() {
		return fmt.Errorf("%w: %q", domain.ErrNotFound, pathID)
	}
	if name == "" {
		return fmt.Errorf("%w: empty name", domain.ErrInvalidPathID)
	}
	if other, exists := n.parent.dir.byName[name]; exists && other != n {
		return fmt.Errorf("%w: %q", domain.ErrAlreadyExists, name)
	}
	item := n.item.Clone()
	item.Name = name
	rename(n, item)
	return nil
}

// reachParent walks the id components leading to the entry, creating
// placeholder directories for missing ones
func (x *Index) reachParent(parts []string, keyID string) (*Node, error) {
	cur := x.root
	for _, id := range parts {
		next, ok := cur.dir.byID[id]
		if !ok {
			evict(cur, id, nil)
			next = newNode(id, domain.NewItem(id, "", domain.ItemTypeDir, keyID))
			next.placeholder = true
			attach(cur, next)
			next.item.PathID = next.PathID()
		} else if !next.IsDir() {
			return nil, fmt.Errorf("%w: %q is a file", domain.ErrNotDirectory, next.PathID())
		}
		cur = next
	}
	return cur, nil
}

func splitItemPath(item *domain.Item) ([]string, error) {
	if err := pathid.Validate(item.PathID); err != nil {
		return nil, err
	}
	if item.Name == "" {
		return nil, fmt.Errorf("%w: item %q has no name", domain.ErrInvalidSnapshot, item.PathID)
	}
	return pathid.Split(item.PathID), nil
}

// SetFile places a file item under its already known path id.
// found reports whether an entry with that id existed, modified whether
// anything observable changed. The item is stored as given.
func (x *Index) SetFile(item *domain.Item) (found, modified bool, err error) {
	if item.IsDir() {
		return false, false, fmt.Errorf("%w: %q", domain.ErrNotFile, item.PathID)
	}
	parts, err := splitItemPath(item)
	if err != nil {
		return false, false, err
	}
	parent, err := x.reachParent(parts[:len(parts)-1], item.KeyID)
	if err != nil {
		return false, false, err
	}
	id := parts[len(parts)-1]

	existing, ok := parent.dir.byID[id]
	if !ok {
		evict(parent, item.Name, nil)
		attach(parent, newNode(id, item))
		return false, true, nil
	}
	if existing.IsDir() {
		detach(existing)
		evict(parent, item.Name, nil)
		attach(parent, newNode(id, item))
		return true, true, nil
	}
	if x.comparer.Compare(item, existing.item) == diff.ItemsIdentical {
		return true, false, nil
	}
	rename(existing, item)
	return true, true, nil
}

// SetDir places a directory item under its already known path id,
// replacing a placeholder created earlier for the same id.
func (x *Index) SetDir(item *domain.Item) (found, modified bool, err error) {
	if !item.IsDir() {
		return false, false, fmt.Errorf("%w: %q", domain.ErrNotDirectory, item.PathID)
	}
	parts, err := splitItemPath(item)
	if err != nil {
		return false, false, err
	}
	parent, err := x.reachParent(parts[:len(parts)-1], item.KeyID)
	if err != nil {
		return false, false, err
	}
	id := parts[len(parts)-1]

	existing, ok := parent.dir.byID[id]
	if !ok {
		evict(parent, item.Name, nil)
		attach(parent, newNode(id, item))
		return false, true, nil
	}
	if !existing.IsDir() {
		detach(existing)
		evict(parent, item.Name, nil)
		attach(parent, newNode(id, item))
		return true, true, nil
	}
	wasPlaceholder := existing.placeholder
	existing.placeholder = false
	changed := existing.item.Name != item.Name || existing.item.KeyID != item.KeyID
	rename(existing, item)
	return !wasPlaceholder, changed || wasPlaceholder, nil
}

// DeleteByID removes the entry and everything below it. It returns the
// resolved path of the removed entry.
func (x *Index) DeleteByID(pathID string) (string, bool) {
	n, path, ok := x.WalkByID(pathID)
	if !ok || n.IsRoot() {
		return "", false
	}
	detach(n)
	return path, true
}

// DeleteByPath removes the entry at path and everything below it.
// It returns the path id of the removed entry.
func (x *Index) DeleteByPath(path string) (string, bool) {
	n, id, ok := x.WalkByPath(path)
	if !ok || n.IsRoot() {
		return "", false
	}
	detach(n)
	return id, true
}

func parseNumeric(id string) (int64, bool) {
	v, err := pathid.ParseComponent(id)
	return v, err == nil
}
