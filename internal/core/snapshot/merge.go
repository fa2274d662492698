package snapshot

import (
	"fmt"
	"sort"

	"github.com/bitdust-io/devel-sub003/internal/core/codec"
	"github.com/bitdust-io/devel-sub003/internal/core/index"
	"github.com/bitdust-io/devel-sub003/internal/core/pathid"
	"github.com/bitdust-io/devel-sub003/internal/domain"
	"github.com/bitdust-io/devel-sub003/internal/events"
	"github.com/bitdust-io/devel-sub003/internal/logger"
)

// Namespace is the part of a registry namespace a merge needs
type Namespace interface {
	Index() *index.Index
	Revision() int64
	CommitTo(rev int64) (prev, cur int64)
}

// Scope names the namespace being merged
type Scope struct {
	Owner   domain.Owner
	Alias   string
	BatchID string
}

// Result reports the outcome of one alias merge
type Result struct {
	// Stale is set when the document was not newer than the namespace
	Stale bool

	OldRevision int64
	NewRevision int64

	Processed int
	Modified  int

	// Deleted lists removed path ids, deepest first
	Deleted []string

	// Changed lists file items that are new or carry a different version list
	Changed []*domain.Item
}

// Merger applies received alias documents to namespaces
type Merger struct {
	log      logger.Logger
	listener events.Listener
}

// NewMerger creates a merger. Deletion events for shared aliases go to listener.
func NewMerger(log logger.Logger, listener events.Listener) *Merger {
	if log == nil {
		log = &logger.NullLogger{}
	}
	if listener == nil {
		listener = events.NullListener{}
	}
	return &Merger{log: log, listener: listener}
}

// Merge applies items at revision newRev.
//
// Nothing happens when newRev is not above the current revision. Otherwise
// every item is placed by its path id, every existing item that the document
// does not mention (and every id in deleted) is removed, and the namespace
// revision becomes newRev. The index sentinel is never removed.
func (m *Merger) Merge(ns Namespace, scope Scope, items []*domain.Item, newRev int64, deleted []string) (Result, error) {
	res := Result{OldRevision: ns.Revision(), NewRevision: ns.Revision()}
	if ns.Revision() >= newRev {
		res.Stale = true
		m.log.Debug("Ignoring stale snapshot",
			"owner", scope.Owner, "alias", scope.Alias, "current", ns.Revision(), "received", newRev)
		return res, nil
	}

	x := ns.Index()
	drop := make(map[string]struct{}, len(deleted))
	for _, id := range deleted {
		drop[pathid.Normalize(id)] = struct{}{}
	}

	var apply []*domain.Item
	for _, item := range items {
		if underDropped(item.PathID, drop) {
			continue
		}
		apply = append(apply, item)
	}
	if err := preflight(x, apply); err != nil {
		return res, err
	}
	sort.SliceStable(apply, func(i, j int) bool {
		return pathid.Depth(apply[i].PathID) < pathid.Depth(apply[j].PathID)
	})

	known := make(map[string]struct{}, len(apply))
	for _, item := range apply {
		known[item.PathID] = struct{}{}
		for p := pathid.Parent(item.PathID); p != ""; p = pathid.Parent(p) {
			known[p] = struct{}{}
		}
	}

	// orphans go first, so that a listed item taking over the name of an
	// unlisted one can not detach it unannounced
	orphans := make(map[string]struct{}, len(drop))
	for id := range drop {
		orphans[id] = struct{}{}
	}
	x.TraverseByID(func(id, _ string, _ *domain.Item) {
		if _, ok := known[id]; !ok && id != pathid.Sentinel {
			orphans[id] = struct{}{}
		}
	})
	res.Deleted = m.removeOrphans(x, scope, orphans)
	res.Modified += len(res.Deleted)

	changed := make(map[string]*domain.Item)
	for _, item := range apply {
		modified, err := place(x, item)
		if err != nil {
			// unreachable after preflight
			return res, err
		}
		res.Processed++
		if modified {
			res.Modified++
			if !item.IsDir() {
				changed[item.PathID] = item
			}
		}
	}

	// a rename may have evicted an entry placed earlier in the same pass
	for round := 0; round < 2; round++ {
		replayed := 0
		for _, item := range apply {
			if n, _, ok := x.WalkByID(item.PathID); ok && n.Item().Name == item.Name && n.IsDir() == item.IsDir() {
				continue
			}
			if _, err := place(x, item); err != nil {
				return res, err
			}
			replayed++
		}
		if replayed == 0 {
			break
		}
		m.log.Debug("Replayed evicted items", "alias", scope.Alias, "count", replayed)
	}

	_, res.NewRevision = ns.CommitTo(newRev)

	for id, item := range changed {
		if id == pathid.Sentinel {
			continue
		}
		if n, _, ok := x.WalkByID(id); ok && n.Item() == item {
			res.Changed = append(res.Changed, item)
		}
	}
	sort.Slice(res.Changed, func(i, j int) bool { return res.Changed[i].PathID < res.Changed[j].PathID })

	m.log.Info("Merged snapshot",
		"owner", scope.Owner, "alias", scope.Alias,
		"old_revision", res.OldRevision, "new_revision", res.NewRevision,
		"processed", res.Processed, "modified", res.Modified, "deleted", len(res.Deleted))
	return res, nil
}

func place(x *index.Index, item *domain.Item) (bool, error) {
	var modified bool
	var err error
	if item.IsDir() {
		_, modified, err = x.SetDir(item)
	} else {
		_, modified, err = x.SetFile(item)
	}
	if err != nil {
		return false, fmt.Errorf("can not place %s %q: %w", item.Type, item.PathID, err)
	}
	return modified, nil
}

func underDropped(id string, drop map[string]struct{}) bool {
	for p := id; p != ""; p = pathid.Parent(p) {
		if _, ok := drop[p]; ok {
			return true
		}
	}
	return false
}

// preflight validates the whole document against the current tree before
// anything is changed. Items are applied parents first, so a listed
// directory may replace a local file that its children are placed under.
func preflight(x *index.Index, items []*domain.Item) error {
	dirs := make(map[string]bool, len(items))
	names := make(map[[2]string]string, len(items))
	for _, item := range items {
		if err := pathid.Validate(item.PathID); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
		}
		if item.Name == "" {
			return fmt.Errorf("%w: item %q has no name", domain.ErrInvalidSnapshot, item.PathID)
		}
		if _, dup := dirs[item.PathID]; dup {
			return fmt.Errorf("%w: duplicate path id %q", domain.ErrInvalidSnapshot, item.PathID)
		}
		dirs[item.PathID] = item.IsDir()
		key := [2]string{pathid.Parent(item.PathID), item.Name}
		if other, dup := names[key]; dup {
			return fmt.Errorf("%w: %q and %q share the name %q",
				domain.ErrInvalidSnapshot, other, item.PathID, item.Name)
		}
		names[key] = item.PathID
	}
	for _, item := range items {
		for p := pathid.Parent(item.PathID); p != ""; p = pathid.Parent(p) {
			if isDir, listed := dirs[p]; listed {
				if !isDir {
					return fmt.Errorf("%w: %q is listed as a file but %q is placed under it",
						domain.ErrNotDirectory, p, item.PathID)
				}
				continue
			}
			if n, _, ok := x.WalkByID(p); ok && !n.IsDir() {
				return fmt.Errorf("%w: %q is a file but %q is placed under it",
					domain.ErrNotDirectory, p, item.PathID)
			}
		}
	}
	return nil
}

// removeOrphans deletes the given ids deepest first. Every removed item of
// a shared alias is announced once, before it disappears.
func (m *Merger) removeOrphans(x *index.Index, scope Scope, orphans map[string]struct{}) []string {
	ids := make([]string, 0, len(orphans))
	for id := range orphans {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		di, dj := pathid.Depth(ids[i]), pathid.Depth(ids[j])
		if di != dj {
			return di > dj
		}
		return ids[i] < ids[j]
	})

	shared := codec.IsShared(scope.Alias)
	var removed []string
	for _, id := range ids {
		if _, _, ok := x.WalkByID(id); !ok {
			continue
		}
		if shared {
			// children not listed as orphans go down with their parent
			x.TraverseFrom(id, func(pid, path string, item *domain.Item) {
				e := events.FromItem(events.KindDeleted, scope.Owner, scope.Alias, pid, path, item)
				e.BatchID = scope.BatchID
				m.listener.OnEvent(e)
			})
		}
		if _, ok := x.DeleteByID(id); ok {
			removed = append(removed, id)
		}
	}
	return removed
}
