// Package catalog is the public face of the backup index: it composes the
// namespace registry, the dual path/id trees, the snapshot codec and merge,
// and the local file-I/O collaborators into the operations the rest of the
// node calls.
//
// A Catalog has no internal locking. Callers serialize access; distinct
// namespaces are independent of each other.
package catalog

import (
	"fmt"

	"github.com/bitdust-io/devel-sub003/internal/adapter"
	"github.com/bitdust-io/devel-sub003/internal/core/codec"
	"github.com/bitdust-io/devel-sub003/internal/core/index"
	"github.com/bitdust-io/devel-sub003/internal/core/pathid"
	"github.com/bitdust-io/devel-sub003/internal/core/snapshot"
	"github.com/bitdust-io/devel-sub003/internal/domain"
	"github.com/bitdust-io/devel-sub003/internal/events"
	"github.com/bitdust-io/devel-sub003/internal/logger"
	"github.com/bitdust-io/devel-sub003/internal/registry"
	"github.com/bitdust-io/devel-sub003/internal/state"
)

// History stores one record per merge attempt
type History interface {
	SaveMerge(record state.MergeRecord) error
}

// Options wires a catalog to its collaborators. Every field is optional;
// operations needing a missing adapter fail with an error.
type Options struct {
	// Source holds the local files that catalog paths refer to
	Source adapter.Adapter

	// Backups holds version fragments under "<alias>$<owner>/<path id>/<version>/"
	Backups adapter.Adapter

	// Index holds one index file per key id
	Index adapter.Adapter

	// Resolver maps owner ids found in index files to owner handles.
	// Defaults to accepting every well-formed owner id.
	Resolver domain.OwnerResolver

	Listener events.Listener
	History  History
	Logger   logger.Logger

	// RandomIDs hides creation order behind random sibling ids
	RandomIDs bool
	Rand      pathid.Rand
}

// Catalog holds every namespace of the process
type Catalog struct {
	reg      *registry.Registry
	source   adapter.Adapter
	backups  adapter.Adapter
	indexes  adapter.Adapter
	resolver domain.OwnerResolver
	listener events.Listener
	history  History
	log      logger.Logger
	merger   *snapshot.Merger

	// dirty namespaces have local changes not yet covered by a revision
	dirty map[registry.Key]bool

	// pending holds documents of owners that could not be resolved yet
	pending []pendingDoc
}

// New creates an empty catalog
func New(opts Options) *Catalog {
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	listener := opts.Listener
	if listener == nil {
		listener = events.NullListener{}
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = domain.AnyResolver{}
	}
	return &Catalog{
		reg:      registry.New(index.Options{Randomized: opts.RandomIDs, Rand: opts.Rand}),
		source:   opts.Source,
		backups:  opts.Backups,
		indexes:  opts.Index,
		resolver: resolver,
		listener: listener,
		history:  opts.History,
		log:      log,
		merger:   snapshot.NewMerger(log, listener),
		dirty:    make(map[registry.Key]bool),
	}
}

// Registry exposes the namespaces
func (c *Catalog) Registry() *registry.Registry {
	return c.reg
}

func aliasOf(alias string) string {
	if alias == "" {
		return domain.DefaultKeyAlias
	}
	return alias
}

func (c *Catalog) lookup(owner domain.Owner, alias string) (*index.Index, bool) {
	ns, ok := c.reg.Lookup(owner, aliasOf(alias))
	if !ok {
		return nil, false
	}
	return ns.Index(), true
}

func (c *Catalog) touch(owner domain.Owner, alias string) *registry.Namespace {
	ns := c.reg.Namespace(owner, aliasOf(alias))
	c.dirty[ns.Key()] = true
	return ns
}

// Namespaces lists every known (owner, alias) pair
func (c *Catalog) Namespaces() []registry.Key {
	return c.reg.Keys()
}

// Revision returns the revision of a namespace, registry.NeverSynced if unknown
func (c *Catalog) Revision(owner domain.Owner, alias string) int64 {
	ns, ok := c.reg.Lookup(owner, aliasOf(alias))
	if !ok {
		return registry.NeverSynced
	}
	return ns.Revision()
}

// Dirty reports whether the namespace has uncommitted local changes
func (c *Catalog) Dirty(owner domain.Owner, alias string) bool {
	return c.dirty[registry.Key{Owner: owner, Alias: aliasOf(alias)}]
}

// Commit covers the local changes of a namespace with a new revision.
// The first commit of a never synced namespace yields revision 1.
func (c *Catalog) Commit(owner domain.Owner, alias string) int64 {
	ns := c.reg.Namespace(owner, aliasOf(alias))
	_, rev := ns.Commit()
	delete(c.dirty, ns.Key())
	return rev
}

// AddFile creates a file entry and any missing parent directories under the
// namespace selected by keyID. An existing file is returned unchanged.
func (c *Catalog) AddFile(owner domain.Owner, path, keyID string) (string, *domain.Item, error) {
	ns := c.touch(owner, codec.KeyAlias(keyID))
	id, item, _, err := ns.Index().AddFile(path, keyID)
	if err != nil {
		return "", nil, err
	}
	c.log.Debug("Added file", "owner", owner, "alias", ns.Key().Alias, "path_id", id)
	return id, item, nil
}

// AddDir creates every missing directory of path. forcePathID replays a
// known id sequence instead of allocating fresh ids.
func (c *Catalog) AddDir(owner domain.Owner, path, keyID, forcePathID string) (string, *domain.Item, error) {
	ns := c.touch(owner, codec.KeyAlias(keyID))
	id, item, _, err := ns.Index().AddDir(path, keyID, forcePathID)
	if err != nil {
		return "", nil, err
	}
	c.log.Debug("Added directory", "owner", owner, "alias", ns.Key().Alias, "path_id", id)
	return id, item, nil
}

// PutItem binds name as a new entry directly under parentPathID
func (c *Catalog) PutItem(owner domain.Owner, name, parentPathID string, asFolder bool, keyID string) (string, *domain.Item, error) {
	ns := c.touch(owner, codec.KeyAlias(keyID))
	id, item, _, err := ns.Index().PutItem(name, parentPathID, asFolder, keyID)
	if err != nil {
		return "", nil, err
	}
	return id, item, nil
}

// Rename changes the display name of an entry, keeping its path id
func (c *Catalog) Rename(owner domain.Owner, alias, pathID, name string) error {
	if _, ok := c.lookup(owner, alias); !ok {
		return fmt.Errorf("%w: namespace %s", domain.ErrNotFound, codec.MakeKeyID(aliasOf(alias), owner))
	}
	return c.touch(owner, alias).Index().Rename(pathID, name)
}

// ToID resolves a catalog path to its path id
func (c *Catalog) ToID(owner domain.Owner, alias, path string) (string, bool) {
	x, ok := c.lookup(owner, alias)
	if !ok {
		return "", false
	}
	n, id, ok := x.WalkByPath(path)
	if !ok || n.IsRoot() {
		return "", false
	}
	return id, true
}

// ToPath resolves a path id to its catalog path
func (c *Catalog) ToPath(owner domain.Owner, alias, pathID string) (string, bool) {
	x, ok := c.lookup(owner, alias)
	if !ok {
		return "", false
	}
	n, path, ok := x.WalkByID(pathID)
	if !ok || n.IsRoot() {
		return "", false
	}
	return path, true
}

func (c *Catalog) nodeByID(owner domain.Owner, alias, pathID string) (*index.Node, bool) {
	x, ok := c.lookup(owner, alias)
	if !ok {
		return nil, false
	}
	n, _, ok := x.WalkByID(pathID)
	if !ok || n.IsRoot() {
		return nil, false
	}
	return n, true
}

func (c *Catalog) nodeByPath(owner domain.Owner, alias, path string) (*index.Node, bool) {
	x, ok := c.lookup(owner, alias)
	if !ok {
		return nil, false
	}
	n, _, ok := x.WalkByPath(path)
	if !ok || n.IsRoot() {
		return nil, false
	}
	return n, true
}

// GetByID returns the item with the given path id
func (c *Catalog) GetByID(owner domain.Owner, alias, pathID string) (*domain.Item, bool) {
	n, ok := c.nodeByID(owner, alias, pathID)
	if !ok {
		return nil, false
	}
	return n.Item(), true
}

// GetByPath returns the item at the given catalog path
func (c *Catalog) GetByPath(owner domain.Owner, alias, path string) (*domain.Item, bool) {
	n, ok := c.nodeByPath(owner, alias, path)
	if !ok {
		return nil, false
	}
	return n.Item(), true
}

func (c *Catalog) IsDir(owner domain.Owner, alias, path string) bool {
	n, ok := c.nodeByPath(owner, alias, path)
	return ok && n.IsDir()
}

func (c *Catalog) IsFile(owner domain.Owner, alias, path string) bool {
	n, ok := c.nodeByPath(owner, alias, path)
	return ok && !n.IsDir()
}

func (c *Catalog) IsDirID(owner domain.Owner, alias, pathID string) bool {
	n, ok := c.nodeByID(owner, alias, pathID)
	return ok && n.IsDir()
}

func (c *Catalog) IsFileID(owner domain.Owner, alias, pathID string) bool {
	n, ok := c.nodeByID(owner, alias, pathID)
	return ok && !n.IsDir()
}

func (c *Catalog) Exists(owner domain.Owner, alias, path string) bool {
	_, ok := c.nodeByPath(owner, alias, path)
	return ok
}

func (c *Catalog) ExistsID(owner domain.Owner, alias, pathID string) bool {
	_, ok := c.nodeByID(owner, alias, pathID)
	return ok
}

// ExistsBackupID reports whether the item named by a backup id carries its version
func (c *Catalog) ExistsBackupID(backupID string) bool {
	b, err := codec.ParseBackupID(backupID)
	if err != nil {
		return false
	}
	item, ok := c.GetByID(b.Owner, b.KeyAlias, b.PathID)
	return ok && item.HasVersion(b.Version)
}

// HasChilds reports whether the directory at path has entries
func (c *Catalog) HasChilds(owner domain.Owner, alias, path string) bool {
	n, ok := c.nodeByPath(owner, alias, path)
	return ok && n.Len() > 0
}

func (c *Catalog) HasChildsID(owner domain.Owner, alias, pathID string) bool {
	n, ok := c.nodeByID(owner, alias, pathID)
	return ok && n.Len() > 0
}

// DeleteByID removes an entry with everything below it and returns its path
func (c *Catalog) DeleteByID(owner domain.Owner, alias, pathID string) (string, bool) {
	x, ok := c.lookup(owner, alias)
	if !ok {
		return "", false
	}
	path, ok := x.DeleteByID(pathID)
	if ok {
		c.touch(owner, alias)
		c.log.Debug("Deleted item", "owner", owner, "alias", aliasOf(alias), "path_id", pathID)
	}
	return path, ok
}

// DeleteByPath removes an entry with everything below it and returns its path id
func (c *Catalog) DeleteByPath(owner domain.Owner, alias, path string) (string, bool) {
	x, ok := c.lookup(owner, alias)
	if !ok {
		return "", false
	}
	id, ok := x.DeleteByPath(path)
	if ok {
		c.touch(owner, alias)
		c.log.Debug("Deleted item", "owner", owner, "alias", aliasOf(alias), "path_id", id)
	}
	return id, ok
}

// DeleteBackupID removes one version label from its item. The item stays
// even when no version is left.
func (c *Catalog) DeleteBackupID(backupID string) error {
	b, err := codec.ParseBackupID(backupID)
	if err != nil {
		return err
	}
	item, ok := c.GetByID(b.Owner, b.KeyAlias, b.PathID)
	if !ok {
		return fmt.Errorf("%w: item %s", domain.ErrNotFound, b.GlobalPathID())
	}
	if !item.DeleteVersion(b.Version) {
		c.log.Warn("Version not found", "backup_id", backupID)
		return fmt.Errorf("%w: version %s", domain.ErrNotFound, backupID)
	}
	c.touch(b.Owner, b.KeyAlias)
	return nil
}

// Clear drops every item of a namespace, keeping its revision
func (c *Catalog) Clear(owner domain.Owner, alias string) {
	if ns, ok := c.reg.Lookup(owner, aliasOf(alias)); ok {
		ns.Clear()
		c.dirty[ns.Key()] = true
	}
}

// ClearAll drops every namespace together with pending documents
func (c *Catalog) ClearAll() {
	c.reg.ClearAll()
	c.dirty = make(map[registry.Key]bool)
	c.pending = nil
}

// Forget drops the known revision so that the next received snapshot is
// accepted whatever its revision
func (c *Catalog) Forget(owner domain.Owner, alias string) {
	if ns, ok := c.reg.Lookup(owner, aliasOf(alias)); ok {
		ns.Forget()
	}
}

// Remove drops a namespace together with its revision
func (c *Catalog) Remove(owner domain.Owner, alias string) bool {
	delete(c.dirty, registry.Key{Owner: owner, Alias: aliasOf(alias)})
	return c.reg.Remove(owner, aliasOf(alias))
}

// PopulateFiles announces every file of a namespace as added, for
// listeners that attach after the catalog was loaded
func (c *Catalog) PopulateFiles(owner domain.Owner, alias string) int {
	x, ok := c.lookup(owner, alias)
	if !ok {
		return 0
	}
	count := 0
	x.TraverseByIDSorted(func(pathID, path string, item *domain.Item, _ bool) {
		if !item.IsFile() || pathID == pathid.Sentinel {
			return
		}
		c.listener.OnEvent(events.FromItem(events.KindAdded, owner, aliasOf(alias), pathID, path, item))
		count++
	})
	return count
}

// Check verifies both views of every namespace
func (c *Catalog) Check() error {
	for _, k := range c.reg.Keys() {
		if x, ok := c.lookup(k.Owner, k.Alias); ok {
			if err := x.Check(); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
	}
	return nil
}
