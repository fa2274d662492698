// Package registry keeps one catalog namespace per (owner, key alias)
package registry

import (
	"sort"
	"sync"

	"github.com/bitdust-io/devel-sub003/internal/core/codec"
	"github.com/bitdust-io/devel-sub003/internal/core/index"
	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// NeverSynced is the revision of a namespace that was never committed
const NeverSynced int64 = -1

// Key identifies a namespace
type Key struct {
	Owner domain.Owner
	Alias string
}

// KeyID returns the "<alias>$<owner>" form used for index file names
func (k Key) KeyID() string {
	return codec.MakeKeyID(k.Alias, k.Owner)
}

func (k Key) String() string {
	return k.KeyID()
}

// Namespace is one isolated catalog partition with its revision counter
// and the aggregates of its last Calculate pass
type Namespace struct {
	key      Key
	index    *index.Index
	revision int64
	stats    index.Stats
}

func newNamespace(key Key, opts index.Options) *Namespace {
	return &Namespace{
		key:      key,
		index:    index.New(opts),
		revision: NeverSynced,
	}
}

func (n *Namespace) Key() Key { return n.key }

func (n *Namespace) Index() *index.Index { return n.index }

// Revision returns the last committed revision, NeverSynced if none
func (n *Namespace) Revision() int64 { return n.revision }

// Commit records a local mutation. The first commit yields revision 1.
func (n *Namespace) Commit() (prev, cur int64) {
	prev = n.revision
	if n.revision < 0 {
		n.revision = 0
	}
	n.revision++
	return prev, n.revision
}

// CommitTo moves the revision to rev. Lower revisions are ignored so the
// counter never goes backwards.
func (n *Namespace) CommitTo(rev int64) (prev, cur int64) {
	prev = n.revision
	if rev > n.revision {
		n.revision = rev
	}
	return prev, n.revision
}

// Forget drops the known revision so the next snapshot is accepted
func (n *Namespace) Forget() {
	n.revision = NeverSynced
}

// Calculate recomputes and stores the aggregates
func (n *Namespace) Calculate() index.Stats {
	n.stats = n.index.Calculate()
	return n.stats
}

// Stats returns the aggregates of the last Calculate pass
func (n *Namespace) Stats() index.Stats { return n.stats }

// Clear drops every item, keeping the revision
func (n *Namespace) Clear() {
	n.index.Clear()
	n.stats = index.Stats{}
}

// Registry owns all namespaces of the process. The map itself is guarded;
// a single namespace must be used by one goroutine at a time.
type Registry struct {
	mu     sync.Mutex
	opts   index.Options
	spaces map[Key]*Namespace
}

// New creates an empty registry; opts apply to every namespace it creates
func New(opts index.Options) *Registry {
	return &Registry{
		opts:   opts,
		spaces: make(map[Key]*Namespace),
	}
}

// Namespace returns the namespace for (owner, alias), creating it on first access
func (r *Registry) Namespace(owner domain.Owner, alias string) *Namespace {
	if alias == "" {
		alias = domain.DefaultKeyAlias
	}
	key := Key{Owner: owner, Alias: alias}
	r.mu.Lock()
	defer r.mu.Unlock()
	ns, ok := r.spaces[key]
	if !ok {
		ns = newNamespace(key, r.opts)
		r.spaces[key] = ns
	}
	return ns
}

// Lookup returns an existing namespace without creating one
func (r *Registry) Lookup(owner domain.Owner, alias string) (*Namespace, bool) {
	if alias == "" {
		alias = domain.DefaultKeyAlias
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ns, ok := r.spaces[Key{Owner: owner, Alias: alias}]
	return ns, ok
}

// Keys lists all namespaces ordered by owner, then alias
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	keys := make([]Key, 0, len(r.spaces))
	for k := range r.spaces {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Owner != keys[j].Owner {
			return keys[i].Owner < keys[j].Owner
		}
		return keys[i].Alias < keys[j].Alias
	})
	return keys
}

// Owners lists the known owners
func (r *Registry) Owners() []domain.Owner {
	var out []domain.Owner
	for _, k := range r.Keys() {
		if len(out) == 0 || out[len(out)-1] != k.Owner {
			out = append(out, k.Owner)
		}
	}
	return out
}

// Aliases lists the key aliases known for owner
func (r *Registry) Aliases(owner domain.Owner) []string {
	var out []string
	for _, k := range r.Keys() {
		if k.Owner == owner {
			out = append(out, k.Alias)
		}
	}
	return out
}

// Remove drops a namespace together with its revision
func (r *Registry) Remove(owner domain.Owner, alias string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := Key{Owner: owner, Alias: alias}
	if _, ok := r.spaces[key]; !ok {
		return false
	}
	delete(r.spaces, key)
	return true
}

// ClearAll drops every namespace
func (r *Registry) ClearAll() {
	r.mu.Lock()
	r.spaces = make(map[Key]*Namespace)
	r.mu.Unlock()
}

// Totals sums the stored aggregates of all namespaces
func (r *Registry) Totals() index.Stats {
	var total index.Stats
	for _, k := range r.Keys() {
		if ns, ok := r.Lookup(k.Owner, k.Alias); ok {
			total.Add(ns.Stats())
		}
	}
	return total
}
