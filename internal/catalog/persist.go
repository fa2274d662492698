package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bitdust-io/devel-sub003/internal/core/codec"
	"github.com/bitdust-io/devel-sub003/internal/core/snapshot"
	"github.com/bitdust-io/devel-sub003/internal/domain"
	"github.com/bitdust-io/devel-sub003/internal/events"
	"github.com/bitdust-io/devel-sub003/internal/registry"
	"github.com/bitdust-io/devel-sub003/internal/state"
)

// SourceAPI marks merges that did not come from an index file
const SourceAPI = "api"

// AliasResult is the outcome of one alias document of a received snapshot
type AliasResult struct {
	BatchID string
	Owner   string
	Alias   string
	Source  string

	// Status is one of the state.Status* values
	Status string

	OldRevision int64
	NewRevision int64
	Processed   int
	Modified    int
	Deleted     []string

	Err      error
	Duration time.Duration
}

// Changed reports whether the merge altered the namespace
func (r AliasResult) Changed() bool {
	return r.Status == state.StatusApplied && r.Modified > 0
}

type pendingDoc struct {
	ownerID string
	alias   string
	rev     int64
	raw     json.RawMessage
	source  string
}

// Document serializes one namespace together with its revision
func (c *Catalog) Document(owner domain.Owner, alias string, filter snapshot.Filter) (int64, snapshot.Document, bool) {
	ns, ok := c.reg.Lookup(owner, aliasOf(alias))
	if !ok {
		return 0, nil, false
	}
	doc := snapshot.Document{
		owner.String(): {ns.Key().Alias: snapshot.Serialize(ns.Index(), filter)},
	}
	return ns.Revision(), doc, true
}

// SaveIndex commits pending local changes of the namespace and writes its
// index file through the index adapter.
//
// Every (owner, alias) pair has a file of its own, named by the key id
// ("alias$owner"), holding a one-alias document. LoadIndex and
// LoadAllIndexes accept any number of owners and aliases in one file.
func (c *Catalog) SaveIndex(ctx context.Context, owner domain.Owner, alias string) (int64, error) {
	if c.indexes == nil {
		return 0, fmt.Errorf("no index directory configured")
	}
	ns, ok := c.reg.Lookup(owner, aliasOf(alias))
	if !ok {
		return 0, fmt.Errorf("%w: namespace %s", domain.ErrNotFound, codec.MakeKeyID(aliasOf(alias), owner))
	}
	if c.dirty[ns.Key()] || ns.Revision() == registry.NeverSynced {
		c.Commit(owner, alias)
	}
	rev, doc, _ := c.Document(owner, alias, nil)
	data, err := snapshot.Marshal(rev, doc)
	if err != nil {
		return rev, err
	}
	name := ns.Key().KeyID()
	if err := c.indexes.Write(ctx, name, bytes.NewReader(data)); err != nil {
		return rev, fmt.Errorf("failed to write index %s: %w", name, err)
	}
	c.log.Info("Saved index", "key_id", name, "revision", rev, "bytes", len(data))
	return rev, nil
}

// SaveAllIndexes writes the index file of every namespace, continuing past failures
func (c *Catalog) SaveAllIndexes(ctx context.Context) error {
	var errs []error
	for _, k := range c.reg.Keys() {
		if _, err := c.SaveIndex(ctx, k.Owner, k.Alias); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadIndex reads the index file named keyID and merges it
func (c *Catalog) LoadIndex(ctx context.Context, keyID string) ([]AliasResult, error) {
	if c.indexes == nil {
		return nil, fmt.Errorf("no index directory configured")
	}
	r, err := c.indexes.Read(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", keyID, err)
	}
	defer r.Close()
	return c.ReadIndex(r, keyID)
}

// IsIndexFile reports whether name looks like an index file. Hidden names
// are temporary files of an atomic write in progress.
func IsIndexFile(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	_, _, err := codec.SplitKeyID(name)
	return err == nil
}

// IndexFiles lists the key id named files of the index adapter
func (c *Catalog) IndexFiles(ctx context.Context) ([]string, error) {
	if c.indexes == nil {
		return nil, fmt.Errorf("no index directory configured")
	}
	entries, err := c.indexes.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsFile() {
			continue
		}
		if !IsIndexFile(e.Path) {
			continue
		}
		names = append(names, e.Path)
	}
	sort.Strings(names)
	return names, nil
}

// LoadAllIndexes merges every index file found in the index adapter. A
// broken file does not stop the others from loading.
func (c *Catalog) LoadAllIndexes(ctx context.Context) ([]AliasResult, error) {
	names, err := c.IndexFiles(ctx)
	if err != nil {
		return nil, err
	}
	var results []AliasResult
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := c.LoadIndex(ctx, name)
		if err != nil {
			c.log.Warn("Can not load index", "key_id", name, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res...)
	}
	return results, errors.Join(errs...)
}

// ReadIndex decodes an index file from r and merges it. source names the
// origin in history records.
func (c *Catalog) ReadIndex(r io.Reader, source string) ([]AliasResult, error) {
	rev, doc, err := snapshot.Decode(r)
	if err != nil {
		return nil, err
	}
	return c.Apply(rev, doc, source), nil
}

// Apply merges a decoded snapshot at revision rev.
//
// Alias documents are processed independently: a malformed one is
// rejected without affecting the others. Documents of owners the resolver
// does not know yet are parked until RetryPending.
func (c *Catalog) Apply(rev int64, doc snapshot.RawDocument, source string) []AliasResult {
	batchID := uuid.NewString()
	var results []AliasResult

	ownerIDs := make([]string, 0, len(doc))
	for id := range doc {
		ownerIDs = append(ownerIDs, id)
	}
	sort.Strings(ownerIDs)

	for _, ownerID := range ownerIDs {
		aliases := make([]string, 0, len(doc[ownerID]))
		for alias := range doc[ownerID] {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)

		owner, ok := c.resolver.ResolveOwner(ownerID)
		for _, alias := range aliases {
			raw := doc[ownerID][alias]
			if !ok {
				results = append(results, c.park(batchID, ownerID, alias, rev, raw, source))
				continue
			}
			results = append(results, c.applyAlias(batchID, owner, alias, rev, raw, source))
		}
	}
	return results
}

// MergeItems merges already decoded items into one namespace. Ids listed
// in deleted are removed even when the items mention them.
func (c *Catalog) MergeItems(owner domain.Owner, alias string, rev int64, items []*domain.Item, deleted []string) AliasResult {
	return c.merge(uuid.NewString(), owner, aliasOf(alias), rev, items, deleted, SourceAPI)
}

func (c *Catalog) applyAlias(batchID string, owner domain.Owner, alias string, rev int64, raw json.RawMessage, source string) AliasResult {
	items, err := snapshot.DecodeItems(raw)
	if err != nil {
		res := AliasResult{
			BatchID:     batchID,
			Owner:       owner.String(),
			Alias:       alias,
			Source:      source,
			Status:      state.StatusRejected,
			OldRevision: c.Revision(owner, alias),
			NewRevision: c.Revision(owner, alias),
			Err:         err,
		}
		c.log.Warn("Rejected alias document", "owner", owner, "alias", alias, "source", source, "error", err)
		c.record(res)
		return res
	}
	return c.merge(batchID, owner, alias, rev, items, nil, source)
}

func (c *Catalog) merge(batchID string, owner domain.Owner, alias string, rev int64, items []*domain.Item, deleted []string, source string) AliasResult {
	start := time.Now()
	ns := c.reg.Namespace(owner, alias)
	scope := snapshot.Scope{Owner: owner, Alias: alias, BatchID: batchID}

	shared := codec.IsShared(alias)
	known := make(map[string]bool)
	if shared {
		ns.Index().TraverseByID(func(pathID, _ string, item *domain.Item) {
			known[pathID] = true
		})
	}

	out, err := c.merger.Merge(ns, scope, items, rev, deleted)
	res := AliasResult{
		BatchID:     batchID,
		Owner:       owner.String(),
		Alias:       alias,
		Source:      source,
		OldRevision: out.OldRevision,
		NewRevision: out.NewRevision,
		Processed:   out.Processed,
		Modified:    out.Modified,
		Deleted:     out.Deleted,
		Duration:    time.Since(start),
	}
	switch {
	case err != nil:
		res.Status = state.StatusRejected
		res.Err = err
		c.log.Warn("Rejected alias document", "owner", owner, "alias", alias, "source", source, "error", err)
	case out.Stale:
		res.Status = state.StatusStale
		c.log.Warn("Ignored stale snapshot", "owner", owner, "alias", alias,
			"current", out.OldRevision, "received", rev, "source", source)
	default:
		res.Status = state.StatusApplied
		ns.Calculate()
		if shared {
			c.announce(ns, scope, out.Changed, known)
		}
	}
	c.record(res)
	return res
}

// announce reports new and modified files of a shared alias
func (c *Catalog) announce(ns *registry.Namespace, scope snapshot.Scope, changed []*domain.Item, known map[string]bool) {
	for _, item := range changed {
		n, path, ok := ns.Index().WalkByID(item.PathID)
		if !ok {
			continue
		}
		kind := events.KindAdded
		if known[item.PathID] {
			kind = events.KindModified
		}
		e := events.FromItem(kind, scope.Owner, scope.Alias, n.PathID(), path, item)
		e.BatchID = scope.BatchID
		c.listener.OnEvent(e)
	}
}

func (c *Catalog) park(batchID, ownerID, alias string, rev int64, raw json.RawMessage, source string) AliasResult {
	replaced := false
	for i, p := range c.pending {
		if p.ownerID == ownerID && p.alias == alias {
			if rev > p.rev {
				c.pending[i] = pendingDoc{ownerID: ownerID, alias: alias, rev: rev, raw: raw, source: source}
			}
			replaced = true
			break
		}
	}
	if !replaced {
		c.pending = append(c.pending, pendingDoc{ownerID: ownerID, alias: alias, rev: rev, raw: raw, source: source})
	}
	res := AliasResult{
		BatchID:     batchID,
		Owner:       ownerID,
		Alias:       alias,
		Source:      source,
		Status:      state.StatusDeferred,
		OldRevision: registry.NeverSynced,
		NewRevision: rev,
	}
	c.log.Warn("Deferred document of unknown owner", "owner", ownerID, "alias", alias, "revision", rev)
	c.record(res)
	return res
}

// Pending lists the key ids of parked documents
func (c *Catalog) Pending() []string {
	out := make([]string, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, p.alias+"$"+p.ownerID)
	}
	sort.Strings(out)
	return out
}

// RetryPending merges every parked document whose owner can be resolved now
func (c *Catalog) RetryPending() []AliasResult {
	if len(c.pending) == 0 {
		return nil
	}
	batchID := uuid.NewString()
	var results []AliasResult
	var keep []pendingDoc
	for _, p := range c.pending {
		owner, ok := c.resolver.ResolveOwner(p.ownerID)
		if !ok {
			keep = append(keep, p)
			continue
		}
		results = append(results, c.applyAlias(batchID, owner, p.alias, p.rev, p.raw, p.source))
	}
	c.pending = keep
	return results
}

func (c *Catalog) record(res AliasResult) {
	if c.history == nil {
		return
	}
	rec := state.MergeRecord{
		BatchID:     res.BatchID,
		Owner:       res.Owner,
		Alias:       res.Alias,
		Source:      res.Source,
		Status:      res.Status,
		OldRevision: res.OldRevision,
		NewRevision: res.NewRevision,
		Processed:   res.Processed,
		Modified:    res.Modified,
		Deleted:     len(res.Deleted),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := c.history.SaveMerge(rec); err != nil {
		c.log.Warn("Can not record merge", "owner", res.Owner, "alias", res.Alias, "error", err)
	}
}
