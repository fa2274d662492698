package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitdust-io/devel-sub003/internal/adapter"
	"github.com/bitdust-io/devel-sub003/internal/core/codec"
	"github.com/bitdust-io/devel-sub003/internal/core/index"
	"github.com/bitdust-io/devel-sub003/internal/core/pathid"
	"github.com/bitdust-io/devel-sub003/internal/domain"
	"github.com/bitdust-io/devel-sub003/internal/registry"
)

// PacketOverhead is added to every fragment found on disk: remote copies
// are stored as signed packets and are larger than the local files.
const PacketOverhead = 1024

// ScanResult sums what a scan measured
type ScanResult struct {
	Items       int
	SizeFiles   int64
	SizeBackups int64
}

// Scan re-reads the size of every file of the namespace from the source
// adapter and measures versions not yet known from the fragments in the
// backups adapter. The tree shape does not change.
func (c *Catalog) Scan(ctx context.Context, owner domain.Owner, alias string) (ScanResult, error) {
	var res ScanResult
	x, ok := c.lookup(owner, alias)
	if !ok {
		return res, nil
	}
	keyID := codec.MakeKeyID(aliasOf(alias), owner)
	for e := range x.IterateIDs() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if e.PathID == pathid.Sentinel {
			continue
		}
		c.readStats(ctx, e.Path, e.Item)
		if e.Item.Exists() && e.Item.IsFile() {
			res.SizeFiles += e.Item.Size
		}
		res.SizeBackups += c.readVersions(ctx, keyID+"/"+e.PathID, e.Item)
		res.Items++
	}
	c.log.Info("Scanned namespace", "owner", owner, "alias", aliasOf(alias),
		"items", res.Items, "size_files", res.SizeFiles, "size_backups", res.SizeBackups)
	return res, nil
}

// ScanID is Scan for a single item
func (c *Catalog) ScanID(ctx context.Context, owner domain.Owner, alias, pathID string) (ScanResult, error) {
	var res ScanResult
	x, ok := c.lookup(owner, alias)
	if !ok {
		return res, fmt.Errorf("%w: %s", domain.ErrNotFound, codec.MakeGlobalID(aliasOf(alias), owner, pathID))
	}
	n, path, ok := x.WalkByID(pathID)
	if !ok || n.IsRoot() {
		return res, fmt.Errorf("%w: %s", domain.ErrNotFound, codec.MakeGlobalID(aliasOf(alias), owner, pathID))
	}
	item := n.Item()
	c.readStats(ctx, path, item)
	if item.Exists() && item.IsFile() {
		res.SizeFiles = item.Size
	}
	res.SizeBackups = c.readVersions(ctx, codec.MakeKeyID(aliasOf(alias), owner)+"/"+n.PathID(), item)
	res.Items = 1
	return res, nil
}

// readStats takes the size of a regular file from the source adapter.
// Missing files and directories keep their current size.
func (c *Catalog) readStats(ctx context.Context, path string, item *domain.Item) bool {
	if c.source == nil || !item.IsFile() {
		return false
	}
	info, err := c.source.Stat(ctx, path)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.log.Warn("Can not read file stats", "path", path, "error", err)
		}
		return false
	}
	if info.IsDir() {
		return false
	}
	item.SetSize(info.Size)
	return true
}

// readVersions measures every canonical version directory below dir whose
// size is not known yet and returns the bytes it found
func (c *Catalog) readVersions(ctx context.Context, dir string, item *domain.Item) int64 {
	if c.backups == nil {
		return 0
	}
	entries, err := c.backups.List(ctx, dir)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrNotDirectory) {
			c.log.Warn("Can not list versions", "path", dir, "error", err)
		}
		return 0
	}
	var total int64
	for _, e := range entries {
		version := pathid.Base(e.Path)
		if !e.IsDir() || !domain.IsCanonicalVersion(version) {
			continue
		}
		if item.VersionInfo(version).MaxBlock >= 0 {
			continue
		}
		packets, err := c.backups.List(ctx, e.Path)
		if err != nil {
			c.log.Warn("Can not list fragments", "path", e.Path, "error", err)
			continue
		}
		var size int64
		maxBlock := -1
		for _, p := range packets {
			name := pathid.Base(p.Path)
			pn, ok := codec.ParsePacketName(name)
			if !ok || p.IsDir() {
				c.log.Warn("Incorrect fragment name", "path", p.Path)
				continue
			}
			size += p.Size + PacketOverhead
			maxBlock = max(maxBlock, pn.Block)
		}
		item.SetVersionInfo(version, domain.VersionInfo{MaxBlock: maxBlock, Size: size})
		total += size
	}
	return total
}

// Calculate recomputes the aggregates of every namespace, writing derived
// directory sizes back into the items, and returns the totals
func (c *Catalog) Calculate() index.Stats {
	var total index.Stats
	for _, k := range c.reg.Keys() {
		if ns, ok := c.reg.Lookup(k.Owner, k.Alias); ok {
			total.Add(ns.Calculate())
		}
	}
	c.log.Debug("Calculated catalog", "items", total.Items, "files", total.Files, "dirs", total.Dirs,
		"size_files", total.SizeFiles, "size_backups", total.SizeBackups)
	return total
}

// CalculateNamespace recomputes the aggregates of one namespace
func (c *Catalog) CalculateNamespace(owner domain.Owner, alias string) index.Stats {
	ns, ok := c.reg.Lookup(owner, aliasOf(alias))
	if !ok {
		return index.Stats{}
	}
	return ns.Calculate()
}

// Stats returns the aggregates of the last Calculate of a namespace
func (c *Catalog) Stats(owner domain.Owner, alias string) index.Stats {
	ns, ok := c.reg.Lookup(owner, aliasOf(alias))
	if !ok {
		return index.Stats{}
	}
	return ns.Stats()
}

// Namespace returns a namespace for read access, nil when unknown
func (c *Catalog) Namespace(owner domain.Owner, alias string) *registry.Namespace {
	ns, _ := c.reg.Lookup(owner, aliasOf(alias))
	return ns
}

// AddLocalPath indexes a file or a whole directory tree of the source
// adapter. It returns the path id of localPath and the number of files
// added below it.
func (c *Catalog) AddLocalPath(ctx context.Context, owner domain.Owner, localPath, keyID string, readStats bool) (string, int, error) {
	if c.source == nil {
		return "", 0, fmt.Errorf("no source directory configured")
	}
	root := pathid.Normalize(localPath)
	var rootID string
	count := 0
	err := adapter.Walk(ctx, c.source, root, func(info domain.FileInfo) error {
		if pathid.Normalize(info.Path) == "" {
			return nil
		}
		var id string
		var item *domain.Item
		var err error
		switch {
		case info.IsDir():
			id, item, err = c.AddDir(owner, info.Path, keyID, "")
		case info.IsFile():
			id, item, err = c.AddFile(owner, info.Path, keyID)
			if err == nil {
				count++
				if readStats {
					item.SetSize(info.Size)
				}
			}
		default:
			c.log.Debug("Skipping special file", "path", info.Path)
			return nil
		}
		if err != nil {
			return err
		}
		if pathid.Normalize(info.Path) == root {
			rootID = id
		}
		return nil
	})
	if err != nil {
		return "", count, err
	}
	c.log.Info("Added local path", "owner", owner, "alias", codec.KeyAlias(keyID), "path_id", rootID, "files", count)
	return rootID, count, nil
}
