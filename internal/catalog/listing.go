package catalog

import (
	"fmt"
	"sort"
	"time"

	"github.com/bitdust-io/devel-sub003/internal/core/codec"
	"github.com/bitdust-io/devel-sub003/internal/core/pathid"
	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// VersionSummary describes one version of a listed item
type VersionSummary struct {
	BackupID string
	Label    string
	Time     time.Time
	MaxBlock int
	Size     int64
}

// Child is one entry of a directory listing
type Child struct {
	Type      domain.ItemType
	Name      string
	Path      string
	PathID    string
	TotalSize int64
	Latest    time.Time
	Childs    int
	Item      *domain.Item
	Versions  []VersionSummary
}

// BackupEntry is one version of one item in a full backup id listing
type BackupEntry struct {
	Name     string
	BackupID string
	Info     domain.VersionInfo
	Path     string
	Item     *domain.Item
}

// versionLabel renders F20131120053803PM as "2013-11-20 05:38:03 PM"
func versionLabel(v string) (string, bool) {
	if !domain.IsCanonicalVersion(v) {
		return "", false
	}
	return fmt.Sprintf("%s-%s-%s %s:%s:%s %s", v[1:5], v[5:7], v[7:9], v[9:11], v[11:13], v[13:15], v[15:17]), true
}

// ExtractVersions summarizes the versions of an item: the sum of measured
// version sizes, the time of the newest canonical version and one entry per
// version, oldest first
func ExtractVersions(owner domain.Owner, alias, pathID string, item *domain.Item) (int64, time.Time, []VersionSummary) {
	var total int64
	var latest time.Time
	versions := make([]VersionSummary, 0, item.VersionCount())
	item.EachVersion(func(v string, info domain.VersionInfo) bool {
		backupID := codec.MakeBackupID(aliasOf(alias), owner, pathID, v)
		s := VersionSummary{BackupID: backupID, Label: backupID, MaxBlock: info.MaxBlock, Size: info.Size}
		if label, ok := versionLabel(v); ok {
			s.Label = label
		}
		if t, ok := domain.VersionTime(v); ok {
			s.Time = t
			if t.After(latest) {
				latest = t
			}
		}
		if info.Size > 0 {
			total += info.Size
		}
		versions = append(versions, s)
		return true
	})
	return total, latest, versions
}

// ListChilds lists the entries of the directory at path, directories
// first. With recursive set the entries of every sub directory follow
// their parent's listing.
func (c *Catalog) ListChilds(owner domain.Owner, alias, path string, recursive bool) ([]Child, error) {
	x, ok := c.lookup(owner, alias)
	if !ok {
		return nil, fmt.Errorf("%w: namespace %s", domain.ErrNotFound, codec.MakeKeyID(aliasOf(alias), owner))
	}
	n, pathID, ok := x.WalkByPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: path %q", domain.ErrNotFound, path)
	}
	if resolved := n.Path(); !n.IsRoot() && resolved != pathid.Normalize(path) {
		return nil, fmt.Errorf("%w: path %q resolves to %q", domain.ErrIndexCorrupted, path, resolved)
	}
	if !n.IsDir() {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotDirectory, path)
	}

	var result []Child
	var subdirs []string
	base := pathid.Normalize(path)
	x.TraverseChildsByID(pathID, func(typ domain.ItemType, name, id string, item *domain.Item, numChilds int) {
		total, latest, versions := ExtractVersions(owner, alias, id, item)
		childPath := name
		if base != "" {
			childPath = base + "/" + name
		}
		result = append(result, Child{
			Type:      typ,
			Name:      name,
			Path:      childPath,
			PathID:    id,
			TotalSize: total,
			Latest:    latest,
			Childs:    numChilds,
			Item:      item,
			Versions:  versions,
		})
		if typ == domain.ItemTypeDir {
			subdirs = append(subdirs, childPath)
		}
	})

	if recursive {
		for _, sub := range subdirs {
			more, err := c.ListChilds(owner, alias, sub, true)
			if err != nil {
				return nil, err
			}
			result = append(result, more...)
		}
	}
	return result, nil
}

// ListAllBackupIDs lists the backup id of every version of every item of
// every namespace of owner, sorted
func (c *Catalog) ListAllBackupIDs(owner domain.Owner) []string {
	var out []string
	for _, alias := range c.reg.Aliases(owner) {
		x, ok := c.lookup(owner, alias)
		if !ok {
			continue
		}
		x.TraverseByID(func(pathID, _ string, item *domain.Item) {
			for _, v := range item.Versions(false) {
				out = append(out, codec.MakeBackupID(alias, owner, pathID, v))
			}
		})
	}
	sort.Strings(out)
	return out
}

// ListAllBackupIDsFull lists every version of one namespace with its item,
// in sorted traversal order, newest version first when reverse is set
func (c *Catalog) ListAllBackupIDsFull(owner domain.Owner, alias string, reverse bool) []BackupEntry {
	x, ok := c.lookup(owner, alias)
	if !ok {
		return nil
	}
	var out []BackupEntry
	x.TraverseByIDSorted(func(pathID, path string, item *domain.Item, _ bool) {
		for _, v := range item.Versions(reverse) {
			out = append(out, BackupEntry{
				Name:     item.Name,
				BackupID: codec.MakeBackupID(aliasOf(alias), owner, pathID, v),
				Info:     item.VersionInfo(v),
				Path:     path,
				Item:     item,
			})
		}
	})
	return out
}
