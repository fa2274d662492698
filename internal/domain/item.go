package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/btree"
)

// ItemType represents the type of a catalog entry
type ItemType int

const (
	ItemTypeUnknown ItemType = -1
	ItemTypeFile    ItemType = 0
	ItemTypeDir     ItemType = 1
)

// String returns the short label used in listings
func (t ItemType) String() string {
	switch t {
	case ItemTypeFile:
		return "file"
	case ItemTypeDir:
		return "dir"
	}
	return "unknown"
}

// Valid reports whether t is one of the known item types
func (t ItemType) Valid() bool {
	return t == ItemTypeFile || t == ItemTypeDir || t == ItemTypeUnknown
}

// DefaultKeyAlias is the alias of items stored without an explicit key id
const DefaultKeyAlias = "master"

// VersionInfo describes one backed up version of an item.
// Both fields are -1 until the version has been measured.
type VersionInfo struct {
	MaxBlock int
	Size     int64
}

// Unmeasured is the VersionInfo of a freshly added version
var Unmeasured = VersionInfo{MaxBlock: -1, Size: -1}

type versionEntry struct {
	label string
	info  VersionInfo
}

func versionLess(a, b versionEntry) bool {
	return CompareVersions(a.label, b.label) < 0
}

// Item is the metadata of one file or directory in a catalog namespace
type Item struct {
	// Name is the display name of the node under its parent
	Name string

	// PathID is the '/'-separated numeric identifier of the item
	PathID string

	Type ItemType

	// Size in bytes, -1 until measured. Directory sizes are derived by Calculate.
	Size int64

	// KeyID is the key the item is encrypted with, empty for the default namespace
	KeyID string

	versions *btree.BTreeG[versionEntry]
}

// NewItem creates an unmeasured item
func NewItem(name, pathID string, typ ItemType, keyID string) *Item {
	return &Item{
		Name:     name,
		PathID:   pathID,
		Type:     typ,
		Size:     -1,
		KeyID:    keyID,
		versions: btree.NewBTreeG(versionLess),
	}
}

func (i *Item) tree() *btree.BTreeG[versionEntry] {
	if i.versions == nil {
		i.versions = btree.NewBTreeG(versionLess)
	}
	return i.versions
}

func (i *Item) String() string {
	return fmt.Sprintf("<%s %s %d %s>", i.Type, i.Name, i.Size, i.KeyID)
}

// KeyAlias returns the alias part of the item key id
func (i *Item) KeyAlias() string {
	if i.KeyID == "" {
		return DefaultKeyAlias
	}
	alias, _, _ := strings.Cut(i.KeyID, "$")
	return alias
}

// IsDir returns true if this is a directory
func (i *Item) IsDir() bool {
	return i.Type == ItemTypeDir
}

// IsFile returns true if this is a file
func (i *Item) IsFile() bool {
	return i.Type == ItemTypeFile
}

// Exists reports whether the item size has been measured
func (i *Item) Exists() bool {
	return i.Size != -1
}

func (i *Item) SetSize(size int64) {
	i.Size = size
}

// AddVersion registers an unmeasured version
func (i *Item) AddVersion(label string) {
	i.SetVersionInfo(label, Unmeasured)
}

func (i *Item) SetVersionInfo(label string, info VersionInfo) {
	i.tree().Set(versionEntry{label: label, info: info})
}

// VersionInfo returns the stored info for label, or Unmeasured
func (i *Item) VersionInfo(label string) VersionInfo {
	e, ok := i.tree().Get(versionEntry{label: label})
	if !ok {
		return Unmeasured
	}
	return e.info
}

func (i *Item) VersionSize(label string) int64 {
	return i.VersionInfo(label).Size
}

func (i *Item) DeleteVersion(label string) bool {
	_, ok := i.tree().Delete(versionEntry{label: label})
	return ok
}

func (i *Item) HasVersion(label string) bool {
	_, ok := i.tree().Get(versionEntry{label: label})
	return ok
}

func (i *Item) AnyVersion() bool {
	return i.tree().Len() > 0
}

func (i *Item) VersionCount() int {
	return i.tree().Len()
}

// Versions lists version labels oldest first, or newest first when reverse is set
func (i *Item) Versions(reverse bool) []string {
	out := make([]string, 0, i.tree().Len())
	collect := func(e versionEntry) bool {
		out = append(out, e.label)
		return true
	}
	if reverse {
		i.tree().Reverse(collect)
	} else {
		i.tree().Scan(collect)
	}
	return out
}

// LatestVersion returns the newest version label
func (i *Item) LatestVersion() (string, bool) {
	e, ok := i.tree().Max()
	if !ok {
		return "", false
	}
	return e.label, true
}

// EachVersion calls fn for every version, oldest first, until fn returns false
func (i *Item) EachVersion(fn func(label string, info VersionInfo) bool) {
	i.tree().Scan(func(e versionEntry) bool {
		return fn(e.label, e.info)
	})
}

// TotalVersionSize sums the measured sizes of all versions
func (i *Item) TotalVersionSize() int64 {
	var total int64
	i.EachVersion(func(_ string, info VersionInfo) bool {
		if info.Size > 0 {
			total += info.Size
		}
		return true
	})
	return total
}

// PackVersions renders versions as "label:maxblock:size" words, oldest first
func (i *Item) PackVersions() string {
	words := make([]string, 0, i.tree().Len())
	i.EachVersion(func(label string, info VersionInfo) bool {
		words = append(words, label+":"+strconv.Itoa(info.MaxBlock)+":"+strconv.FormatInt(info.Size, 10))
		return true
	})
	return strings.Join(words, " ")
}

// UnpackVersions reads the PackVersions form. Words that cannot be parsed
// are kept as unmeasured versions.
func (i *Item) UnpackVersions(packed string) {
	for _, word := range strings.Fields(packed) {
		parts := strings.Split(word, ":")
		if len(parts) == 3 {
			block, errB := strconv.Atoi(parts[1])
			size, errS := strconv.ParseInt(parts[2], 10, 64)
			if errB == nil && errS == nil {
				i.SetVersionInfo(parts[0], VersionInfo{MaxBlock: block, Size: size})
				continue
			}
		}
		i.AddVersion(word)
	}
}

// Clone returns a deep copy of the item
func (i *Item) Clone() *Item {
	c := *i
	c.versions = i.tree().Copy()
	return &c
}
