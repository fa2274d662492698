package diff

import "github.com/bitdust-io/devel-sub003/internal/domain"

// DiffResult represents the comparison result between a stored item and
// an incoming one carrying the same path id
type DiffResult int

const (
	// ItemsIdentical indicates nothing a peer cares about changed
	ItemsIdentical DiffResult = iota
	// ItemModified indicates the key or the version list changed
	ItemModified
	// ItemRenamed indicates only the display name changed
	ItemRenamed
	// ItemRetyped indicates a file became a directory or the other way round
	ItemRetyped
	// ItemOnlyInSource indicates the item is new
	ItemOnlyInSource
	// ItemOnlyInTarget indicates the item is gone from the incoming side
	ItemOnlyInTarget
)

func (r DiffResult) String() string {
	switch r {
	case ItemsIdentical:
		return "identical"
	case ItemModified:
		return "modified"
	case ItemRenamed:
		return "renamed"
	case ItemRetyped:
		return "retyped"
	case ItemOnlyInSource:
		return "only-in-source"
	case ItemOnlyInTarget:
		return "only-in-target"
	}
	return "unknown"
}

// Comparer compares two items and determines if the stored one must change
type Comparer interface {
	// Compare compares the incoming item (src) against the stored one (tgt)
	Compare(src, tgt *domain.Item) DiffResult
}

// DefaultComparer compares type, name, key id and versions.
//
// Sizes are ignored: file sizes are re-read locally by Scan and directory
// sizes are derived by Calculate, so both legitimately differ between peers.
type DefaultComparer struct{}

// NewDefaultComparer creates a new DefaultComparer
func NewDefaultComparer() *DefaultComparer {
	return &DefaultComparer{}
}

// Compare implements the Comparer interface
func (c *DefaultComparer) Compare(src, tgt *domain.Item) DiffResult {
	if src == nil && tgt == nil {
		return ItemsIdentical
	}
	if src != nil && tgt == nil {
		return ItemOnlyInSource
	}
	if src == nil && tgt != nil {
		return ItemOnlyInTarget
	}

	if src.IsDir() != tgt.IsDir() {
		return ItemRetyped
	}
	if src.KeyID != tgt.KeyID {
		return ItemModified
	}
	if !SameVersions(src, tgt) {
		return ItemModified
	}
	if src.Name != tgt.Name {
		return ItemRenamed
	}
	return ItemsIdentical
}

// SameVersions reports whether both items carry the same version labels
// with the same block and size info
func SameVersions(a, b *domain.Item) bool {
	if a.VersionCount() != b.VersionCount() {
		return false
	}
	same := true
	a.EachVersion(func(label string, info domain.VersionInfo) bool {
		if !b.HasVersion(label) || b.VersionInfo(label) != info {
			same = false
		}
		return same
	})
	return same
}
