// Package snapshot turns catalog namespaces into JSON documents and merges
// received documents back in, guarded by the namespace revision.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/bitdust-io/devel-sub003/internal/core/index"
	"github.com/bitdust-io/devel-sub003/internal/core/pathid"
	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// VersionDoc is one version entry of an item
type VersionDoc struct {
	Name     string `json:"n"`
	MaxBlock int    `json:"b"`
	Size     int64  `json:"s"`
}

// ItemDoc is the wire form of one item
type ItemDoc struct {
	Name     string       `json:"n"`
	PathID   string       `json:"i"`
	Type     int          `json:"t"`
	Size     int64        `json:"s"`
	KeyID    *string      `json:"k"`
	Versions []VersionDoc `json:"v"`
}

// AliasDoc holds all items of one key alias
type AliasDoc struct {
	Items []ItemDoc `json:"items"`
}

// Document maps owner id to key alias to alias document
type Document map[string]map[string]AliasDoc

// RawDocument keeps alias documents undecoded so that a malformed one can
// be rejected without affecting its neighbours
type RawDocument map[string]map[string]json.RawMessage

// Filter selects the items to serialize
type Filter func(pathID, path string, item *domain.Item) bool

// FromItem converts an item to its wire form
func FromItem(item *domain.Item) ItemDoc {
	doc := ItemDoc{
		Name:     item.Name,
		PathID:   item.PathID,
		Type:     int(item.Type),
		Size:     item.Size,
		Versions: make([]VersionDoc, 0, item.VersionCount()),
	}
	if item.KeyID != "" {
		k := item.KeyID
		doc.KeyID = &k
	}
	item.EachVersion(func(label string, info domain.VersionInfo) bool {
		doc.Versions = append(doc.Versions, VersionDoc{Name: label, MaxBlock: info.MaxBlock, Size: info.Size})
		return true
	})
	return doc
}

// ToItem converts the wire form back to an item
func (d ItemDoc) ToItem() *domain.Item {
	keyID := ""
	if d.KeyID != nil {
		keyID = *d.KeyID
	}
	item := domain.NewItem(d.Name, d.PathID, domain.ItemType(d.Type), keyID)
	item.Size = d.Size
	for _, v := range d.Versions {
		item.SetVersionInfo(v.Name, domain.VersionInfo{MaxBlock: v.MaxBlock, Size: v.Size})
	}
	return item
}

// Serialize lists the items of a namespace, parents before children and
// siblings in name order, so the result is deterministic and can be
// replayed front to back
func Serialize(x *index.Index, filter Filter) AliasDoc {
	doc := AliasDoc{Items: []ItemDoc{}}
	x.TraverseByIDSorted(func(pathID, path string, item *domain.Item, _ bool) {
		if filter != nil && !filter(pathID, path, item) {
			return
		}
		d := FromItem(item)
		d.PathID = pathID
		doc.Items = append(doc.Items, d)
	})
	return doc
}

type rawItem struct {
	Name     *string      `json:"n"`
	PathID   *string      `json:"i"`
	Type     *int         `json:"t"`
	Size     *int64       `json:"s"`
	KeyID    *string      `json:"k"`
	Versions []VersionDoc `json:"v"`
}

type rawAlias struct {
	Items *[]rawItem `json:"items"`
}

// DecodeItems decodes and validates a whole alias document. Nothing is
// returned unless every item is well formed, path ids and sibling names
// are unique and no file is used as a parent of another item.
func DecodeItems(raw json.RawMessage) ([]*domain.Item, error) {
	var alias rawAlias
	if err := json.Unmarshal(raw, &alias); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	if alias.Items == nil {
		return nil, fmt.Errorf("%w: missing items", domain.ErrInvalidSnapshot)
	}

	items := make([]*domain.Item, 0, len(*alias.Items))
	types := make(map[string]domain.ItemType, len(*alias.Items))
	siblings := make(map[[2]string]string, len(*alias.Items))
	for i, r := range *alias.Items {
		if r.Name == nil || r.PathID == nil || r.Type == nil || r.Size == nil {
			return nil, fmt.Errorf("%w: item %d lacks a required field", domain.ErrInvalidSnapshot, i)
		}
		typ := domain.ItemType(*r.Type)
		if typ != domain.ItemTypeFile && typ != domain.ItemTypeDir {
			return nil, fmt.Errorf("%w: item %q has type %d", domain.ErrInvalidSnapshot, *r.PathID, *r.Type)
		}
		if *r.Name == "" {
			return nil, fmt.Errorf("%w: item %q has an empty name", domain.ErrInvalidSnapshot, *r.PathID)
		}
		if err := pathid.Validate(*r.PathID); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
		}
		id := pathid.Normalize(*r.PathID)
		if _, dup := types[id]; dup {
			return nil, fmt.Errorf("%w: duplicate path id %q", domain.ErrInvalidSnapshot, id)
		}
		types[id] = typ
		key := [2]string{pathid.Parent(id), *r.Name}
		if other, dup := siblings[key]; dup {
			return nil, fmt.Errorf("%w: %q and %q share the name %q", domain.ErrInvalidSnapshot, other, id, *r.Name)
		}
		siblings[key] = id
		for _, v := range r.Versions {
			if v.Name == "" {
				return nil, fmt.Errorf("%w: item %q has an unnamed version", domain.ErrInvalidSnapshot, id)
			}
		}

		d := ItemDoc{Name: *r.Name, PathID: id, Type: *r.Type, Size: *r.Size, KeyID: r.KeyID, Versions: r.Versions}
		items = append(items, d.ToItem())
	}

	for _, item := range items {
		for p := pathid.Parent(item.PathID); p != ""; p = pathid.Parent(p) {
			if t, listed := types[p]; listed && t == domain.ItemTypeFile {
				return nil, fmt.Errorf("%w: file %q is used as parent of %q", domain.ErrInvalidSnapshot, p, item.PathID)
			}
		}
	}
	return items, nil
}
