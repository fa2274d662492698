package domain

import (
	"fmt"
	"strings"
)

// Owner is the stable handle of a namespace owner, "user@host".
// It is compared by value and never reinterpreted by the catalog.
type Owner string

// ParseOwner validates the "user@host" form
func ParseOwner(s string) (Owner, error) {
	user, host, ok := strings.Cut(s, "@")
	if !ok || user == "" || host == "" || strings.ContainsAny(s, "$:/ ") {
		return "", fmt.Errorf("%w: %q", ErrUnknownOwner, s)
	}
	return Owner(s), nil
}

func (o Owner) String() string {
	return string(o)
}

func (o Owner) User() string {
	user, _, _ := strings.Cut(string(o), "@")
	return user
}

func (o Owner) Host() string {
	_, host, _ := strings.Cut(string(o), "@")
	return host
}

func (o Owner) IsZero() bool {
	return o == ""
}

// OwnerResolver maps an owner id found in a snapshot to a known owner handle.
// ok is false while the identity is not yet known locally.
type OwnerResolver interface {
	ResolveOwner(id string) (Owner, bool)
}

// StaticResolver resolves a fixed set of owners
type StaticResolver map[string]Owner

// NewStaticResolver creates a resolver knowing the given owners
func NewStaticResolver(owners ...Owner) StaticResolver {
	r := make(StaticResolver, len(owners))
	for _, o := range owners {
		r[o.String()] = o
	}
	return r
}

func (r StaticResolver) ResolveOwner(id string) (Owner, bool) {
	o, ok := r[id]
	return o, ok
}

// Add makes id resolvable
func (r StaticResolver) Add(o Owner) {
	r[o.String()] = o
}

// AnyResolver accepts every well-formed owner id
type AnyResolver struct{}

func (AnyResolver) ResolveOwner(id string) (Owner, bool) {
	o, err := ParseOwner(id)
	if err != nil {
		return "", false
	}
	return o, true
}
