// Package pathid handles the '/'-separated numeric identifiers that stand in
// for real names in a catalog namespace, and allocates new ones.
package pathid

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// Sentinel is the reserved root entry holding the namespace index itself.
// It is never allocated and never swept as an orphan.
const Sentinel = "index"

// MaxDigits bounds the width of randomized ids
const MaxDigits = 18

// Normalize converts a local or remote path to the catalog form:
// forward slashes, no leading, trailing or doubled separators.
func Normalize(path string) string {
	return strings.Join(Split(path), "/")
}

// Split breaks a path or path id into its non-empty components
func Split(path string) []string {
	path = strings.ReplaceAll(path, "\\", "/")
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Join builds a path id from components
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// Parent returns the path id of the parent, "" for top level ids
func Parent(id string) string {
	parts := Split(id)
	if len(parts) <= 1 {
		return ""
	}
	return Join(parts[:len(parts)-1]...)
}

// Base returns the last component of the path id
func Base(id string) string {
	parts := Split(id)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// Depth returns the number of components
func Depth(id string) int {
	return len(Split(id))
}

// ParseComponent parses one numeric component
func ParseComponent(c string) (int64, error) {
	if c == "" || strings.TrimLeft(c, "0123456789") != "" {
		return 0, fmt.Errorf("%w: component %q", domain.ErrInvalidPathID, c)
	}
	n, err := strconv.ParseInt(c, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: component %q", domain.ErrInvalidPathID, c)
	}
	return n, nil
}

// Validate checks that id is either the sentinel or a sequence of
// non-negative integers
func Validate(id string) error {
	if id == Sentinel {
		return nil
	}
	parts := Split(id)
	if len(parts) == 0 {
		return fmt.Errorf("%w: empty", domain.ErrInvalidPathID)
	}
	for _, p := range parts {
		if _, err := ParseComponent(p); err != nil {
			return err
		}
	}
	return nil
}

// Rand is the random source used by MakeID
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the process-wide generator
var DefaultRand Rand = globalRand{}

// MakeID picks an id not present in used.
//
// In randomized mode a single digit is drawn first; after three collisions
// at the current width the width grows by one digit. Past MaxDigits the
// smallest free id is returned instead. Sequential mode always returns the
// smallest free id.
func MakeID(used map[int64]struct{}, randomized bool, rng Rand) int64 {
	if randomized {
		if rng == nil {
			rng = DefaultRand
		}
		for digits := 1; digits <= MaxDigits; digits++ {
			id := int64(rng.IntN(10))
			for attempts := 0; attempts <= 2; attempts++ {
				if _, taken := used[id]; !taken {
					return id
				}
				id = randomDigits(rng, digits)
			}
			if _, taken := used[id]; !taken {
				return id
			}
		}
	}
	var id int64
	for {
		if _, taken := used[id]; !taken {
			return id
		}
		id++
	}
}

func randomDigits(rng Rand, digits int) int64 {
	var n int64
	for i := 0; i < digits; i++ {
		n = n*10 + int64(rng.IntN(10))
	}
	return n
}
