package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Version labels look like F20131120053803PM, optionally followed by a counter
// (F20131120053803PM2) when more than one backup started within the same second.
var versionPattern = regexp.MustCompile(`^F(\d{14})(AM|PM)(\d*)$`)

const versionTimeLayout = "20060102030405PM"

// IsCanonicalVersion reports whether label is a well-formed backup version label
func IsCanonicalVersion(label string) bool {
	return versionPattern.MatchString(label)
}

// MakeVersion builds the version label for a backup started at t
func MakeVersion(t time.Time) string {
	return "F" + t.Format(versionTimeLayout)
}

// versionOrdinal turns a canonical label into a number that sorts chronologically.
// The hour is stored on a 12h clock, so PM hours are shifted forward and
// midnight (12 AM) is shifted back before comparing.
func versionOrdinal(label string) (int64, bool) {
	m := versionPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	stamp, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	hour := m[1][8:10]
	switch {
	case m[2] == "PM" && hour != "12":
		stamp += 120000
	case m[2] == "AM" && hour == "12":
		stamp -= 120000
	}
	// The counter lands on the seconds field, so F..01AM10 sorts after
	// F..05AM. Existing catalogs were ordered this way and must keep it.
	if m[3] != "" {
		n, err := strconv.ParseInt(m[3], 10, 64)
		if err != nil {
			return 0, false
		}
		stamp += n
	}
	return stamp, true
}

// CompareVersions orders two version labels chronologically.
// Canonical labels come before anything else; two non-canonical
// labels are compared byte-wise.
func CompareVersions(a, b string) int {
	oa, okA := versionOrdinal(a)
	ob, okB := versionOrdinal(b)
	switch {
	case okA && okB:
		if oa < ob {
			return -1
		}
		if oa > ob {
			return 1
		}
		return strings.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

// VersionTime returns the local time encoded in a canonical version label
func VersionTime(label string) (time.Time, bool) {
	m := versionPattern.FindStringSubmatch(label)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(versionTimeLayout, m[1]+m[2], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
