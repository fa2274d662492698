// Package codec converts between catalog paths and the composite identifiers
// exchanged with the rest of the node: key ids, global ids, backup ids and
// fragment file names.
package codec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bitdust-io/devel-sub003/internal/core/pathid"
	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// KeyAlias returns the alias part of "<alias>$<owner>", DefaultKeyAlias for an empty key id
func KeyAlias(keyID string) string {
	if keyID == "" {
		return domain.DefaultKeyAlias
	}
	alias, _, _ := strings.Cut(keyID, "$")
	if alias == "" {
		return domain.DefaultKeyAlias
	}
	return alias
}

// MakeKeyID builds "<alias>$<owner>"
func MakeKeyID(alias string, owner domain.Owner) string {
	if alias == "" {
		alias = domain.DefaultKeyAlias
	}
	return alias + "$" + owner.String()
}

// SplitKeyID splits "<alias>$<owner>" into its parts
func SplitKeyID(keyID string) (string, domain.Owner, error) {
	alias, rest, ok := strings.Cut(keyID, "$")
	if !ok || alias == "" {
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidKeyID, keyID)
	}
	owner, err := domain.ParseOwner(rest)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidKeyID, keyID)
	}
	return alias, owner, nil
}

// IsShared reports whether items under alias are visible to other users,
// which is when listeners are told about remote additions and deletions.
func IsShared(alias string) bool {
	return strings.HasPrefix(alias, "share_") || strings.HasPrefix(alias, "group_")
}

// GlobalID addresses a remote path of one owner under one key alias
type GlobalID struct {
	KeyAlias string
	Owner    domain.Owner
	Path     string
}

// String renders "<alias>$<owner>:<path>", omitting ":<path>" when path is empty
func (g GlobalID) String() string {
	s := MakeKeyID(g.KeyAlias, g.Owner)
	if g.Path != "" {
		s += ":" + g.Path
	}
	return s
}

// MakeGlobalID is a shorthand for GlobalID{...}.String()
func MakeGlobalID(alias string, owner domain.Owner, path string) string {
	return GlobalID{KeyAlias: alias, Owner: owner, Path: path}.String()
}

// ParseGlobalID parses "[alias$]owner[:path]"
func ParseGlobalID(s string) (GlobalID, error) {
	head, path, _ := strings.Cut(s, ":")
	alias := domain.DefaultKeyAlias
	ownerPart := head
	if a, rest, ok := strings.Cut(head, "$"); ok {
		if a != "" {
			alias = a
		}
		ownerPart = rest
	}
	owner, err := domain.ParseOwner(ownerPart)
	if err != nil {
		return GlobalID{}, err
	}
	return GlobalID{KeyAlias: alias, Owner: owner, Path: path}, nil
}

// BackupID names one version of one catalog item:
// "<alias>$<owner>:<path id>/<version>"
type BackupID struct {
	KeyAlias string
	Owner    domain.Owner
	PathID   string
	Version  string
}

func (b BackupID) String() string {
	return MakeBackupID(b.KeyAlias, b.Owner, b.PathID, b.Version)
}

// GlobalPathID returns the id without the version part
func (b BackupID) GlobalPathID() string {
	return MakeGlobalID(b.KeyAlias, b.Owner, b.PathID)
}

// MakeBackupID builds a backup id; version may be empty
func MakeBackupID(alias string, owner domain.Owner, pathID, version string) string {
	s := MakeGlobalID(alias, owner, pathID)
	if version != "" {
		s += "/" + version
	}
	return s
}

// ParseBackupID splits a backup id into its four parts. The version is the
// last path element, the owner sits between '$' and ':'.
func ParseBackupID(s string) (BackupID, error) {
	head, tail, ok := strings.Cut(s, ":")
	if !ok {
		return BackupID{}, fmt.Errorf("%w: %q", domain.ErrInvalidBackupID, s)
	}
	g, err := ParseGlobalID(head)
	if err != nil {
		return BackupID{}, fmt.Errorf("%w: %q", domain.ErrInvalidBackupID, s)
	}
	i := strings.LastIndex(tail, "/")
	if i <= 0 || i == len(tail)-1 {
		return BackupID{}, fmt.Errorf("%w: %q", domain.ErrInvalidBackupID, s)
	}
	b := BackupID{KeyAlias: g.KeyAlias, Owner: g.Owner, PathID: tail[:i], Version: tail[i+1:]}
	if err := pathid.Validate(b.PathID); err != nil {
		return BackupID{}, fmt.Errorf("%w: %q", domain.ErrInvalidBackupID, s)
	}
	return b, nil
}

var packetNamePattern = regexp.MustCompile(`^(\d+)-(\d+)-(Data|Parity)$`)

// IsPacketNameCorrect checks a fragment file name such as "3-1-Data"
func IsPacketNameCorrect(name string) bool {
	return packetNamePattern.MatchString(name)
}

// PacketName is a parsed fragment file name
type PacketName struct {
	Block    int
	Supplier int
	Kind     string
}

// ParsePacketName parses "<block>-<supplier>-<Data|Parity>"
func ParsePacketName(name string) (PacketName, bool) {
	m := packetNamePattern.FindStringSubmatch(name)
	if m == nil {
		return PacketName{}, false
	}
	block, err := strconv.Atoi(m[1])
	if err != nil {
		return PacketName{}, false
	}
	supplier, err := strconv.Atoi(m[2])
	if err != nil {
		return PacketName{}, false
	}
	return PacketName{Block: block, Supplier: supplier, Kind: m[3]}, true
}
