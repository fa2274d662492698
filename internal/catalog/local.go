package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitdust-io/devel-sub003/internal/core/codec"
	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// backupDir maps a backup id or global path id to its directory in the
// backups adapter: "<alias>$<owner>/<path id>[/<version>]"
func backupDir(id string) (string, error) {
	if b, err := codec.ParseBackupID(id); err == nil {
		return codec.MakeKeyID(b.KeyAlias, b.Owner) + "/" + b.PathID + "/" + b.Version, nil
	}
	g, err := codec.ParseGlobalID(id)
	if err != nil {
		return "", err
	}
	if g.Path == "" {
		return "", fmt.Errorf("%w: %q has no path", domain.ErrInvalidBackupID, id)
	}
	return codec.MakeKeyID(g.KeyAlias, g.Owner) + "/" + g.Path, nil
}

// MakeLocalDir creates the local directory holding the fragments of a
// backup id and returns its path relative to the backups adapter
func (c *Catalog) MakeLocalDir(ctx context.Context, backupID string) (string, error) {
	if c.backups == nil {
		return "", fmt.Errorf("no backups directory configured")
	}
	dir, err := backupDir(backupID)
	if err != nil {
		return "", err
	}
	info, err := c.backups.Stat(ctx, dir)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("%w: %s", domain.ErrNotDirectory, dir)
	case err == nil:
		return dir, nil
	case !errors.Is(err, domain.ErrNotFound):
		return "", err
	}
	if err := c.backups.Mkdir(ctx, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// DeleteLocalDir removes the local fragments of every version of an item
// given by its global path id. A missing directory is not an error.
func (c *Catalog) DeleteLocalDir(ctx context.Context, globalPathID string) error {
	_, _, err := c.removeLocal(ctx, globalPathID)
	return err
}

// DeleteLocalBackup removes the local fragments of one backup and reports
// how many files and bytes were removed
func (c *Catalog) DeleteLocalBackup(ctx context.Context, backupID string) (int, int64, error) {
	if _, err := codec.ParseBackupID(backupID); err != nil {
		return 0, 0, err
	}
	return c.removeLocal(ctx, backupID)
}

func (c *Catalog) removeLocal(ctx context.Context, id string) (int, int64, error) {
	if c.backups == nil {
		return 0, 0, fmt.Errorf("no backups directory configured")
	}
	dir, err := backupDir(id)
	if err != nil {
		return 0, 0, err
	}
	info, err := c.backups.Stat(ctx, dir)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	if !info.IsDir() {
		return 0, 0, fmt.Errorf("%w: %s", domain.ErrNotDirectory, dir)
	}
	files, bytes, err := c.backups.RemoveAll(ctx, dir)
	if err != nil {
		return files, bytes, err
	}
	c.log.Debug("Removed local fragments", "path", dir, "files", files, "bytes", bytes)
	return files, bytes, nil
}
