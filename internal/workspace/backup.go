package workspace

import (
	"fmt"
	"os"
)

// Backup is an immutable snapshot of a guarded file, taken before its
// first mutation in a session and used to roll the file back when a
// later write fails.
type Backup struct {
	// Original is the guarded file the snapshot was taken from.
	Original string
	// Path is the snapshot file.
	Path string
}

// CreateBackup snapshots path into a sibling file under BackupSuffix,
// preserving the original's permission bits.
func CreateBackup(path string) (*Backup, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat backup source: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup source: %w", err)
	}

	backupPath := path + BackupSuffix
	if err := writeFileAtomic(backupPath, data, info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}
	return &Backup{Original: path, Path: backupPath}, nil
}

// Restore copies the snapshot back over the original, atomically.
func (b *Backup) Restore() error {
	info, err := os.Stat(b.Path)
	if err != nil {
		return fmt.Errorf("stat backup: %w", err)
	}
	data, err := os.ReadFile(b.Path)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if err := writeFileAtomic(b.Original, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}
	return nil
}

// Remove deletes the snapshot file. Absence is not an error.
func (b *Backup) Remove() error {
	if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove backup: %w", err)
	}
	return nil
}
