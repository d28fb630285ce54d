package workspace

import (
	"errors"
	"fmt"
	"os"
)

// ErrGrantClaimed is returned when a session's write grant has already
// been handed out.
var ErrGrantClaimed = errors.New("write grant already claimed for this session")

// WriteGrant is the single-writer capability for the guarded build
// script. A session hands out exactly one, so holding the grant is the
// only way to mutate the script and the single-writer invariant holds
// by construction rather than by convention.
//
// The grant does not decide failure policy. It exposes the primitives
// (snapshot, atomic write, rollback); the holder sequences them.
type WriteGrant struct {
	path   string
	backup *Backup
}

// Path returns the guarded file's path.
func (g *WriteGrant) Path() string {
	return g.path
}

// Read returns the guarded file's current content.
func (g *WriteGrant) Read() ([]byte, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return nil, fmt.Errorf("read guarded file: %w", err)
	}
	return data, nil
}

// EnsureBackup snapshots the guarded file before its first mutation.
// Idempotent: later calls return the snapshot already taken.
func (g *WriteGrant) EnsureBackup() (*Backup, error) {
	if g.backup != nil {
		return g.backup, nil
	}
	b, err := CreateBackup(g.path)
	if err != nil {
		return nil, err
	}
	g.backup = b
	return b, nil
}

// Backup returns the snapshot taken by EnsureBackup, or nil if no
// mutation has begun.
func (g *WriteGrant) Backup() *Backup {
	return g.backup
}

// WriteAtomic replaces the guarded file's content, preserving its
// permission bits. The write goes through a temp file and rename.
func (g *WriteGrant) WriteAtomic(data []byte) error {
	perm := os.FileMode(0644)
	if info, err := os.Stat(g.path); err == nil {
		perm = info.Mode().Perm()
	}
	return writeFileAtomic(g.path, data, perm)
}

// RestoreBackup rolls the guarded file back to the pre-mutation
// snapshot. Calling it before EnsureBackup is a programming error.
func (g *WriteGrant) RestoreBackup() error {
	if g.backup == nil {
		return errors.New("no backup taken for guarded file")
	}
	return g.backup.Restore()
}
