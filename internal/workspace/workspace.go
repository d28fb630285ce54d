// Package workspace manages the on-disk layout of one build workspace:
// the externally-authored build script, the pristine copy it is reset
// from, the session journal, and the exclusive lock that keeps
// concurrent builds out of the same directory.
//
// The package also owns the two file-safety primitives the rest of the
// system builds on: pre-mutation Backup snapshots and the single
// WriteGrant capability through which all build script mutation flows.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultScriptName is the externally-authored build script.
	DefaultScriptName = "PKGBUILD"
	// OverrideName is the optional user override profile document.
	OverrideName = "kforge.lua"
	// ConfigName is the live kernel configuration file the external
	// script owns while it runs.
	ConfigName = ".config"
	// BackupSuffix marks pre-mutation snapshots of guarded files.
	BackupSuffix = ".kforge-backup"

	stateDirName = ".kforge"
)

// Workspace is the directory one build runs in.
type Workspace struct {
	Root       string
	ScriptName string
}

// Open validates root and returns a workspace handle for it.
func Open(root string) (*Workspace, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open workspace: %s is not a directory", root)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace path: %w", err)
	}
	return &Workspace{Root: abs, ScriptName: DefaultScriptName}, nil
}

// ScriptPath returns the build script's path.
func (w *Workspace) ScriptPath() string {
	return filepath.Join(w.Root, w.ScriptName)
}

// OverridePath returns the user override document's path. The file is
// optional; callers treat absence as "no override".
func (w *Workspace) OverridePath() string {
	return filepath.Join(w.Root, OverrideName)
}

// ConfigPath returns the live kernel configuration file's path. The
// external script owns this file while it runs; validation re-opens it
// read-only afterwards.
func (w *Workspace) ConfigPath() string {
	return filepath.Join(w.Root, ConfigName)
}

// StateDir returns the workspace's private state directory.
func (w *Workspace) StateDir() string {
	return filepath.Join(w.Root, stateDirName)
}

// SessionDir returns the directory session manifests are journaled to.
func (w *Workspace) SessionDir() string {
	return filepath.Join(w.StateDir(), "sessions")
}

// LogDir returns the directory durable build logs land in.
func (w *Workspace) LogDir() string {
	return filepath.Join(w.StateDir(), "logs")
}

func (w *Workspace) pristinePath() string {
	return filepath.Join(w.StateDir(), "pristine", w.ScriptName)
}

// SnapshotPristine stores the current build script as the workspace's
// pristine copy, replacing any previous snapshot.
func (w *Workspace) SnapshotPristine() error {
	if err := os.MkdirAll(filepath.Dir(w.pristinePath()), 0700); err != nil {
		return fmt.Errorf("create pristine directory: %w", err)
	}
	return copyFile(w.ScriptPath(), w.pristinePath())
}

// HasPristine reports whether a pristine snapshot exists.
func (w *Workspace) HasPristine() bool {
	_, err := os.Stat(w.pristinePath())
	return err == nil
}

// RestorePristine resets the build script from the pristine snapshot.
func (w *Workspace) RestorePristine() error {
	if !w.HasPristine() {
		return fmt.Errorf("no pristine snapshot of %s in workspace", w.ScriptName)
	}
	return copyFile(w.pristinePath(), w.ScriptPath())
}

// CleanLeftovers removes artifacts abandoned by prior sessions:
// interrupted temp writes and orphaned backup snapshots. Returns the
// removed paths so the caller can log them.
func (w *Workspace) CleanLeftovers() ([]string, error) {
	patterns := []string{
		filepath.Join(w.Root, "*.tmp-*"),
		filepath.Join(w.Root, "*"+BackupSuffix),
		filepath.Join(w.SessionDir(), "*.tmp"),
	}

	var removed []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return removed, fmt.Errorf("scan leftovers: %w", err)
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
				return removed, fmt.Errorf("remove leftover %s: %w", m, err)
			}
			removed = append(removed, m)
		}
	}
	return removed, nil
}

// copyFile copies src to dst, preserving the source's permission bits.
// The copy is atomic: written to a temp file and renamed into place.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := writeFileAtomic(dst, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return nil
}
