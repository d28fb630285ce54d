// Package testutil builds isolated workspace fixtures for tests.
// Each fixture lives in its own temp directory so tests never touch a
// real build workspace or each other.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgelab/kforge/internal/workspace"
)

// Script is a canonical PKGBUILD-shaped build script carrying every
// anchor the default checkpoint table matches: the bulk config copy,
// both regeneration runs, and the compile step.
const Script = `# Maintainer: Forge Lab <dev@forgelab.io>
pkgname=linux-forge
pkgver=6.9.1
pkgrel=1
arch=('x86_64')

prepare() {
  cd "$srcdir/linux-$pkgver"
  cp ../config .config
  make olddefconfig
  make localmodconfig
}

build() {
  cd "$srcdir/linux-$pkgver"
  make all
}

package() {
  cd "$srcdir/linux-$pkgver"
  make modules_install INSTALL_MOD_PATH="$pkgdir/usr"
}
`

// NewWorkspace creates a workspace directory containing script as the
// build script; an empty script leaves the directory bare. The
// directory is cleaned up by t.TempDir.
func NewWorkspace(t *testing.T, script string) string {
	t.Helper()

	dir := t.TempDir()
	if script != "" {
		path := filepath.Join(dir, workspace.DefaultScriptName)
		if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
			t.Fatalf("failed to write build script: %v", err)
		}
	}
	return dir
}

// WriteOverride installs content as the workspace's override document.
func WriteOverride(t *testing.T, dir, content string) {
	t.Helper()

	path := filepath.Join(dir, workspace.OverrideName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write override document: %v", err)
	}
}

// WriteConfig installs content as the workspace's final kernel
// configuration, the file verification inspects after a build.
func WriteConfig(t *testing.T, dir, content string) {
	t.Helper()

	path := filepath.Join(dir, workspace.ConfigName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write final configuration: %v", err)
	}
}
