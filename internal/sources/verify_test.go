package sources

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// signArchive generates a throwaway key, writes its public keyring
// next to the archive, and signs the archive. Returns the keyring path.
func signArchive(t *testing.T, archivePath string, armored bool) string {
	t.Helper()

	entity, err := openpgp.NewEntity("KForge Test", "", "test@forgelab.io", nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	var pub bytes.Buffer
	if err := entity.Serialize(&pub); err != nil {
		t.Fatalf("serialize public key: %v", err)
	}
	keyringPath := filepath.Join(filepath.Dir(archivePath), "keyring.gpg")
	if err := os.WriteFile(keyringPath, pub.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	sig, err := os.Create(archivePath + ".sig")
	if err != nil {
		t.Fatal(err)
	}
	defer sig.Close()

	if armored {
		err = openpgp.ArmoredDetachSign(sig, entity, archive, nil)
	} else {
		err = openpgp.DetachSign(sig, entity, archive, nil)
	}
	if err != nil {
		t.Fatalf("sign archive: %v", err)
	}
	return keyringPath
}

func writeArchive(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVerifyArchiveGPG(t *testing.T) {
	for _, tt := range []struct {
		name    string
		armored bool
	}{
		{"armored signature", true},
		{"binary signature", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := writeArchive(t, dir, "linux-6.9.1.tar.xz", "kernel sources")
			keyring := signArchive(t, archive, tt.armored)

			res, err := NewVerifier(keyring).VerifyArchive(archive)
			if err != nil {
				t.Fatalf("VerifyArchive() error = %v", err)
			}
			if res.Method != MethodGPG || !res.Verified {
				t.Errorf("result = %+v, want verified gpg", res)
			}
			if res.Signer == "" {
				t.Error("signer key id not recorded")
			}
		})
	}
}

func TestVerifyArchiveGPGTamperedArchive(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, "linux-6.9.1.tar.xz", "kernel sources")
	keyring := signArchive(t, archive, true)

	if err := os.WriteFile(archive, []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewVerifier(keyring).VerifyArchive(archive)
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("VerifyArchive() error = %v, want ErrVerificationFailed", err)
	}
	if res == nil || res.Verified || res.Method != MethodGPG {
		t.Errorf("result = %+v, want unverified gpg", res)
	}
}

func TestVerifyArchiveSHA256(t *testing.T) {
	tests := []struct {
		name     string
		sums     func(digest string) string
		verified bool
		wantErr  bool
	}{
		{
			name:     "matching entry",
			sums:     func(d string) string { return d + "  linux-6.9.1.tar.xz\n" },
			verified: true,
		},
		{
			name:     "binary mode marker",
			sums:     func(d string) string { return d + " *linux-6.9.1.tar.xz\n" },
			verified: true,
		},
		{
			name:     "entry carries a path",
			sums:     func(d string) string { return d + "  ./sources/linux-6.9.1.tar.xz\n" },
			verified: true,
		},
		{
			name:    "digest mismatch",
			sums:    func(string) string { return "deadbeef  linux-6.9.1.tar.xz\n" },
			wantErr: true,
		},
		{
			name:    "archive not listed",
			sums:    func(d string) string { return d + "  linux-6.8.0.tar.xz\n" },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := writeArchive(t, dir, "linux-6.9.1.tar.xz", "kernel sources")
			digest, err := fileSHA256(archive)
			if err != nil {
				t.Fatal(err)
			}
			writeArchive(t, dir, "sha256sums.txt", tt.sums(digest))

			res, err := NewVerifier("").VerifyArchive(archive)
			if tt.wantErr {
				if !errors.Is(err, ErrVerificationFailed) {
					t.Fatalf("VerifyArchive() error = %v, want ErrVerificationFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyArchive() error = %v", err)
			}
			if res.Method != MethodSHA256 || res.Verified != tt.verified {
				t.Errorf("result = %+v, want verified sha256", res)
			}
		})
	}
}

func TestVerifyArchiveMaterialSelection(t *testing.T) {
	t.Run("no material degrades without error", func(t *testing.T) {
		dir := t.TempDir()
		archive := writeArchive(t, dir, "linux-6.9.1.tar.xz", "kernel sources")

		res, err := NewVerifier("").VerifyArchive(archive)
		if err != nil {
			t.Fatalf("VerifyArchive() error = %v", err)
		}
		if res.Method != MethodNone || res.Verified {
			t.Errorf("result = %+v, want unverified none", res)
		}
	})

	t.Run("signature outranks sums", func(t *testing.T) {
		dir := t.TempDir()
		archive := writeArchive(t, dir, "linux-6.9.1.tar.xz", "kernel sources")
		keyring := signArchive(t, archive, true)
		// A stale sums file must not be consulted while a signature
		// and keyring are available.
		writeArchive(t, dir, "sha256sums.txt", "deadbeef  linux-6.9.1.tar.xz\n")

		res, err := NewVerifier(keyring).VerifyArchive(archive)
		if err != nil {
			t.Fatalf("VerifyArchive() error = %v", err)
		}
		if res.Method != MethodGPG {
			t.Errorf("method = %v, want gpg", res.Method)
		}
	})

	t.Run("unreadable keyring falls back to sums", func(t *testing.T) {
		dir := t.TempDir()
		archive := writeArchive(t, dir, "linux-6.9.1.tar.xz", "kernel sources")
		signArchive(t, archive, true)
		digest, err := fileSHA256(archive)
		if err != nil {
			t.Fatal(err)
		}
		writeArchive(t, dir, "sha256sums.txt", digest+"  linux-6.9.1.tar.xz\n")

		res, err := NewVerifier(filepath.Join(dir, "missing-keyring.gpg")).VerifyArchive(archive)
		if err != nil {
			t.Fatalf("VerifyArchive() error = %v", err)
		}
		if res.Method != MethodSHA256 || !res.Verified {
			t.Errorf("result = %+v, want verified sha256", res)
		}
	})

	t.Run("missing archive is an error", func(t *testing.T) {
		if _, err := NewVerifier("").VerifyArchive(filepath.Join(t.TempDir(), "absent.tar.xz")); err == nil {
			t.Error("expected error for a missing archive")
		}
	})
}

func TestLoadKeyring(t *testing.T) {
	t.Run("binary keyring", func(t *testing.T) {
		dir := t.TempDir()
		archive := writeArchive(t, dir, "payload.bin", "data")
		keyringPath := signArchive(t, archive, false)

		keyring, err := loadKeyring(keyringPath)
		if err != nil {
			t.Fatalf("loadKeyring() error = %v", err)
		}
		if len(keyring) == 0 {
			t.Error("expected a non-empty keyring")
		}
	})

	t.Run("garbage keyring", func(t *testing.T) {
		dir := t.TempDir()
		path := writeArchive(t, dir, "keyring.gpg", "not a keyring")
		if _, err := loadKeyring(path); err == nil {
			t.Error("expected error for a malformed keyring")
		}
	})

	t.Run("missing keyring", func(t *testing.T) {
		if _, err := loadKeyring(filepath.Join(t.TempDir(), "absent.gpg")); err == nil {
			t.Error("expected error for a missing keyring")
		}
	})
}

func TestFindChecksumPrefersExactName(t *testing.T) {
	dir := t.TempDir()
	sums := writeArchive(t, dir, "sums.txt",
		"aaaa  /mirror/linux-6.9.1.tar.xz\nbbbb  linux-6.9.1.tar.xz\n")

	got, err := findChecksum(sums, "linux-6.9.1.tar.xz")
	if err != nil {
		t.Fatalf("findChecksum() error = %v", err)
	}
	if got != "bbbb" {
		t.Errorf("checksum = %s, want the exact-name entry bbbb", got)
	}
}
