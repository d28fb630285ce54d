// Package sources verifies kernel source archives before a build and
// checks that the tools the external build script needs are installed.
//
// Verification is opportunistic: a detached GPG signature next to the
// archive is checked against the configured keyring, otherwise a sums
// file in the archive directory is consulted. Material that is present
// but fails to verify aborts the build; material that is absent only
// degrades to a warning at the caller.
package sources

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// ErrVerificationFailed marks verification material that is present but
// does not match the archive. It is always fatal.
var ErrVerificationFailed = errors.New("source verification failed")

// Method identifies how an archive was verified.
type Method int

const (
	// MethodNone means no verification material was found.
	MethodNone Method = iota
	// MethodGPG means a detached signature was checked against the keyring.
	MethodGPG
	// MethodSHA256 means a sums file entry was compared.
	MethodSHA256
)

// String returns the audit name of the method.
func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodGPG:
		return "gpg"
	case MethodSHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// Result describes one archive verification.
type Result struct {
	Method   Method
	Verified bool
	// Signer holds the long key id of the signing key for MethodGPG.
	Signer string
}

// Verifier checks source archives against a GPG keyring file, falling
// back to SHA256 sums when no signature is available.
type Verifier struct {
	keyringPath string
}

// NewVerifier creates a verifier. keyringPath may be empty, disabling
// the GPG path entirely.
func NewVerifier(keyringPath string) *Verifier {
	return &Verifier{keyringPath: keyringPath}
}

// VerifyArchive verifies the archive with the strongest material found
// next to it: a detached signature first, a sums file second. With no
// material at all it returns an unverified Result and no error.
func (v *Verifier) VerifyArchive(archivePath string) (*Result, error) {
	if _, err := os.Stat(archivePath); err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	if sig := findSignature(archivePath); sig != "" && v.keyringPath != "" {
		if _, err := os.Stat(v.keyringPath); err == nil {
			return v.verifyGPG(archivePath, sig)
		}
	}
	if sums := findSums(archivePath); sums != "" {
		return v.verifySHA256(archivePath, sums)
	}
	return &Result{Method: MethodNone}, nil
}

// verifyGPG checks a detached signature, trying the armored form first
// and falling back to binary.
func (v *Verifier) verifyGPG(archivePath, signaturePath string) (*Result, error) {
	keyring, err := loadKeyring(v.keyringPath)
	if err != nil {
		return nil, fmt.Errorf("load keyring: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	sig, err := os.Open(signaturePath)
	if err != nil {
		return nil, fmt.Errorf("open signature: %w", err)
	}
	defer sig.Close()

	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, archive, sig, nil)
	if err != nil {
		if _, serr := archive.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rewind archive: %w", serr)
		}
		if _, serr := sig.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rewind signature: %w", serr)
		}
		signer, err = openpgp.CheckDetachedSignature(keyring, archive, sig, nil)
	}
	if err != nil {
		return &Result{Method: MethodGPG}, fmt.Errorf("%w: signature check for %s: %v",
			ErrVerificationFailed, filepath.Base(archivePath), err)
	}

	res := &Result{Method: MethodGPG, Verified: true}
	if signer != nil && signer.PrimaryKey != nil {
		res.Signer = signer.PrimaryKey.KeyIdString()
	}
	return res, nil
}

// verifySHA256 compares the archive digest against the sums file entry
// for its filename.
func (v *Verifier) verifySHA256(archivePath, sumsPath string) (*Result, error) {
	actual, err := fileSHA256(archivePath)
	if err != nil {
		return nil, fmt.Errorf("hash archive: %w", err)
	}

	expected, err := findChecksum(sumsPath, filepath.Base(archivePath))
	if err != nil {
		return &Result{Method: MethodSHA256}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	if !strings.EqualFold(actual, expected) {
		return &Result{Method: MethodSHA256}, fmt.Errorf("%w: checksum mismatch for %s (have %s, want %s)",
			ErrVerificationFailed, filepath.Base(archivePath), actual, expected)
	}
	return &Result{Method: MethodSHA256, Verified: true}, nil
}

// findSignature returns the first detached-signature file next to the
// archive, or empty.
func findSignature(archivePath string) string {
	for _, suffix := range []string{".sig", ".sign", ".asc"} {
		candidate := archivePath + suffix
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findSums returns the first sums file in the archive's directory, or
// empty.
func findSums(archivePath string) string {
	dir := filepath.Dir(archivePath)
	candidates := []string{
		archivePath + ".sha256",
		filepath.Join(dir, "sha256sums.txt"),
		filepath.Join(dir, "SHA256SUMS"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// fileSHA256 returns the hex digest of a file's contents.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// findChecksum scans a sums file for the filename's entry. Lines have
// the coreutils shape "digest  name"; the name is matched exactly
// first, then by basename for sums files that carry paths.
func findChecksum(sumsPath, filename string) (string, error) {
	f, err := os.Open(sumsPath)
	if err != nil {
		return "", fmt.Errorf("open sums file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var basenameHit string
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		name := strings.TrimPrefix(parts[1], "*")
		if name == filename {
			return parts[0], nil
		}
		if basenameHit == "" && filepath.Base(name) == filename {
			basenameHit = parts[0]
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan sums file: %w", err)
	}
	if basenameHit != "" {
		return basenameHit, nil
	}
	return "", fmt.Errorf("no sums entry for %s", filename)
}
