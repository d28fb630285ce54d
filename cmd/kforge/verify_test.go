package main

import (
	"context"
	"strings"
	"testing"

	"github.com/forgelab/kforge/internal/testutil"
)

// writeConformingConfig resolves the layers exactly as the command will
// and installs the matching .config, returning its lines.
func writeConformingConfig(t *testing.T, dir string) []string {
	t.Helper()
	res, err := resolveLayers(context.Background(), "")
	if err != nil {
		t.Fatalf("resolveLayers: %v", err)
	}
	lines := res.Spec.AllLines()
	testutil.WriteConfig(t, dir, strings.Join(lines, "\n")+"\n")
	return lines
}

func TestRunVerifyCleanConfig(t *testing.T) {
	dir := setWorkspace(t, testutil.Script)
	writeConformingConfig(t, dir)
	verifyPreset = ""

	if err := runVerify(verifyCmd, nil); err != nil {
		t.Fatalf("runVerify: %v", err)
	}
}

func TestRunVerifyFatalDrift(t *testing.T) {
	dir := setWorkspace(t, testutil.Script)
	lines := writeConformingConfig(t, dir)

	// The stock layers always select no LTO; dropping that line is a
	// critical family violation.
	var kept []string
	for _, l := range lines {
		if l == "CONFIG_LTO_NONE=y" {
			continue
		}
		kept = append(kept, l)
	}
	testutil.WriteConfig(t, dir, strings.Join(kept, "\n")+"\n")
	verifyPreset = ""

	err := runVerify(verifyCmd, nil)
	if err == nil {
		t.Fatal("expected a fatal verification error")
	}
	if !strings.Contains(err.Error(), "critical family") {
		t.Errorf("error %q does not mention the critical family", err)
	}
}

func TestRunVerifyMissingConfig(t *testing.T) {
	setWorkspace(t, testutil.Script)
	verifyPreset = ""

	if err := runVerify(verifyCmd, nil); err == nil {
		t.Fatal("expected an error when no .config exists")
	}
}
