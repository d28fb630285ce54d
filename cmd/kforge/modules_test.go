package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/forgelab/kforge/internal/testutil"
)

func TestRunModulesFilteringOff(t *testing.T) {
	setWorkspace(t, testutil.Script)
	modulesPreset, modulesWhitelist = "", false

	if err := runModules(modulesCmd, nil); err != nil {
		t.Fatalf("runModules: %v", err)
	}
}

func TestRunModulesWhitelistListing(t *testing.T) {
	setWorkspace(t, testutil.Script)
	modulesPreset, modulesWhitelist = "", true
	t.Cleanup(func() { modulesWhitelist = false })

	if err := runModules(modulesCmd, nil); err != nil {
		t.Fatalf("runModules --whitelist: %v", err)
	}
}

func TestResolveLayersFreezesDetectedModules(t *testing.T) {
	dir := setWorkspace(t, testutil.Script)

	listPath := filepath.Join(dir, "modules.list")
	if err := os.WriteFile(listPath, []byte("nvme_core\next4\n"), 0o644); err != nil {
		t.Fatalf("write module list: %v", err)
	}
	moduleList = listPath

	testutil.WriteOverride(t, dir, "kforge = { modules = { autodetect = true } }\n")

	res, err := resolveLayers(context.Background(), "")
	if err != nil {
		t.Fatalf("resolveLayers: %v", err)
	}
	if !res.Modules.Filter {
		t.Fatalf("filtering off: %s", res.Skip)
	}
	found := false
	for _, k := range res.Modules.Keys() {
		if k == "ext4" {
			found = true
		}
	}
	if !found {
		t.Error("detected module ext4 missing from the frozen set")
	}

	modulesPreset, modulesWhitelist = "", false
	if err := runModules(modulesCmd, nil); err != nil {
		t.Fatalf("runModules: %v", err)
	}
}
