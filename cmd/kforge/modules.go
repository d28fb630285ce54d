package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgelab/kforge/internal/modset"
)

var (
	modulesPreset    string
	modulesWhitelist bool
)

// modulesCmd shows the frozen module set a build would enforce
var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Show the module set a build would freeze",
	Long: `Reconciles the module layers the way a build's Configuration phase
does: detected modules (when auto-discovery is enabled and a module
list is available), minus the GPU exclusions, plus the whitelist and
any extra modules from the profile documents.

When filtering is off the external build keeps its own module list and
no module assertions are enforced or verified.

Examples:
  kforge modules --module-list /proc/modules --preset server
  kforge modules --whitelist`,
	Args: cobra.NoArgs,
	RunE: runModules,
}

func init() {
	modulesCmd.Flags().StringVarP(&modulesPreset, "preset", "p", "", "Preset profile to reconcile against (default: stock)")
	modulesCmd.Flags().BoolVar(&modulesWhitelist, "whitelist", false, "List the always-kept whitelist by category and exit")
}

func runModules(cmd *cobra.Command, args []string) error {
	if modulesWhitelist {
		for _, cat := range modset.WhitelistCategories() {
			fmt.Printf("%s:\n", cat)
			for _, m := range modset.WhitelistCategory(cat) {
				fmt.Printf("  %s\n", m)
			}
		}
		return nil
	}

	res, err := resolveLayers(context.Background(), modulesPreset)
	if err != nil {
		return err
	}

	mods := res.Modules
	if !mods.Filter {
		fmt.Printf("module filtering off (%s)\n", res.Skip)
		return nil
	}

	fmt.Printf("%d module(s) frozen", mods.Len())
	if excl := modset.ExclusionsFor(res.Facts.GPU); len(excl) > 0 {
		fmt.Printf(" (gpu %s exclusions applied)", res.Facts.GPU)
	}
	fmt.Println(":")
	for _, name := range mods.Keys() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
