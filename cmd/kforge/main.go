package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/forgelab/kforge/internal/hardware"
	"github.com/forgelab/kforge/internal/kconfig"
	"github.com/forgelab/kforge/internal/modset"
	"github.com/forgelab/kforge/internal/profile"
	"github.com/forgelab/kforge/internal/resolve"
	"github.com/forgelab/kforge/internal/workspace"
)

var (
	// Global flags
	verbose       bool
	workspaceRoot string
	moduleList    string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kforge",
	Short: "kforge - surgical configuration enforcement for external kernel builds",
	Long: `kforge drives customized Linux kernel builds through an external,
PKGBUILD-shaped build script without patching kernel sources.

It resolves the wanted configuration from three layers in priority
order (hardware facts, the workspace kforge.lua override, a named
preset), freezes the surviving module set, and instruments the build
script with idempotent enforcement checkpoints so every assertion
survives the external tool's own reconfiguration steps. After the
build it verifies the final .config against each assertion.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspaceRoot, "workspace", "w", ".", "Workspace directory holding the build script")
	rootCmd.PersistentFlags().StringVar(&moduleList, "module-list", "", "File naming loaded kernel modules, one per line (feeds module auto-discovery)")

	// Add commands to root
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(presetsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolution is the read-only outcome of layering hardware facts, the
// workspace override, and a named preset. It mirrors what a build's
// Configuration phase computes, without locking the workspace.
type resolution struct {
	WS       *workspace.Workspace
	Facts    *hardware.Facts
	Override *profile.Document
	Preset   *profile.Document
	Spec     *kconfig.Spec
	Modules  *kconfig.ModuleSet
	Skip     modset.SkipReason
}

// resolveLayers collects hardware facts, parses the optional override
// document, loads the preset, and resolves both the configuration spec
// and the module set for inspection commands.
func resolveLayers(ctx context.Context, presetName string) (*resolution, error) {
	ws, err := workspace.Open(workspaceRoot)
	if err != nil {
		return nil, err
	}

	facts, err := hardware.NewCollector(moduleList).Collect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logger.Warn("hardware collection degraded", zap.Error(err))
		facts = &hardware.Facts{GPU: hardware.GPUUnknown}
	}

	var override *profile.Document
	raw, err := os.ReadFile(ws.OverridePath())
	switch {
	case err == nil:
		override, err = profile.NewParser(facts).ParseString(ctx, string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %s", workspace.OverrideName, profile.FormatError(err, verbose))
		}
	case os.IsNotExist(err):
		// No override in this workspace.
	default:
		return nil, fmt.Errorf("read override: %w", err)
	}

	preset, err := profile.LoadPreset(ctx, presetName, facts)
	if err != nil {
		return nil, err
	}

	spec := resolve.Resolve(facts, override, preset)
	autoDetect, whitelist, extra := resolve.ModulePrefs(override, preset)
	mods, skip := modset.Reconcile(modset.ReconcileInput{
		AutoDetect:       autoDetect,
		Detected:         facts.Modules,
		WhitelistEnabled: whitelist,
		GPU:              facts.GPU,
		Extra:            extra,
	})

	return &resolution{
		WS:       ws,
		Facts:    facts,
		Override: override,
		Preset:   preset,
		Spec:     spec,
		Modules:  mods,
		Skip:     skip,
	}, nil
}
