package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forgelab/kforge/internal/hardware"
	"github.com/forgelab/kforge/internal/profile"
)

// presetsCmd lists the built-in preset profiles
var presetsCmd = &cobra.Command{
	Use:   "presets [name]",
	Short: "List preset profiles or show one resolved",
	Long: `Without arguments, lists the built-in preset profiles. With a name,
parses that preset against the local hardware facts and prints the
document it produces, including any hardware-conditional sections.

Examples:
  kforge presets
  kforge presets performance`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPresets,
}

func runPresets(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 0 {
		// Zero facts keep the listing machine-independent; documents
		// that branch on hardware still parse against the zero table.
		facts := &hardware.Facts{GPU: hardware.GPUUnknown}
		for _, name := range profile.PresetNames() {
			doc, err := profile.LoadPreset(ctx, name, facts)
			if err != nil {
				return err
			}
			marker := "  "
			if name == profile.DefaultPreset {
				marker = "* "
			}
			fmt.Printf("%s%-13s %s\n", marker, name, doc.Meta.Description)
		}
		return nil
	}

	facts, err := hardware.NewCollector(moduleList).Collect(ctx)
	if err != nil {
		logger.Warn("hardware collection degraded", zap.Error(err))
		facts = &hardware.Facts{GPU: hardware.GPUUnknown}
	}
	doc, err := profile.LoadPreset(ctx, args[0], facts)
	if err != nil {
		return err
	}

	fmt.Println(describeDoc(doc))
	cfg := doc.Config
	if cfg.LTO != nil {
		fmt.Printf("  lto         %s\n", *cfg.LTO)
	}
	if cfg.Preempt != nil {
		fmt.Printf("  preempt     %s\n", *cfg.Preempt)
	}
	if cfg.TickHz != nil {
		fmt.Printf("  tick_hz     %d\n", int(*cfg.TickHz))
	}
	if cfg.NRCPUs != nil {
		fmt.Printf("  nr_cpus     %d\n", *cfg.NRCPUs)
	}
	if cfg.Hostname != nil {
		fmt.Printf("  hostname    %s\n", *cfg.Hostname)
	}
	mods := doc.Modules
	if mods.AutoDetect != nil {
		fmt.Printf("  autodetect  %t\n", *mods.AutoDetect)
	}
	if mods.Whitelist != nil {
		fmt.Printf("  whitelist   %t\n", *mods.Whitelist)
	}
	if len(mods.Extra) > 0 {
		fmt.Printf("  extra       %s\n", strings.Join(mods.Extra, " "))
	}
	return nil
}
