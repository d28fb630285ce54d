package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgelab/kforge/internal/kconfig"
	"github.com/forgelab/kforge/internal/profile"
)

var resolvePreset string

// resolveCmd shows the layered configuration decision
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show the resolved configuration and its provenance",
	Long: `Resolves the wanted kernel configuration from the three layers in
priority order: hardware facts, the workspace kforge.lua override, and
the named preset. Prints each decision with the layer that supplied it,
plus every conflict where a stronger layer overrode a weaker request.

Example:
  kforge resolve --preset lowlatency`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolvePreset, "preset", "p", "", "Preset profile to resolve against (default: stock)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	res, err := resolveLayers(context.Background(), resolvePreset)
	if err != nil {
		return err
	}

	facts := res.Facts
	fmt.Printf("hardware: %d cpu(s), gpu %s, clang-lto %s\n",
		facts.CPUCount, facts.GPU, availability(facts.HasClangLTO))
	if override := res.Override; override != nil {
		fmt.Printf("override: %s\n", describeDoc(override))
	}
	fmt.Printf("preset:   %s\n\n", describeDoc(res.Preset))

	spec := res.Spec
	rows := []struct {
		subject string
		value   string
	}{
		{string(kconfig.FamilyLTO), spec.LTO.String()},
		{string(kconfig.FamilyPreempt), spec.Preempt.String()},
		{string(kconfig.FamilyTick), fmt.Sprintf("%dhz", int(spec.Tick))},
	}
	for _, r := range rows {
		fmt.Printf("  %-10s %-12s %s\n", r.subject, r.value, provenance(spec, r.subject))
	}
	for _, p := range spec.Pins {
		fmt.Printf("  %-23s from %s\n", p.Value.Line(p.Key), p.Source)
	}

	if len(spec.Conflicts) > 0 {
		fmt.Println("\nconflicts:")
		for _, c := range spec.Conflicts {
			fmt.Printf("  %s\n", c.String())
		}
	}
	return nil
}

func provenance(spec *kconfig.Spec, subject string) string {
	src, ok := spec.SourceOf(subject)
	if !ok {
		return ""
	}
	return "from " + src.String()
}

func describeDoc(doc *profile.Document) string {
	if doc.Meta.Name == "" {
		return "unnamed document"
	}
	if doc.Meta.Description == "" {
		return doc.Meta.Name
	}
	return doc.Meta.Name + " (" + doc.Meta.Description + ")"
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}
