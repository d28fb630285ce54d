package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgelab/kforge/internal/engine"
	"github.com/forgelab/kforge/internal/workspace"
)

var (
	planPreset  string
	planPayload bool
)

// planCmd previews the enforcement insertions without writing
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview enforcement insertions without writing",
	Long: `Scans the workspace build script for the enforcement anchor points
and reports the line each checkpoint payload would land on. The script
is not modified.

A missing mandatory anchor fails the plan with the same error a build
would raise.

Examples:
  kforge plan
  kforge plan --payload --preset performance`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planPreset, "preset", "p", "", "Preset profile for payload preview (default: stock)")
	planCmd.Flags().BoolVar(&planPayload, "payload", false, "Also print the payload each checkpoint would inject")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ws, err := workspace.Open(workspaceRoot)
	if err != nil {
		return err
	}
	script, err := os.ReadFile(ws.ScriptPath())
	if err != nil {
		return fmt.Errorf("read build script: %w", err)
	}

	eng := engine.New()
	report, err := eng.Plan(script)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d insertion point(s)\n", ws.ScriptName, len(report.Insertions))
	for _, ins := range report.Insertions {
		stage := ins.Stage
		if stage == "" {
			stage = "-"
		}
		fmt.Printf("  %-8s line %-5d stage %-8s %s\n", ins.Checkpoint, ins.Line, stage, ins.Anchor)
	}
	for _, id := range report.Skipped {
		fmt.Printf("  %-8s no anchor in script, skipped\n", id)
	}

	if !planPayload {
		return nil
	}

	layers, err := resolveLayers(context.Background(), planPreset)
	if err != nil {
		return err
	}
	for _, cp := range eng.Checkpoints() {
		payload, ok := eng.PreviewPayload(cp.ID, layers.Spec, layers.Modules)
		if !ok {
			continue
		}
		fmt.Printf("\npayload %s:\n", cp.ID)
		for _, line := range payload {
			fmt.Printf("  %s\n", line)
		}
	}
	return nil
}
