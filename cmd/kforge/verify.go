package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgelab/kforge/internal/verify"
)

var verifyPreset string

// verifyCmd checks a surviving .config against the resolved assertions
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the surviving .config against the resolved assertions",
	Long: `Re-resolves the configuration layers and inspects the workspace
.config left behind by the external build, reporting every asserted
selection that did not survive: family mismatches, drifted pins, and
dropped modules.

A mismatch in a critical family fails the command; everything else is
reported as a warning.

Example:
  kforge verify --preset performance`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyPreset, "preset", "p", "", "Preset profile to resolve against (default: stock)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	res, err := resolveLayers(context.Background(), verifyPreset)
	if err != nil {
		return err
	}

	report, err := verify.InspectFile(res.WS.ConfigPath(), res.Spec, res.Modules)
	if err != nil {
		return err
	}

	fmt.Println(verify.FormatReport(report))
	if report.Fatal() {
		return errors.New("critical family selection did not survive the external build")
	}
	return nil
}
