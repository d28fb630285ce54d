package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forgelab/kforge/internal/hardware"
	"github.com/forgelab/kforge/internal/orchestrator"
	"github.com/forgelab/kforge/internal/runner"
	"github.com/forgelab/kforge/internal/verify"
)

// tickerWidth caps the one-line progress display.
const tickerWidth = 96

var (
	buildPreset  string
	buildArchive string
	buildKeyring string
	buildCommand []string
	buildFollow  bool
)

// buildCmd runs one enforced build end to end
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the external build under enforcement",
	Long: `Runs one enforced build end to end: restores the build script from
its pristine snapshot (taking the snapshot on first contact), resolves
the configuration layers, injects the enforcement checkpoints, executes
the external build command, and verifies that every assertion survived.

The instrumented script is regenerated from the pristine copy on every
run, so repeated builds are stable and the script is never edited by
hand.

Examples:
  kforge build
  kforge build --preset performance --follow
  kforge build --archive linux-6.12.tar.xz --keyring keys/kernel.gpg`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildPreset, "preset", "p", "", "Preset profile to resolve against (default: stock)")
	buildCmd.Flags().StringVar(&buildArchive, "archive", "", "Source archive to verify before building")
	buildCmd.Flags().StringVar(&buildKeyring, "keyring", "", "GPG keyring for detached signature checks on the archive")
	buildCmd.Flags().StringSliceVar(&buildCommand, "command", nil, "External build command (default: makepkg --force --noconfirm)")
	buildCmd.Flags().BoolVar(&buildFollow, "follow", false, "Stream full build output instead of the one-line ticker")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling build")
		cancel()
	}()

	events := make(chan orchestrator.Event, 64)
	lines := make(chan string, 256)

	// One printer goroutine owns stdout so phase lines and build
	// output never interleave mid-line.
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		evs, outs := events, lines
		needClear := false
		clearTicker := func() {
			if needClear {
				fmt.Print("\r\033[K")
				needClear = false
			}
		}
		for evs != nil || outs != nil {
			select {
			case ev, ok := <-evs:
				if !ok {
					evs = nil
					continue
				}
				clearTicker()
				switch ev.Type {
				case orchestrator.EventPhase:
					fmt.Printf("==> %s\n", ev.Phase)
				case orchestrator.EventWarning:
					fmt.Printf("    warning: %s\n", ev.Message)
				}
			case line, ok := <-outs:
				if !ok {
					outs = nil
					continue
				}
				if buildFollow {
					fmt.Println(line)
					continue
				}
				if len(line) > tickerWidth {
					line = line[:tickerWidth]
				}
				fmt.Printf("\r\033[K    %s", line)
				needClear = true
			}
		}
		clearTicker()
	}()

	o := orchestrator.New(
		runner.NewScriptRunner(),
		hardware.NewCollector(moduleList),
		nil,
		orchestrator.NewZapLogger(logger.Sugar()),
		nil,
	)

	req := orchestrator.Request{
		Root:    workspaceRoot,
		Preset:  buildPreset,
		Archive: buildArchive,
		Keyring: buildKeyring,
		Command: buildCommand,
		Events:  events,
	}
	if buildFollow {
		req.Follow = lines
	} else {
		req.Progress = lines
	}

	res, err := o.Run(ctx, req)

	// Run has returned, so nothing emits on these channels anymore.
	close(events)
	close(lines)
	<-printed

	fmt.Println()
	if res.Verify != nil {
		fmt.Println(verify.FormatReport(res.Verify))
	}
	if res.LogPath != "" {
		fmt.Printf("build log: %s\n", res.LogPath)
	}
	if err != nil {
		return fmt.Errorf("build %s: %w", res.Phase, err)
	}
	fmt.Printf("session %s completed\n", res.SessionID)
	return nil
}
