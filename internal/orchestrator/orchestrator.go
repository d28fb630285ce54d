// Package orchestrator sequences one build through the phase state
// machine: Preparation, Configuration, Patching, Building, Validation,
// then a terminal outcome. Phases are strictly sequential. The
// orchestrator itself never rewrites the managed files: script
// mutation happens only inside the engine behind the session's write
// grant, and external execution only inside the runner.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/forgelab/kforge/internal/engine"
	"github.com/forgelab/kforge/internal/hardware"
	"github.com/forgelab/kforge/internal/kconfig"
	"github.com/forgelab/kforge/internal/modset"
	"github.com/forgelab/kforge/internal/profile"
	"github.com/forgelab/kforge/internal/resolve"
	"github.com/forgelab/kforge/internal/runner"
	"github.com/forgelab/kforge/internal/sources"
	"github.com/forgelab/kforge/internal/verify"
	"github.com/forgelab/kforge/internal/workspace"
)

// DefaultBuildCommand invokes the external packaging tool that
// executes the instrumented script's stages.
var DefaultBuildCommand = []string{"makepkg", "--force", "--noconfirm"}

// Orchestrator drives builds with injected collaborators. One build
// runs at a time per workspace; distinct workspaces may build
// concurrently.
type Orchestrator struct {
	run       runner.Runner
	collector hardware.Collector
	eng       *engine.Engine
	log       Logger
	clock     workspace.Clock
}

// New creates an orchestrator with dependency injection. log, clock,
// and eng may be nil for the no-op logger, the system clock, and the
// default checkpoint table.
func New(run runner.Runner, collector hardware.Collector, eng *engine.Engine, log Logger, clock workspace.Clock) *Orchestrator {
	if log == nil {
		log = defaultLogger()
	}
	if clock == nil {
		clock = workspace.RealClock{}
	}
	if eng == nil {
		eng = engine.New()
	}
	return &Orchestrator{
		run:       run,
		collector: collector,
		eng:       eng,
		log:       log,
		clock:     clock,
	}
}

// Request contains the parameters for one build.
type Request struct {
	// Root is the workspace directory holding the build script.
	Root string
	// Preset names the profile document; empty selects the default.
	Preset string
	// Archive optionally names a source archive to verify during
	// Preparation.
	Archive string
	// Keyring optionally names a GPG keyring for detached signature
	// checks on the archive.
	Keyring string
	// Command overrides DefaultBuildCommand.
	Command []string
	// Events receives phase and warning notifications. Emission never
	// blocks; a full channel drops the event.
	Events chan<- Event
	// Follow receives a best-effort copy of build output lines.
	Follow chan<- string
	// Progress receives coalesced latest-value build output.
	Progress chan<- string
}

// Result collects what a build produced, terminal phase included.
// Fields are populated as far as the build got.
type Result struct {
	Phase     Phase
	SessionID string
	LogPath   string
	Spec      *kconfig.Spec
	Modules   *kconfig.ModuleSet
	Skip      modset.SkipReason
	Plan      *engine.Report
	Verify    *verify.Report
}

// build carries one run's accumulating state between phases.
type build struct {
	req     Request
	ws      *workspace.Workspace
	session *workspace.Session
	machine *machine
	res     *Result
}

// Run executes one build to a terminal phase. The returned Result is
// always non-nil; the error is nil only for Completed. Cancellation
// surfaces as the context's error with Result.Phase Cancelled.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Preset == "" {
		req.Preset = profile.DefaultPreset
	}
	if len(req.Command) == 0 {
		req.Command = append([]string(nil), DefaultBuildCommand...)
	}

	b := &build{
		req:     req,
		machine: newMachine(),
		res:     &Result{Phase: PhasePreparation},
	}

	if err := o.prepare(ctx, b); err != nil {
		return o.finish(b, err)
	}

	if err := o.advance(ctx, b, PhaseConfiguration, "resolving configuration"); err != nil {
		return o.finish(b, err)
	}
	if err := o.configure(ctx, b); err != nil {
		return o.finish(b, err)
	}

	if err := o.advance(ctx, b, PhasePatching, "instrumenting build script"); err != nil {
		return o.finish(b, err)
	}
	if err := o.patch(b); err != nil {
		return o.finish(b, err)
	}

	if err := o.advance(ctx, b, PhaseBuilding, "running external build"); err != nil {
		return o.finish(b, err)
	}
	if err := o.execute(ctx, b); err != nil {
		return o.finish(b, err)
	}

	if err := o.advance(ctx, b, PhaseValidation, "verifying final configuration"); err != nil {
		return o.finish(b, err)
	}
	if err := o.validate(b); err != nil {
		return o.finish(b, err)
	}

	return o.finish(b, nil)
}

// prepare claims the workspace and brings it to a known-good starting
// state. It covers the machine's initial phase.
func (o *Orchestrator) prepare(ctx context.Context, b *build) error {
	// 1. Open the workspace and begin the session (takes the lock).
	ws, err := workspace.Open(b.req.Root)
	if err != nil {
		return err
	}
	b.ws = ws

	session, err := workspace.Begin(ctx, ws, b.req.Preset, o.clock)
	if err != nil {
		return err
	}
	b.session = session
	b.res.SessionID = session.ID()
	b.res.LogPath = session.LogPath()

	o.journal(b, PhasePreparation, "session opened")
	emit(b.req.Events, Event{Type: EventPhase, Phase: PhasePreparation, Message: "session opened", Time: o.clock.Now()})
	o.log.Info("session opened", "session", session.ID(), "workspace", ws.Root, "preset", b.req.Preset)

	// 2. Discard artifacts abandoned by prior sessions.
	removed, err := ws.CleanLeftovers()
	if err != nil {
		return err
	}
	for _, path := range removed {
		o.log.Info("removed leftover artifact", "path", path)
	}

	// 3. Reset the build script to pristine, or retain the first
	// pristine snapshot if this workspace has never built.
	if ws.HasPristine() {
		if err := ws.RestorePristine(); err != nil {
			return err
		}
		o.log.Info("build script reset from pristine snapshot")
	} else {
		if err := ws.SnapshotPristine(); err != nil {
			return err
		}
		o.log.Info("pristine snapshot retained", "script", ws.ScriptPath())
	}

	// 4. Base tool prerequisites. Toolchain extras demanded by the
	// resolved selections are checked after Configuration.
	if missing := sources.MissingTools(nil); len(missing) > 0 {
		return fmt.Errorf("required tools missing: %s", strings.Join(missing, ", "))
	}

	// 5. Opportunistic source archive verification: absent material
	// degrades with a warning, present-but-failing material is fatal.
	if b.req.Archive != "" {
		vr, err := sources.NewVerifier(b.req.Keyring).VerifyArchive(b.req.Archive)
		if err != nil {
			return err
		}
		if vr.Method == sources.MethodNone {
			o.warn(b, "no verification material for source archive", "archive", b.req.Archive)
		} else {
			o.log.Info("source archive verified", "method", vr.Method.String(), "signer", vr.Signer)
		}
	}

	return nil
}

// configure resolves the frozen Spec and ModuleSet for the session.
func (o *Orchestrator) configure(ctx context.Context, b *build) error {
	// 1. Hardware facts. Optional lookups degrade inside the
	// collector; a failure here other than cancellation degrades to
	// zero facts so hw-referencing documents still parse.
	facts, err := o.collector.Collect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		o.warn(b, "hardware detection unavailable", "error", err.Error())
		facts = &hardware.Facts{GPU: hardware.GPUUnknown}
	}

	// 2. Optional user override document.
	var override *profile.Document
	data, err := os.ReadFile(b.ws.OverridePath())
	switch {
	case err == nil:
		override, err = profile.NewParser(facts).ParseString(ctx, string(data))
		if err != nil {
			return fmt.Errorf("parse %s: %w", workspace.OverrideName, err)
		}
	case os.IsNotExist(err):
		// no override in this workspace
	default:
		return fmt.Errorf("read override: %w", err)
	}

	// 3. Named preset document.
	preset, err := profile.LoadPreset(ctx, b.req.Preset, facts)
	if err != nil {
		return err
	}

	// 4. Fold the layers into the frozen spec; conflicts are data,
	// logged with provenance, never errors.
	spec := resolve.Resolve(facts, override, preset)
	for _, c := range spec.Conflicts {
		o.warn(b, "resolution conflict", "detail", c.String())
	}
	b.res.Spec = spec
	o.log.Info("configuration resolved", "spec", spec.Summary())

	// 5. The resolved selections may demand toolchain extras.
	if missing := sources.MissingTools(spec); len(missing) > 0 {
		return fmt.Errorf("resolved configuration needs missing tools: %s", strings.Join(missing, ", "))
	}

	// 6. Reconcile the frozen module set.
	autoDetect, whitelist, extra := resolve.ModulePrefs(override, preset)
	mods, skip := modset.Reconcile(modset.ReconcileInput{
		AutoDetect:       autoDetect,
		Detected:         facts.Modules,
		WhitelistEnabled: whitelist,
		GPU:              facts.GPU,
		Extra:            extra,
	})
	b.res.Modules = mods
	b.res.Skip = skip
	if skip != modset.SkipNone {
		o.log.Info("module filtering inactive", "reason", skip.String())
	} else {
		o.log.Info("module set frozen", "modules", mods.Len())
	}

	return nil
}

// patch claims the session's single write grant and instruments the
// script in one engine call.
func (o *Orchestrator) patch(b *build) error {
	grant, err := b.session.ClaimWriteGrant()
	if err != nil {
		return err
	}

	report, err := o.eng.Instrument(grant, b.res.Spec, b.res.Modules)
	if err != nil {
		return err
	}
	b.res.Plan = report

	for _, ins := range report.Insertions {
		o.log.Info("checkpoint injected", "checkpoint", ins.Checkpoint, "stage", ins.Stage, "line", ins.Line)
	}
	for _, id := range report.Skipped {
		o.log.Info("checkpoint already present", "checkpoint", id)
	}
	return nil
}

// execute spawns the external build over the instrumented script and
// fans its output to the sinks. The managed files are not reopened
// until the process has exited.
func (o *Orchestrator) execute(ctx context.Context, b *build) error {
	logSink, err := NewLogSink(b.session.LogPath(), b.req.Follow)
	if err != nil {
		return err
	}
	progress := NewProgressSink(b.req.Progress)

	cmd := runner.Command{
		Path: b.req.Command[0],
		Args: b.req.Command[1:],
		Dir:  b.ws.Root,
	}
	o.log.Info("external build starting", "command", strings.Join(b.req.Command, " "), "log", b.session.LogPath())

	runErr := o.run.Run(ctx, cmd, tee{logSink, progress}, logSink)

	progress.Close()
	if cerr := logSink.Close(); cerr != nil {
		o.warn(b, "build log persistence incomplete", "error", cerr.Error())
	}
	return runErr
}

// validate re-opens the final configuration read-only and checks every
// frozen assertion against it.
func (o *Orchestrator) validate(b *build) error {
	report, err := verify.InspectFile(b.ws.ConfigPath(), b.res.Spec, b.res.Modules)
	if err != nil {
		return err
	}
	b.res.Verify = report

	for _, f := range report.Findings {
		if f.Severity == verify.SeverityFatal {
			o.log.Error("enforcement violated", "class", f.Class.String(), "subject", f.Subject, "want", f.Want, "have", f.Have)
		} else {
			o.warn(b, "enforcement drift", "class", f.Class.String(), "subject", f.Subject)
		}
	}
	if report.Fatal() {
		return fmt.Errorf("critical family selection did not survive the external build")
	}
	o.log.Info("final configuration verified", "assertions", report.Checked, "findings", len(report.Findings))
	return nil
}

// advance performs the between-phase cancellation check and moves the
// machine to next, journaling and announcing the transition.
func (o *Orchestrator) advance(ctx context.Context, b *build, next Phase, note string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.machine.to(next); err != nil {
		return err
	}
	b.res.Phase = next
	o.journal(b, next, note)
	emit(b.req.Events, Event{Type: EventPhase, Phase: next, Message: note, Time: o.clock.Now()})
	o.log.Debug("phase entered", "phase", string(next))
	return nil
}

// finish maps the build's outcome to its terminal phase, journals it,
// and closes the session. A nil err completes; a context error
// cancels; anything else fails.
func (o *Orchestrator) finish(b *build, err error) (*Result, error) {
	var outcome Phase
	switch {
	case err == nil:
		outcome = PhaseCompleted
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		outcome = PhaseCancelled
	default:
		outcome = PhaseFailed
	}

	if terr := b.machine.to(outcome); terr != nil {
		o.log.Error("terminal transition rejected", "error", terr.Error())
		if err == nil {
			err = terr
		}
	} else {
		b.res.Phase = outcome
	}

	note := ""
	if err != nil {
		note = err.Error()
	}
	o.journal(b, outcome, note)
	emit(b.req.Events, Event{Type: EventPhase, Phase: outcome, Message: note, Time: o.clock.Now()})

	if b.session != nil {
		if ferr := b.session.Finish(string(outcome)); ferr != nil {
			o.log.Warn("session close failed", "error", ferr.Error())
		}
	}
	o.log.Info("build finished", "outcome", string(outcome), "session", b.res.SessionID)
	return b.res, err
}

// journal appends to the session manifest; journaling trouble is
// logged, never fatal to the build it documents.
func (o *Orchestrator) journal(b *build, phase Phase, note string) {
	if b.session == nil {
		return
	}
	if err := b.session.RecordPhase(string(phase), note); err != nil {
		o.log.Warn("session journal write failed", "error", err.Error())
	}
}

// warn logs and announces a degraded-but-continuing condition.
func (o *Orchestrator) warn(b *build, msg string, keysAndValues ...interface{}) {
	o.log.Warn(msg, keysAndValues...)
	emit(b.req.Events, Event{Type: EventWarning, Phase: b.machine.current, Message: msg, Time: o.clock.Now()})
}
