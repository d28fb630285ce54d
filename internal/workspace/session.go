package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PhaseRecord is one journaled state-machine event.
type PhaseRecord struct {
	Phase string    `json:"phase"`
	At    time.Time `json:"at"`
	Note  string    `json:"note,omitempty"`
}

// Manifest is the durable journal of one build session, written
// atomically after every phase transition so a crashed build can be
// examined post-mortem.
type Manifest struct {
	Version    int           `json:"version"` // Schema version for future evolution
	ID         string        `json:"id"`      // UUID for unique identification
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Preset     string        `json:"preset"`
	Outcome    string        `json:"outcome,omitempty"`
	Phases     []PhaseRecord `json:"phases"`
}

// Session is one build's claim on a workspace: the exclusive lock, the
// journal, and the single write grant.
type Session struct {
	ws    *Workspace
	lock  *Lock
	clock Clock

	mu       sync.Mutex
	manifest Manifest
	granted  bool
}

// Begin opens a session: takes the workspace lock, assigns the session
// id, and journals the start. clock may be nil for the system clock.
func Begin(ctx context.Context, ws *Workspace, preset string, clock Clock) (*Session, error) {
	if clock == nil {
		clock = RealClock{}
	}

	lock, err := AcquireLock(ctx, ws.StateDir())
	if err != nil {
		return nil, err
	}

	s := &Session{
		ws:    ws,
		lock:  lock,
		clock: clock,
		manifest: Manifest{
			Version:   1,
			ID:        uuid.New().String(),
			StartedAt: clock.Now().UTC(),
			Preset:    preset,
		},
	}
	if err := s.save(); err != nil {
		lock.Release()
		return nil, err
	}
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.manifest.ID
}

// ManifestPath returns where the session journal lives.
func (s *Session) ManifestPath() string {
	return filepath.Join(s.ws.SessionDir(), "session-"+s.manifest.ID+".json")
}

// LogPath returns the session's durable build log file.
func (s *Session) LogPath() string {
	return filepath.Join(s.ws.LogDir(), "build-"+s.manifest.ID+".log")
}

// RecordPhase appends a journal entry and persists the manifest.
func (s *Session) RecordPhase(phase, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.manifest.Phases = append(s.manifest.Phases, PhaseRecord{
		Phase: phase,
		At:    s.clock.Now().UTC(),
		Note:  note,
	})
	return s.save()
}

// ClaimWriteGrant hands out the session's single write grant for the
// build script. The second claim fails with ErrGrantClaimed.
func (s *Session) ClaimWriteGrant() (*WriteGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.granted {
		return nil, ErrGrantClaimed
	}
	s.granted = true
	return &WriteGrant{path: s.ws.ScriptPath()}, nil
}

// Finish journals the terminal outcome and releases the workspace lock.
func (s *Session) Finish(outcome string) error {
	s.mu.Lock()
	s.manifest.Outcome = outcome
	s.manifest.FinishedAt = s.clock.Now().UTC()
	err := s.save()
	s.mu.Unlock()

	if rerr := s.lock.Release(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// save writes the manifest to disk atomically.
// Uses write-then-rename plus a directory sync for durability.
func (s *Session) save() error {
	dir := s.ws.SessionDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	finalPath := filepath.Join(dir, "session-"+s.manifest.ID+".json")
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(&s.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session manifest: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temporary manifest: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename manifest: %w", err)
	}

	// Sync directory for durability
	df, err := os.Open(dir)
	if err == nil {
		if syncErr := df.Sync(); syncErr != nil {
			df.Close()
			return fmt.Errorf("sync session directory: %w", syncErr)
		}
		df.Close()
	}

	return nil
}

// LoadManifest reads a session manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal session manifest: %w", err)
	}
	return &m, nil
}
