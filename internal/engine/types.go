package engine

import (
	"errors"
	"fmt"

	"github.com/bianoble/plugin-migrate/internal/migrations"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

// ErrNoRecordedVersion is returned when neither the caller nor the
// project settings say which version the project is at.
var ErrNoRecordedVersion = errors.New("project has no recorded version")

// State is a step of a migration run.
type State string

const (
	StateIdle       State = "idle"
	StateSelecting  State = "selecting"
	StateRunning    State = "running"
	StateCommitting State = "committing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Transition records the run entering a state, with the migration it
// concerns for running and committing.
type Transition struct {
	State     State
	Migration string
}

// MigrationError wraps a failure escaping a migration.
type MigrationError struct {
	Migration string
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s: %v", e.Migration, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// MigrationResult is what one applied migration changed.
type MigrationResult struct {
	Meta      migrations.Meta
	Counts    snapshot.Counts
	Written   []string
	Removed   []string
	Installed bool
	Committed bool
}

// RunResult holds the outcome of a run.
type RunResult struct {
	From        string
	To          string
	Applied     []MigrationResult
	Transitions []Transition

	// Recorded is the version in the project settings after the run. It
	// only moves when every selected migration succeeded.
	Recorded string
}

// State returns the last state the run reached.
func (r *RunResult) State() State {
	if len(r.Transitions) == 0 {
		return StateIdle
	}
	return r.Transitions[len(r.Transitions)-1].State
}

func (r *RunResult) enter(s State, migration string) {
	r.Transitions = append(r.Transitions, Transition{State: s, Migration: migration})
}

// PreviewResult holds the combined pending changes of one or more
// migrations that were never written to disk.
type PreviewResult struct {
	Migrations []migrations.Meta
	Snapshot   *snapshot.Snapshot
}

// StatusResult describes where a project stands against the catalog.
type StatusResult struct {
	Recorded string
	Latest   string
	Pending  []migrations.Meta
}
