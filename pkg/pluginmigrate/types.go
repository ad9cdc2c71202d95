package pluginmigrate

import (
	"github.com/bianoble/plugin-migrate/internal/engine"
	"github.com/bianoble/plugin-migrate/internal/migrations"
)

// Type aliases re-export engine result types as the public API.

type Migration = migrations.Meta
type State = engine.State
type Transition = engine.Transition
type MigrationError = engine.MigrationError
type MigrationResult = engine.MigrationResult
type RunResult = engine.RunResult
type PreviewResult = engine.PreviewResult
type StatusResult = engine.StatusResult

// ErrNoRecordedVersion is returned when a run has no starting version.
var ErrNoRecordedVersion = engine.ErrNoRecordedVersion
