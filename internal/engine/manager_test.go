package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bianoble/plugin-migrate/internal/migrations"
	"github.com/bianoble/plugin-migrate/internal/settings"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

func writeFile(path, content string) migrations.Func {
	return func(_ context.Context, snap *snapshot.Snapshot, _ *slog.Logger) (*snapshot.Snapshot, error) {
		return snap, snap.UpdateFile(path, []byte(content))
	}
}

func appendLine(path, line string) migrations.Func {
	return func(_ context.Context, snap *snapshot.Snapshot, _ *slog.Logger) (*snapshot.Snapshot, error) {
		content, _ := snap.GetFile(path)
		if bytes.Contains(content, []byte(line)) {
			return snap, nil
		}
		return snap, snap.UpdateFile(path, append(content, line...))
	}
}

func failWith(err error) migrations.Func {
	return func(context.Context, *snapshot.Snapshot, *slog.Logger) (*snapshot.Snapshot, error) {
		return nil, err
	}
}

func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readProjectFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func recordedVersion(t *testing.T, root string) string {
	t.Helper()
	s, err := settings.Load(root, settings.DefaultPath)
	if err != nil {
		t.Fatal(err)
	}
	return s.Version
}

const settingsAt100 = `{"version": "1.0.0"}` + "\n"

// twoStep is a catalog of two migrations touching the same file.
func twoStep() ([]migrations.Meta, *migrations.Registry) {
	catalog := []migrations.Meta{
		{Name: "add-a", Version: "2.0.0", Description: "adds a", EntryPoint: "add-a"},
		{Name: "append-b", Version: "3.0.0", Description: "appends b", EntryPoint: "append-b"},
	}
	reg := migrations.NewRegistry()
	reg.Register("add-a", writeFile("notes.md", "a\n"))
	reg.Register("append-b", appendLine("notes.md", "b\n"))
	return catalog, reg
}

func newManager(root string, catalog []migrations.Meta, reg *migrations.Registry) *Manager {
	return &Manager{
		Catalog:     catalog,
		Registry:    reg,
		ProjectRoot: root,
		Out:         io.Discard,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRunAppliesMigrationsInOrder(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: settingsAt100})
	catalog, reg := twoStep()
	var out bytes.Buffer
	m := newManager(root, catalog, reg)
	m.Out = &out

	res, err := m.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got := readProjectFile(t, root, "notes.md"); got != "a\nb\n" {
		t.Errorf("notes.md = %q", got)
	}
	if got := recordedVersion(t, root); got != "3.0.0" {
		t.Errorf("recorded version = %q, want 3.0.0", got)
	}
	if res.From != "1.0.0" || res.To != "3.0.0" || res.Recorded != "3.0.0" {
		t.Errorf("result range = %s..%s recorded %s", res.From, res.To, res.Recorded)
	}
	if res.State() != StateDone {
		t.Errorf("State = %s, want done", res.State())
	}

	if len(res.Applied) != 2 {
		t.Fatalf("applied %d migrations, want 2", len(res.Applied))
	}
	if diff := cmp.Diff(snapshot.Counts{Added: 1}, res.Applied[0].Counts); diff != "" {
		t.Errorf("first counts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(snapshot.Counts{Updated: 1}, res.Applied[1].Counts); diff != "" {
		t.Errorf("second counts mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "add-a (2.0.0): adds a") || !strings.Contains(out.String(), "UPDATE  notes.md") {
		t.Errorf("summary output missing entries:\n%s", out.String())
	}
}

func TestRunTransitions(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: settingsAt100})
	catalog, reg := twoStep()
	res, err := newManager(root, catalog[:1], reg).Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := []Transition{
		{State: StateSelecting},
		{State: StateRunning, Migration: "add-a"},
		{State: StateCommitting, Migration: "add-a"},
		{State: StateDone},
	}
	if diff := cmp.Diff(want, res.Transitions); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestRunFailureKeepsEarlierWorkAndVersion(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: settingsAt100})
	catalog, reg := twoStep()
	boom := errors.New("boom")
	reg.Register("append-b", failWith(boom))

	res, err := newManager(root, catalog, reg).Run(context.Background(), RunOptions{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	var merr *MigrationError
	if !errors.As(err, &merr) || merr.Migration != "append-b" {
		t.Errorf("err = %#v, want MigrationError for append-b", err)
	}
	if res.State() != StateFailed {
		t.Errorf("State = %s, want failed", res.State())
	}
	if got := readProjectFile(t, root, "notes.md"); got != "a\n" {
		t.Errorf("notes.md = %q, first migration should be on disk", got)
	}
	if got := recordedVersion(t, root); got != "1.0.0" {
		t.Errorf("recorded version = %q, want 1.0.0", got)
	}
}

func TestRunResumesAfterFailure(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: settingsAt100})
	catalog, reg := twoStep()
	reg.Register("append-b", failWith(errors.New("boom")))
	if _, err := newManager(root, catalog, reg).Run(context.Background(), RunOptions{}); err == nil {
		t.Fatal("first run should fail")
	}

	reg.Register("append-b", appendLine("notes.md", "b\n"))
	res, err := newManager(root, catalog, reg).Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied[0].Counts.Total() != 0 {
		t.Errorf("re-running add-a changed %d files", res.Applied[0].Counts.Total())
	}
	if got := readProjectFile(t, root, "notes.md"); got != "a\nb\n" {
		t.Errorf("notes.md = %q", got)
	}
	if got := recordedVersion(t, root); got != "3.0.0" {
		t.Errorf("recorded version = %q, want 3.0.0", got)
	}
}

func TestRunRecordsVersionOnceAtEnd(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: settingsAt100})
	catalog, reg := twoStep()
	var seen []string
	reg.Register("append-b", func(_ context.Context, snap *snapshot.Snapshot, _ *slog.Logger) (*snapshot.Snapshot, error) {
		s, err := settings.Load(root, settings.DefaultPath)
		if err != nil {
			return nil, err
		}
		seen = append(seen, s.Version)
		return snap, nil
	})

	if _, err := newManager(root, catalog, reg).Run(context.Background(), RunOptions{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1.0.0"}, seen); diff != "" {
		t.Errorf("version seen mid-run mismatch (-want +got):\n%s", diff)
	}
	if got := recordedVersion(t, root); got != "3.0.0" {
		t.Errorf("recorded version = %q, want 3.0.0", got)
	}
}

func TestRunNothingPending(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: `{"version": "3.0.0"}`})
	catalog, reg := twoStep()
	res, err := newManager(root, catalog, reg).Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Applied) != 0 {
		t.Errorf("applied %d migrations, want none", len(res.Applied))
	}
	if _, err := os.Stat(filepath.Join(root, "notes.md")); !os.IsNotExist(err) {
		t.Error("no file should be written")
	}
}

func TestRunWithoutRecordedVersion(t *testing.T) {
	root := newProject(t, nil)
	catalog, reg := twoStep()

	res, err := newManager(root, catalog, reg).Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrNoRecordedVersion) {
		t.Fatalf("err = %v, want ErrNoRecordedVersion", err)
	}
	if res.State() != StateFailed {
		t.Errorf("State = %s, want failed", res.State())
	}

	if _, err := newManager(root, catalog, reg).Run(context.Background(), RunOptions{From: "2.0.0"}); err != nil {
		t.Fatal(err)
	}
	if got := readProjectFile(t, root, "notes.md"); got != "b\n" {
		t.Errorf("notes.md = %q, only append-b should run", got)
	}
	if got := recordedVersion(t, root); got != "3.0.0" {
		t.Errorf("recorded version = %q, want 3.0.0", got)
	}
}

func TestRunUnknownEntryPoint(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: settingsAt100})
	catalog := []migrations.Meta{{Name: "ghost", Version: "2.0.0", EntryPoint: "missing"}}
	_, err := newManager(root, catalog, migrations.NewRegistry()).Run(context.Background(), RunOptions{})
	if err == nil || !strings.Contains(err.Error(), "unknown migration entry point 'missing'") {
		t.Errorf("err = %v", err)
	}
}

type recordingCommitter struct {
	messages []string
	err      error
}

func (c *recordingCommitter) Commit(_ context.Context, _, message string) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, message)
	return nil
}

func TestRunCommitsEachMigration(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: settingsAt100})
	catalog, reg := twoStep()
	catalog = append(catalog, migrations.Meta{Name: "no-op", Version: "3.1.0", Description: "changes nothing", EntryPoint: "no-op"})
	reg.Register("no-op", appendLine("notes.md", "a\n"))

	committer := &recordingCommitter{}
	m := newManager(root, catalog, reg)
	m.Committer = committer
	res, err := m.Run(context.Background(), RunOptions{CommitEachMigration: true})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"chore: run create-plugin migration - add-a",
		"chore: run create-plugin migration - append-b",
	}
	if diff := cmp.Diff(want, committer.messages); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}
	if !res.Applied[0].Committed || res.Applied[2].Committed {
		t.Errorf("Committed flags = %v %v %v", res.Applied[0].Committed, res.Applied[1].Committed, res.Applied[2].Committed)
	}
}

func TestRunDoesNotCommitByDefault(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: settingsAt100})
	catalog, reg := twoStep()
	committer := &recordingCommitter{}
	m := newManager(root, catalog, reg)
	m.Committer = committer
	if _, err := m.Run(context.Background(), RunOptions{}); err != nil {
		t.Fatal(err)
	}
	if len(committer.messages) != 0 {
		t.Errorf("unexpected commits: %v", committer.messages)
	}
}

func TestRunCommitFailureStopsRun(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: settingsAt100})
	catalog, reg := twoStep()
	m := newManager(root, catalog, reg)
	m.Committer = &recordingCommitter{err: errors.New("nothing to commit")}
	_, err := m.Run(context.Background(), RunOptions{CommitEachMigration: true})
	var merr *MigrationError
	if !errors.As(err, &merr) || merr.Migration != "add-a" {
		t.Fatalf("err = %v, want MigrationError for add-a", err)
	}
	if got := recordedVersion(t, root); got != "1.0.0" {
		t.Errorf("recorded version = %q, want 1.0.0", got)
	}
}

type countingInstaller struct {
	calls int
}

func (i *countingInstaller) Install(context.Context, string) error {
	i.calls++
	return nil
}

func TestRunInstallsOncePerManifestContent(t *testing.T) {
	root := newProject(t, map[string]string{
		settings.DefaultPath: settingsAt100,
		"package.json":       `{"name": "plugin"}`,
	})
	catalog := []migrations.Meta{
		{Name: "x", Version: "2.0.0", EntryPoint: "x"},
		{Name: "y", Version: "3.0.0", EntryPoint: "y"},
		{Name: "x-again", Version: "4.0.0", EntryPoint: "x"},
		{Name: "notes", Version: "5.0.0", EntryPoint: "notes"},
	}
	reg := migrations.NewRegistry()
	reg.Register("x", writeFile("package.json", `{"name": "plugin", "x": true}`))
	reg.Register("y", writeFile("package.json", `{"name": "plugin", "y": true}`))
	reg.Register("notes", writeFile("notes.md", "n\n"))

	installer := &countingInstaller{}
	m := newManager(root, catalog, reg)
	m.Installer = installer
	res, err := m.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if installer.calls != 2 {
		t.Errorf("installer ran %d times, want 2", installer.calls)
	}
	var installed []bool
	for _, a := range res.Applied {
		installed = append(installed, a.Installed)
	}
	if diff := cmp.Diff([]bool{true, true, false, false}, installed); diff != "" {
		t.Errorf("Installed flags mismatch (-want +got):\n%s", diff)
	}
}

type upperFormatter struct {
	mu    sync.Mutex
	paths []string
}

func (f *upperFormatter) Format(_ context.Context, relPath string, content []byte) ([]byte, error) {
	f.mu.Lock()
	f.paths = append(f.paths, relPath)
	f.mu.Unlock()
	if strings.HasSuffix(relPath, ".json") {
		return nil, errors.New("syntax error")
	}
	return bytes.ToUpper(content), nil
}

func TestRunFormatsTouchedFiles(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: settingsAt100})
	catalog := []migrations.Meta{{Name: "many", Version: "2.0.0", EntryPoint: "many"}}
	reg := migrations.NewRegistry()
	reg.Register("many", func(_ context.Context, snap *snapshot.Snapshot, _ *slog.Logger) (*snapshot.Snapshot, error) {
		for path, content := range map[string]string{
			"one.md":    "one\n",
			"two.ts":    "two\n",
			"data.json": "{}\n",
			"skip.txt":  "skip\n",
		} {
			if err := snap.UpdateFile(path, []byte(content)); err != nil {
				return nil, err
			}
		}
		return snap, nil
	})

	formatter := &upperFormatter{}
	m := newManager(root, catalog, reg)
	m.Formatter = formatter
	m.FormatConcurrency = 2
	if _, err := m.Run(context.Background(), RunOptions{}); err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"one.md":    "ONE\n",
		"two.ts":    "TWO\n",
		"data.json": "{}\n",
		"skip.txt":  "skip\n",
	}
	for path, content := range want {
		if got := readProjectFile(t, root, path); got != content {
			t.Errorf("%s = %q, want %q", path, got, content)
		}
	}
	if len(formatter.paths) != 3 {
		t.Errorf("formatter saw %v, want the three supported files", formatter.paths)
	}
}

func TestStatus(t *testing.T) {
	root := newProject(t, map[string]string{settings.DefaultPath: `{"version": "2.0.0"}`})
	catalog, reg := twoStep()
	st, err := newManager(root, catalog, reg).Status()
	if err != nil {
		t.Fatal(err)
	}
	if st.Recorded != "2.0.0" || st.Latest != "3.0.0" {
		t.Errorf("Status = %s latest %s", st.Recorded, st.Latest)
	}
	if diff := cmp.Diff([]string{"append-b"}, names(st.Pending)); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}
