// Package runner wraps the external commands a migration run relies on:
// a code formatter, the package manager's install step and git.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
)

// PathPlaceholder in formatter arguments is replaced with the file path.
const PathPlaceholder = "{path}"

// Formatter formats one file's content.
type Formatter interface {
	Format(ctx context.Context, relPath string, content []byte) ([]byte, error)
}

// Installer installs the project's dependencies.
type Installer interface {
	Install(ctx context.Context, root string) error
}

// Committer records the working tree in version control.
type Committer interface {
	Commit(ctx context.Context, root, message string) error
}

// CommandFormatter pipes content through a command's stdin and reads the
// formatted result from stdout.
type CommandFormatter struct {
	Dir     string
	Command string
	Args    []string
}

// Prettier returns the formatter scaffolded projects use.
func Prettier(dir string) *CommandFormatter {
	return &CommandFormatter{
		Dir:     dir,
		Command: "npx",
		Args:    []string{"--no-install", "prettier", "--stdin-filepath", PathPlaceholder},
	}
}

var formattable = map[string]bool{
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".ts": true, ".tsx": true, ".mts": true, ".cts": true,
	".json": true, ".yaml": true, ".yml": true,
	".md": true, ".css": true, ".scss": true,
}

// Supports reports whether the formatter should be run on relPath.
func Supports(relPath string) bool {
	return formattable[strings.ToLower(path.Ext(relPath))]
}

func (f *CommandFormatter) Format(ctx context.Context, relPath string, content []byte) ([]byte, error) {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = strings.ReplaceAll(a, PathPlaceholder, relPath)
	}
	cmd := exec.CommandContext(ctx, f.Command, args...)
	cmd.Dir = f.Dir
	cmd.Stdin = bytes.NewReader(content)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("formatting %s: %s: %w", relPath, strings.TrimSpace(stderr.String()), err)
	}
	return stdout.Bytes(), nil
}

// CommandInstaller runs an install command in the project root.
type CommandInstaller struct {
	Command string
	Args    []string
}

// DetectInstaller picks the package manager from the lockfile found in
// root, falling back to npm.
func DetectInstaller(root string) *CommandInstaller {
	lockfiles := []struct {
		name    string
		command string
	}{
		{"pnpm-lock.yaml", "pnpm"},
		{"yarn.lock", "yarn"},
		{"package-lock.json", "npm"},
	}
	for _, l := range lockfiles {
		if _, err := os.Stat(filepath.Join(root, l.name)); err == nil {
			return &CommandInstaller{Command: l.command, Args: []string{"install"}}
		}
	}
	return &CommandInstaller{Command: "npm", Args: []string{"install"}}
}

func (i *CommandInstaller) Install(ctx context.Context, root string) error {
	cmd := exec.CommandContext(ctx, i.Command, i.Args...)
	cmd.Dir = root
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s %s failed: %s: %w", i.Command, strings.Join(i.Args, " "), strings.TrimSpace(string(output)), err)
	}
	return nil
}

// GitCommitter stages every change and commits it. The repository's
// commit hooks run as they would for a manual commit.
type GitCommitter struct{}

func (GitCommitter) Commit(ctx context.Context, root, message string) error {
	if output, err := git(ctx, root, "add", "-A"); err != nil {
		return fmt.Errorf("git add failed: %s: %w", output, err)
	}
	if output, err := git(ctx, root, "commit", "-m", message); err != nil {
		return fmt.Errorf("git commit failed: %s: %w", output, err)
	}
	return nil
}

// IsRepo reports whether root is inside a git work tree.
func IsRepo(ctx context.Context, root string) bool {
	output, err := git(ctx, root, "rev-parse", "--is-inside-work-tree")
	return err == nil && output == "true"
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	output, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(output)), err
}
