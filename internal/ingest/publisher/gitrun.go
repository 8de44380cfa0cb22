package publisher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Commit identity used for published trees. Passed per invocation so commits
// do not depend on ambient git configuration on the host.
const (
	committerName  = "engiverse-bot"
	committerEmail = "bot@engiverse.local"
)

// Runner drives the git binary. It covers the two operations the pipeline
// needs: cloning a public source repository and pushing a working tree to the
// managed namespace.
type Runner struct{}

// Clone clones url into dir.
func (Runner) Clone(ctx context.Context, url, dir string) error {
	return run(ctx, "", "clone", "--depth", "1", url, dir)
}

// PushAll commits the full contents of dir as a single commit and
// force-updates branch on the remote.
func (Runner) PushAll(ctx context.Context, dir, remoteURL, branch, message string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		if err := run(ctx, dir, "init"); err != nil {
			return err
		}
	}
	if err := run(ctx, dir, "add", "."); err != nil {
		return err
	}
	commitArgs := []string{
		"-c", "user.name=" + committerName,
		"-c", "user.email=" + committerEmail,
		"commit", "-m", message,
	}
	if err := run(ctx, dir, commitArgs...); err != nil {
		return err
	}
	if err := run(ctx, dir, "branch", "-M", branch); err != nil {
		return err
	}
	// remote may already exist when the source was a cloned repository
	_ = run(ctx, dir, "remote", "add", "origin", remoteURL)
	if err := run(ctx, dir, "remote", "set-url", "origin", remoteURL); err != nil {
		return err
	}
	return run(ctx, dir, "push", "--force", "origin", branch)
}

func run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %s: %w", subcommand(args), strings.TrimSpace(string(out)), err)
	}
	return nil
}

// subcommand returns the git subcommand for error labels, skipping any
// leading -c key=value config pairs. The full argument list never goes into
// errors because push URLs embed the access token.
func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}
		return args[i]
	}
	return "git"
}
