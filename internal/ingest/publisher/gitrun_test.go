package publisher

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitOut(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}

func TestPushAll_WithoutAmbientIdentity(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	// No host-level git config: the commit identity must come from the
	// runner itself.
	t.Setenv("GIT_CONFIG_GLOBAL", filepath.Join(t.TempDir(), "empty-gitconfig"))
	t.Setenv("GIT_CONFIG_SYSTEM", os.DevNull)

	remote := t.TempDir()
	gitOut(t, remote, "init", "--bare")

	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, "README.md"), []byte("# hi"), 0o644))

	err := Runner{}.PushAll(context.Background(), work, remote, "main", "Initial upload abc123")
	require.NoError(t, err)

	assert.Equal(t, "Initial upload abc123", gitOut(t, remote, "log", "-1", "--format=%s", "main"))
	assert.Equal(t, committerName, gitOut(t, remote, "log", "-1", "--format=%an", "main"))
	assert.Equal(t, committerEmail, gitOut(t, remote, "log", "-1", "--format=%ae", "main"))
	assert.Equal(t, "README.md", gitOut(t, remote, "ls-tree", "--name-only", "main"))
}

func TestSubcommand(t *testing.T) {
	assert.Equal(t, "commit", subcommand([]string{"-c", "user.name=x", "-c", "user.email=y", "commit", "-m", "msg"}))
	assert.Equal(t, "push", subcommand([]string{"push", "--force", "origin", "main"}))
	assert.Equal(t, "git", subcommand([]string{"-c", "user.name=x"}))
}
