package publisher

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
)

// maxForkNameLen bounds fork names to satisfy provider constraints.
const maxForkNameLen = 90

// GitPusher pushes a working tree to a remote. Satisfied by Runner; tests
// substitute a recorder.
type GitPusher interface {
	PushAll(ctx context.Context, dir, remoteURL, branch, message string) error
}

// Publisher materializes local directories as repositories under the managed
// namespace.
type Publisher struct {
	gh     *github.Client
	git    GitPusher
	token  string
	org    string
	branch string
}

func New(gh *github.Client, git GitPusher, token, org, branch string) *Publisher {
	return &Publisher{gh: gh, git: git, token: token, org: org, branch: branch}
}

// Publish ensures org/repoName exists, commits the full contents of dir as a
// single commit and force-updates the default branch. Returns the canonical
// namespace/name identifier.
func (p *Publisher) Publish(ctx context.Context, dir, repoName string) (string, error) {
	if err := p.ensureRepo(ctx, repoName); err != nil {
		return "", err
	}

	remoteURL := fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", p.token, p.org, repoName)
	// Random suffix keeps repeated publishes of identical content from
	// colliding on duplicate commit messages.
	message := "Initial upload " + RandomSuffix(4)
	if err := p.git.PushAll(ctx, dir, remoteURL, p.branch, message); err != nil {
		return "", fmt.Errorf("%w: push %s: %v", domain.ErrRemoteRepo, repoName, err)
	}

	return p.org + "/" + repoName, nil
}

// ensureRepo treats "already exists" as success: a repeated publish against
// the same name must not fail on creation.
func (p *Publisher) ensureRepo(ctx context.Context, repoName string) error {
	_, _, err := p.gh.Repositories.Get(ctx, p.org, repoName)
	if err == nil {
		return nil
	}
	if !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%w: get %s: %v", domain.ErrRemoteRepo, repoName, err)
	}

	_, _, err = p.gh.Repositories.Create(ctx, p.org, &github.Repository{
		Name:     github.String(repoName),
		Private:  github.Bool(false),
		AutoInit: github.Bool(false),
	})
	if err != nil && !isStatus(err, http.StatusUnprocessableEntity) {
		return fmt.Errorf("%w: create %s: %v", domain.ErrRemoteRepo, repoName, err)
	}
	return nil
}

// Fork creates a fork of fullName under the managed namespace and renames it
// to newName when the provider-assigned name differs. newName is truncated to
// the provider limit; the returned identifier uses the truncated form.
func (p *Publisher) Fork(ctx context.Context, fullName, newName string) (string, error) {
	owner, repo, ok := SplitFullName(fullName)
	if !ok {
		return "", fmt.Errorf("%w: malformed repository identifier %q", domain.ErrFork, fullName)
	}
	if len(newName) > maxForkNameLen {
		newName = newName[:maxForkNameLen]
	}

	fork, _, err := p.gh.Repositories.CreateFork(ctx, owner, repo, &github.RepositoryCreateForkOptions{
		Organization: p.org,
	})
	// Forking is asynchronous; a 202 means the fork was accepted and will be
	// created under the source repository's name.
	var accepted *github.AcceptedError
	if err != nil && !errors.As(err, &accepted) {
		return "", fmt.Errorf("%w: %v", domain.ErrFork, err)
	}

	assigned := repo
	if fork != nil && fork.GetName() != "" {
		assigned = fork.GetName()
	}

	if newName != "" && assigned != newName {
		_, _, err := p.gh.Repositories.Edit(ctx, p.org, assigned, &github.Repository{
			Name: github.String(newName),
		})
		if err != nil {
			return "", fmt.Errorf("%w: rename %s to %s: %v", domain.ErrFork, assigned, newName, err)
		}
		assigned = newName
	}

	return p.org + "/" + assigned, nil
}

// SplitFullName splits a canonical namespace/name identifier.
func SplitFullName(fullName string) (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(fullName, "/")
	return owner, repo, ok && owner != "" && repo != ""
}

// RandomSuffix returns n random bytes hex encoded.
func RandomSuffix(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func isStatus(err error, status int) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode == status
	}
	return false
}
