package diff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

var (
	ErrCommitNotFound = errors.New("no commit matches the action response")

	commitHashRegex = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)
)

type runFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

type GitRenderer struct {
	RepoDir string
	run     runFunc
}

func NewGitRenderer(repoDir string) *GitRenderer {
	if strings.TrimSpace(repoDir) == "" {
		repoDir = "."
	}
	return &GitRenderer{RepoDir: repoDir, run: runGit}
}

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("git %s: %w", args[0], err)
		}
		return nil, fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return out, nil
}

func (g *GitRenderer) RenderDiff(ctx context.Context, response string) (string, error) {
	if g == nil {
		return "", ErrRendererNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", nil
	}
	run := g.run
	if run == nil {
		run = runGit
	}

	commit, err := g.resolveCommit(ctx, run, response)
	if err != nil {
		return "", err
	}
	out, err := run(ctx, g.RepoDir, "show", "--no-color", "--format=commit %H%nAuthor: %an <%ae>%nDate:   %ad%n%n    %s%n", commit)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (g *GitRenderer) resolveCommit(ctx context.Context, run runFunc, response string) (string, error) {
	if commitHashRegex.MatchString(response) {
		return response, nil
	}
	out, err := run(ctx, g.RepoDir, "log", "--all", "--format=%H", "--fixed-strings", "--grep="+response)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if hash := strings.TrimSpace(line); hash != "" {
			return hash, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrCommitNotFound, response)
}
