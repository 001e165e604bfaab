package diff

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gitCall struct {
	dir  string
	args []string
}

func fakeGit(outputs map[string]string, calls *[]gitCall) runFunc {
	return func(ctx context.Context, dir string, args ...string) ([]byte, error) {
		*calls = append(*calls, gitCall{dir: dir, args: args})
		out, ok := outputs[args[0]]
		if !ok {
			return nil, errors.New("unexpected git command " + args[0])
		}
		return []byte(out), nil
	}
}

func TestGitRendererResolvesCommitByMessage(t *testing.T) {
	t.Parallel()

	var calls []gitCall
	g := NewGitRenderer("/repo")
	g.run = fakeGit(map[string]string{
		"log":  "abc1234def\nfff0000aaa\n",
		"show": "commit abc1234def\n+added\n",
	}, &calls)

	out, err := g.RenderDiff(context.Background(), "auto_coder_3_chat_action.yml_9f1c")
	require.NoError(t, err)
	assert.Equal(t, "commit abc1234def\n+added\n", out)

	require.Len(t, calls, 2)
	assert.Equal(t, "/repo", calls[0].dir)
	assert.Contains(t, calls[0].args, "--grep=auto_coder_3_chat_action.yml_9f1c")
	assert.Equal(t, "abc1234def", calls[1].args[len(calls[1].args)-1])
}

func TestGitRendererShowsHashDirectly(t *testing.T) {
	t.Parallel()

	var calls []gitCall
	g := NewGitRenderer("")
	g.run = fakeGit(map[string]string{"show": "diff --git a/x b/x\n"}, &calls)

	_, err := g.RenderDiff(context.Background(), "  0123abcd  ")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, ".", calls[0].dir)
	assert.Equal(t, "show", calls[0].args[0])
	assert.Equal(t, "0123abcd", calls[0].args[len(calls[0].args)-1])
}

func TestGitRendererReportsMissingCommit(t *testing.T) {
	t.Parallel()

	var calls []gitCall
	g := NewGitRenderer("/repo")
	g.run = fakeGit(map[string]string{"log": "\n"}, &calls)

	_, err := g.RenderDiff(context.Background(), "no such token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommitNotFound))
	assert.True(t, strings.Contains(err.Error(), "no such token"))
}

func TestGitRendererEmptyResponse(t *testing.T) {
	t.Parallel()

	var calls []gitCall
	g := NewGitRenderer("/repo")
	g.run = fakeGit(nil, &calls)

	out, err := g.RenderDiff(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, calls)
}

func TestGitRendererNilReceiver(t *testing.T) {
	t.Parallel()

	var g *GitRenderer
	_, err := g.RenderDiff(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrRendererNotReady)
}
