package github

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoagent/internal/prompts"
)

type recordingAsker struct {
	questions []string
	answer    string
	err       error
}

func (a *recordingAsker) Ask(ctx context.Context, question string) (string, error) {
	a.questions = append(a.questions, question)
	if a.err != nil {
		return "", a.err
	}
	return a.answer, nil
}

func newTestService(t *testing.T) (*Service, *recordingAsker) {
	t.Helper()
	store := prompts.NewStore(filepath.Join(t.TempDir(), "prompts.yaml"))
	asker := &recordingAsker{answer: "the answer"}
	return New(asker, store), asker
}

func TestServiceQuestions(t *testing.T) {
	t.Run("should phrase the branches question", func(t *testing.T) {
		svc, asker := newTestService(t)

		answer, err := svc.Branches(context.Background(), "golang", "go")
		require.NoError(t, err)
		assert.Equal(t, "the answer", answer)
		require.Len(t, asker.questions, 1)
		assert.Equal(t, "What branches are available in the repository golang/go?", asker.questions[0])
	})

	t.Run("should phrase the repository info question", func(t *testing.T) {
		svc, asker := newTestService(t)

		_, err := svc.RepositoryInfo(context.Background(), "openai", "openai-python")
		require.NoError(t, err)
		assert.Contains(t, asker.questions[0], "repository openai/openai-python")
		assert.Contains(t, asker.questions[0], "version")
	})

	t.Run("should phrase the pull request summary question", func(t *testing.T) {
		svc, asker := newTestService(t)

		_, err := svc.SummarizePullRequest(context.Background(), "microsoft", "TypeScript", 1)
		require.NoError(t, err)
		assert.Contains(t, asker.questions[0], "pull request #1 in microsoft/TypeScript")
		assert.Contains(t, asker.questions[0], "files were changed")
	})
}

func TestServiceDefaults(t *testing.T) {
	t.Run("should default the pull request limit", func(t *testing.T) {
		svc, asker := newTestService(t)

		_, err := svc.LatestPullRequests(context.Background(), "golang", "go", 0)
		require.NoError(t, err)
		assert.Contains(t, asker.questions[0], "latest 5 pull requests")
	})

	t.Run("should default the commit limit", func(t *testing.T) {
		svc, asker := newTestService(t)

		_, err := svc.RecentCommits(context.Background(), "golang", "go", 0)
		require.NoError(t, err)
		assert.Contains(t, asker.questions[0], "latest 10 commits")
	})

	t.Run("should default the ref", func(t *testing.T) {
		svc, asker := newTestService(t)

		_, err := svc.FileContent(context.Background(), "golang", "go", "README.md", "")
		require.NoError(t, err)
		assert.Contains(t, asker.questions[0], "'README.md' from golang/go on the main branch")
	})

	t.Run("should default the search limit", func(t *testing.T) {
		svc, asker := newTestService(t)

		_, err := svc.SearchRepositories(context.Background(), "mcp server", 0)
		require.NoError(t, err)
		assert.Contains(t, asker.questions[0], "'mcp server'")
		assert.Contains(t, asker.questions[0], "top 10 results")
	})
}

func TestServiceExplicitValues(t *testing.T) {
	svc, asker := newTestService(t)

	_, err := svc.LatestPullRequests(context.Background(), "golang", "go", 3)
	require.NoError(t, err)
	assert.Contains(t, asker.questions[0], "latest 3 pull requests")

	_, err = svc.FileContent(context.Background(), "golang", "go", "go.mod", "release-branch.go1.23")
	require.NoError(t, err)
	assert.Contains(t, asker.questions[1], "on the release-branch.go1.23 branch")
}

func TestServiceAskerError(t *testing.T) {
	store := prompts.NewStore(filepath.Join(t.TempDir(), "prompts.yaml"))
	asker := &recordingAsker{err: assert.AnError}
	svc := New(asker, store)

	_, err := svc.Branches(context.Background(), "golang", "go")
	assert.ErrorIs(t, err, assert.AnError)
}
