package github

import (
	"context"
	"strconv"

	"repoagent/internal/prompts"
)

// Defaults applied when a caller passes a zero limit or an empty ref.
const (
	DefaultPullRequestLimit = 5
	DefaultCommitLimit      = 10
	DefaultSearchLimit      = 10
	DefaultRef              = "main"
)

// Asker runs one conversation turn and returns the answer text.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Service phrases typed GitHub questions through the prompt templates
// and hands them to the agent. Which tools answer each question is the
// model's call, not ours.
type Service struct {
	asker Asker
	store *prompts.Store
}

// New creates a GitHub question service
func New(asker Asker, store *prompts.Store) *Service {
	return &Service{asker: asker, store: store}
}

func (s *Service) ask(ctx context.Context, query string, vars map[string]string) (string, error) {
	question, err := s.store.Render(query, vars)
	if err != nil {
		return "", err
	}
	return s.asker.Ask(ctx, question)
}

// Branches asks which branches exist in owner/repo.
func (s *Service) Branches(ctx context.Context, owner, repo string) (string, error) {
	return s.ask(ctx, prompts.QueryBranches, map[string]string{
		"owner": owner,
		"repo":  repo,
	})
}

// RepositoryInfo asks for a repository overview.
func (s *Service) RepositoryInfo(ctx context.Context, owner, repo string) (string, error) {
	return s.ask(ctx, prompts.QueryRepositoryInfo, map[string]string{
		"owner": owner,
		"repo":  repo,
	})
}

// LatestPullRequests asks for the newest pull requests.
func (s *Service) LatestPullRequests(ctx context.Context, owner, repo string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultPullRequestLimit
	}
	return s.ask(ctx, prompts.QueryPullRequests, map[string]string{
		"owner": owner,
		"repo":  repo,
		"limit": strconv.Itoa(limit),
	})
}

// SummarizePullRequest asks for a summary of one pull request.
func (s *Service) SummarizePullRequest(ctx context.Context, owner, repo string, number int) (string, error) {
	return s.ask(ctx, prompts.QueryPullRequestSummary, map[string]string{
		"owner":     owner,
		"repo":      repo,
		"pr_number": strconv.Itoa(number),
	})
}

// RecentCommits asks for the newest commits.
func (s *Service) RecentCommits(ctx context.Context, owner, repo string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultCommitLimit
	}
	return s.ask(ctx, prompts.QueryCommits, map[string]string{
		"owner": owner,
		"repo":  repo,
		"limit": strconv.Itoa(limit),
	})
}

// FileContent asks for a file's content at a ref.
func (s *Service) FileContent(ctx context.Context, owner, repo, filePath, ref string) (string, error) {
	if ref == "" {
		ref = DefaultRef
	}
	return s.ask(ctx, prompts.QueryFileContent, map[string]string{
		"owner":     owner,
		"repo":      repo,
		"file_path": filePath,
		"ref":       ref,
	})
}

// SearchRepositories asks for repositories matching a query.
func (s *Service) SearchRepositories(ctx context.Context, query string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.ask(ctx, prompts.QuerySearchRepos, map[string]string{
		"query": query,
		"limit": strconv.Itoa(limit),
	})
}
