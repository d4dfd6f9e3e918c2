package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"repoagent/pkg/github"
)

var (
	queryLimit int
	queryRef   string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a predefined repository question",
	Long: `Query wraps common GitHub questions in fixed subcommands. Each
subcommand renders a prompt template and runs it through the agent, so
the output is the model's answer grounded in live tool results.`,
}

var queryBranchesCmd = &cobra.Command{
	Use:   "branches <owner/repo>",
	Short: "List the repository's branches",
	Args:  cobra.ExactArgs(1),
	RunE:  makeRepoQuery(func(ctx context.Context, s *github.Service, owner, repo string) (string, error) {
		return s.Branches(ctx, owner, repo)
	}),
}

var queryInfoCmd = &cobra.Command{
	Use:   "info <owner/repo>",
	Short: "Summarize the repository",
	Args:  cobra.ExactArgs(1),
	RunE:  makeRepoQuery(func(ctx context.Context, s *github.Service, owner, repo string) (string, error) {
		return s.RepositoryInfo(ctx, owner, repo)
	}),
}

var queryPRsCmd = &cobra.Command{
	Use:   "prs <owner/repo>",
	Short: "Show the latest pull requests",
	Args:  cobra.ExactArgs(1),
	RunE:  makeRepoQuery(func(ctx context.Context, s *github.Service, owner, repo string) (string, error) {
		return s.LatestPullRequests(ctx, owner, repo, queryLimit)
	}),
}

var queryPRCmd = &cobra.Command{
	Use:   "pr <owner/repo> <number>",
	Short: "Summarize one pull request",
	Args:  cobra.ExactArgs(2),
	RunE:  runQueryPR,
}

var queryCommitsCmd = &cobra.Command{
	Use:   "commits <owner/repo>",
	Short: "Show recent commits",
	Args:  cobra.ExactArgs(1),
	RunE:  makeRepoQuery(func(ctx context.Context, s *github.Service, owner, repo string) (string, error) {
		return s.RecentCommits(ctx, owner, repo, queryLimit)
	}),
}

var queryFileCmd = &cobra.Command{
	Use:   "file <owner/repo> <path>",
	Short: "Show a file's content",
	Args:  cobra.ExactArgs(2),
	RunE:  runQueryFile,
}

var querySearchCmd = &cobra.Command{
	Use:   "search <terms...>",
	Short: "Search repositories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuerySearch,
}

func init() {
	queryPRsCmd.Flags().IntVar(&queryLimit, "limit", 0, "number of pull requests to show")
	queryCommitsCmd.Flags().IntVar(&queryLimit, "limit", 0, "number of commits to show")
	querySearchCmd.Flags().IntVar(&queryLimit, "limit", 0, "number of results to show")
	queryFileCmd.Flags().StringVar(&queryRef, "ref", "", "branch, tag or commit to read from")

	queryCmd.AddCommand(queryBranchesCmd)
	queryCmd.AddCommand(queryInfoCmd)
	queryCmd.AddCommand(queryPRsCmd)
	queryCmd.AddCommand(queryPRCmd)
	queryCmd.AddCommand(queryCommitsCmd)
	queryCmd.AddCommand(queryFileCmd)
	queryCmd.AddCommand(querySearchCmd)
	rootCmd.AddCommand(queryCmd)
}

// makeRepoQuery builds a RunE that parses the owner/repo argument,
// starts the application and prints the answer to one service call.
func makeRepoQuery(ask func(ctx context.Context, s *github.Service, owner, repo string) (string, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		owner, repo, err := splitRepo(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		answer, err := ask(ctx, a.GitHub(), owner, repo)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	}
}

func runQueryPR(cmd *cobra.Command, args []string) error {
	owner, repo, err := splitRepo(args[0])
	if err != nil {
		return err
	}
	number, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid pull request number %q", args[1])
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.GitHub().SummarizePullRequest(ctx, owner, repo, number)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

func runQueryFile(cmd *cobra.Command, args []string) error {
	owner, repo, err := splitRepo(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.GitHub().FileContent(ctx, owner, repo, args[1], queryRef)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

func runQuerySearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.GitHub().SearchRepositories(ctx, strings.Join(args, " "), queryLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

// splitRepo parses an "owner/repo" argument.
func splitRepo(arg string) (owner, repo string, err error) {
	parts := strings.SplitN(arg, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected owner/repo, got %q", arg)
	}
	return parts[0], parts[1], nil
}
