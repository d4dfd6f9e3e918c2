package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var askModelID string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and exit",
	Long: `Ask runs one question through the agent and prints the answer. The
question may span multiple arguments, so quoting is optional:

  repoagent ask what branches does golang/go have`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askModelID, "model", "", `model identifier as "provider:model" (default from config)`)
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	question := strings.Join(args, " ")
	result, err := a.TurnWithModel(ctx, askModelID, question)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
	if result.Failed {
		return fmt.Errorf("request failed")
	}
	return nil
}
