package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools exposed by the GitHub tool server",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	defs := a.Tools()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d tools discovered:\n", len(defs))
	for _, def := range defs {
		fmt.Fprintf(out, "  %-32s %s\n", def.Name, def.Description)
	}
	return nil
}
