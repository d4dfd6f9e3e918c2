package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"repoagent/internal/config"
	"repoagent/internal/prompts"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration and prompt file",
	Long: `Init writes a default config file and the editable prompt templates.
Existing files are left alone unless --force is given. Credentials are
read from the environment, so the generated config works as-is once the
provider API keys are exported.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	loader := config.NewLoader(cfgFile)
	path := loader.GetConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	// Load resolves defaults, the environment and any existing file, so
	// the saved config reflects the effective settings.
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to build configuration: %w", err)
	}
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	fmt.Fprintf(out, "Configuration saved to: %s\n", path)

	if err := prompts.NewStore(cfg.Prompts.Path).EnsureFile(); err != nil {
		return fmt.Errorf("failed to write prompt templates: %w", err)
	}
	fmt.Fprintf(out, "Prompt templates at: %s\n", cfg.Prompts.Path)

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Export provider credentials (AZURE_OPENAI_API_KEY, ANTHROPIC_API_KEY or OLLAMA_ENDPOINT)")
	fmt.Fprintln(out, "  2. Export GITHUB_PERSONAL_ACCESS_TOKEN for private repositories")
	fmt.Fprintln(out, "  3. Run 'repoagent doctor' to verify the setup")
	return nil
}
