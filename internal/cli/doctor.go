package cli

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"repoagent/internal/app"
	"repoagent/internal/config"
	"repoagent/internal/prompts"
	"repoagent/pkg/model"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on your RepoAgent installation",
	Long: `Doctor verifies that RepoAgent's configuration, model provider, tool
server and prompt templates are correctly set up. Reports pass/fail for
each check without starting the agent.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	return doctorRun(cmd.OutOrStdout())
}

// doctorReport tracks check outcomes and renders them as they happen.
type doctorReport struct {
	out    io.Writer
	passed int
	warned int
	failed int
}

var (
	passTag = color.New(color.FgGreen).SprintFunc()
	warnTag = color.New(color.FgYellow).SprintFunc()
	failTag = color.New(color.FgRed).SprintFunc()
)

func (r *doctorReport) pass(check, detail string) {
	fmt.Fprintf(r.out, "  [%s] %-20s %s\n", passTag("PASS"), check, detail)
	r.passed++
}

func (r *doctorReport) warn(check, detail string) {
	fmt.Fprintf(r.out, "  [%s] %-20s %s\n", warnTag("WARN"), check, detail)
	r.warned++
}

func (r *doctorReport) fail(check, detail string) {
	fmt.Fprintf(r.out, "  [%s] %-20s %s\n", failTag("FAIL"), check, detail)
	r.failed++
}

func doctorRun(out io.Writer) error {
	r := &doctorReport{out: out}

	fmt.Fprintf(out, "RepoAgent Doctor v%s\n", version)
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	// 1. Config file exists
	cfgPath := config.NewLoader(cfgFile).GetConfigPath()
	if _, err := os.Stat(cfgPath); err != nil {
		r.warn("Config file", fmt.Sprintf("not found at %s (defaults and environment apply)", cfgPath))
	} else {
		r.pass("Config file", cfgPath)
	}

	// 2. Config loads
	cfg, err := config.Load(cfgFile)
	if err != nil {
		r.fail("Config", err.Error())
		return r.summary("Fix the config file or regenerate it with 'repoagent init --force'.")
	}
	r.pass("Config", "loaded")

	// 3. Config issues
	if issues := config.NewValidator().ValidateConfig(cfg); len(issues) > 0 {
		for _, issue := range issues {
			r.warn("Config setting", issue.Error())
		}
	} else {
		r.pass("Config settings", "valid")
	}

	// 4. Model identifier and provider credentials
	r.checkModel(cfg)

	// 5. Tool server binary resolvable
	r.checkToolServer(cfg)

	// 6. GitHub token
	if cfg.GitHub.Token == "" {
		r.warn("GitHub token", "not set (anonymous API rate limits apply)")
	} else {
		r.pass("GitHub token", "configured")
	}

	// 7. Prompt templates parse
	r.checkPrompts(cfg)

	// 8. Data directory writable
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		r.fail("Data directory", err.Error())
	} else {
		r.pass("Data directory", cfg.DataDir)
	}

	// 9. Metrics listener
	if cfg.Metrics.Enabled {
		if err := checkAddr(cfg.Metrics.Addr); err != nil {
			r.warn("Metrics address", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Addr, err))
		} else {
			r.pass("Metrics address", cfg.Metrics.Addr+" available")
		}
	}

	// 10. Trace links
	if cfg.Langfuse.PublicKey != "" && cfg.Langfuse.SecretKey != "" {
		r.pass("Trace links", cfg.Langfuse.Host)
	} else {
		r.warn("Trace links", "Langfuse keys not set (trace URLs disabled)")
	}

	return r.summary("")
}

func (r *doctorReport) checkModel(cfg *config.Config) {
	provider, name, err := model.ParseModelID(cfg.Model.Default)
	if err != nil {
		r.fail("Model", err.Error())
		return
	}
	r.pass("Model", fmt.Sprintf("%s (%s)", name, provider))

	switch err := model.NewRegistry(cfg).Validate(provider); {
	case err == nil:
		r.pass("Provider: "+provider, "credentials configured")
	case isConfigurationError(err):
		r.warn("Provider: "+provider, err.Error())
	default:
		r.fail("Provider: "+provider, err.Error())
	}
}

func (r *doctorReport) checkToolServer(cfg *config.Config) {
	binary := app.ToolServerConfig(cfg).Command
	if strings.ContainsRune(binary, os.PathSeparator) {
		if _, err := os.Stat(binary); err != nil {
			r.fail("Tool server", fmt.Sprintf("not found: %s", binary))
			return
		}
		r.pass("Tool server", binary)
		return
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		r.fail("Tool server", fmt.Sprintf("%q not found in PATH", binary))
		return
	}
	r.pass("Tool server", path)
}

func (r *doctorReport) checkPrompts(cfg *config.Config) {
	path := cfg.Prompts.Path
	if _, err := os.Stat(path); err != nil {
		r.warn("Prompts", fmt.Sprintf("not found at %s (built-in defaults apply)", path))
		return
	}
	if err := prompts.NewStore(path).Load(); err != nil {
		r.fail("Prompts", err.Error())
		return
	}
	r.pass("Prompts", path)
}

func (r *doctorReport) summary(hint string) error {
	fmt.Fprintf(r.out, "\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(r.out, "Results: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
	if hint != "" {
		fmt.Fprintf(r.out, "\n%s\n", hint)
	}
	if r.failed > 0 {
		fmt.Fprintf(r.out, "\nPlease fix the failed checks before running RepoAgent.\n")
		return fmt.Errorf("%d check(s) failed", r.failed)
	}
	if r.warned > 0 {
		fmt.Fprintf(r.out, "\nRepoAgent should work but consider fixing the warnings.\n")
	} else {
		fmt.Fprintf(r.out, "\nAll checks passed! RepoAgent is ready to run.\n")
	}
	return nil
}

func isConfigurationError(err error) bool {
	var confErr *model.ConfigurationError
	return errors.As(err, &confErr)
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}
