package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"repoagent/internal/config"
	"repoagent/internal/observability"
	"repoagent/pkg/agent"
	"repoagent/pkg/catalog"
)

var (
	chatModelID     string
	chatMetricsAddr string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Chat starts a terminal session against the configured model. The model
can call GitHub tools to answer questions about repositories, branches,
pull requests, commits and files.

Slash commands control the session: /model switches models, /reset
clears the conversation, /tools lists the discovered tools and /quit
exits.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatModelID, "model", "", `model identifier as "provider:model" (default from config)`)
	chatCmd.Flags().StringVar(&chatMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (overrides config)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if chatModelID != "" {
		if err := a.SetModelID(chatModelID); err != nil {
			return err
		}
	}

	startMetricsServer(a.Config())

	return chatLoop(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
}

// startMetricsServer exposes /metrics when an address is configured,
// either through the --metrics-addr flag or the config file.
func startMetricsServer(cfg *config.Config) {
	addr := chatMetricsAddr
	if addr == "" && cfg.Metrics.Enabled {
		addr = cfg.Metrics.Addr
	}
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
		}
	}()
}

// chatSession is the surface the REPL needs from the application.
type chatSession interface {
	Turn(ctx context.Context, question string) (agent.TurnResult, error)
	ResetSession()
	SetModelID(modelID string) error
	ModelID() string
	SessionID() string
	Tools() []catalog.Definition
	ExampleQueries() []string
}

// chatLoop runs the interactive REPL and blocks until the user quits,
// the input ends or the context is cancelled.
func chatLoop(ctx context.Context, session chatSession, in io.Reader, out io.Writer) error {
	prompt := color.New(color.FgCyan, color.Bold)
	reply := color.New(color.FgGreen)
	failure := color.New(color.FgRed)
	faint := color.New(color.Faint)

	fmt.Fprintf(out, "RepoAgent %s. Model %s, session %s.\n", version, session.ModelID(), session.SessionID())
	fmt.Fprintln(out, "Ask about GitHub repositories. Type /help for commands, /quit to exit.")

	think := &spinner{out: out}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	_, _ = prompt.Fprint(out, "You> ")
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			_, _ = prompt.Fprint(out, "You> ")
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runChatCommand(session, out, line); quit {
				return nil
			}
			_, _ = prompt.Fprint(out, "You> ")
			continue
		}

		think.Start()
		result, err := session.Turn(ctx, line)
		think.Stop()
		if err != nil {
			return err
		}

		if result.Failed {
			_, _ = failure.Fprintln(out, result.Answer)
		} else {
			_, _ = reply.Fprintln(out, result.Answer)
		}
		if result.TraceURL != "" {
			_, _ = faint.Fprintf(out, "trace: %s\n", result.TraceURL)
		}
		_, _ = prompt.Fprint(out, "You> ")
	}
}

// runChatCommand handles a slash command and reports whether the
// session should end.
func runChatCommand(session chatSession, out io.Writer, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit", "/q":
		return true
	case "/reset":
		session.ResetSession()
		fmt.Fprintf(out, "Session reset. New session: %s\n", session.SessionID())
	case "/model":
		if len(fields) < 2 {
			fmt.Fprintf(out, "Current model: %s\n", session.ModelID())
			break
		}
		if err := session.SetModelID(fields[1]); err != nil {
			fmt.Fprintf(out, "Cannot switch model: %v\n", err)
			break
		}
		fmt.Fprintf(out, "Model switched to %s\n", session.ModelID())
	case "/tools":
		defs := session.Tools()
		fmt.Fprintf(out, "%d tools available:\n", len(defs))
		for _, def := range defs {
			fmt.Fprintf(out, "  %-32s %s\n", def.Name, def.Description)
		}
	case "/examples":
		for _, query := range session.ExampleQueries() {
			fmt.Fprintf(out, "  - %s\n", query)
		}
	case "/help":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  /model [provider:model]  show or switch the active model")
		fmt.Fprintln(out, "  /tools                   list the discovered GitHub tools")
		fmt.Fprintln(out, "  /examples                show example questions")
		fmt.Fprintln(out, "  /reset                   clear the conversation history")
		fmt.Fprintln(out, "  /quit                    exit the session")
	default:
		fmt.Fprintf(out, "Unknown command %q. Type /help for commands.\n", fields[0])
	}
	return false
}

// spinner animates a thinking indicator on its own goroutine while a
// turn is in flight.
type spinner struct {
	out  io.Writer
	mu   sync.Mutex
	on   bool
	stop chan struct{}
}

func (s *spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.on {
		return
	}
	s.on = true
	s.stop = make(chan struct{})
	go func(stop chan struct{}) {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(s.out, "\r%s Thinking...", frames[i%len(frames)])
				i++
			}
		}
	}(s.stop)
}

func (s *spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.on {
		return
	}
	s.on = false
	close(s.stop)
	fmt.Fprint(s.out, "\r\033[K") // Clear the spinner line
}
