package cli

import (
	"context"
	"os"
	"os/user"

	"repoagent/internal/app"
)

// newApp builds the application from the global CLI flags.
func newApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, app.Options{
		ConfigPath: cfgFile,
		LogLevel:   logLevel,
		UserID:     currentUser(),
	})
}

// currentUser resolves the local account name for traces and audit entries.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "local"
}
