package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRepo(t *testing.T) {
	tests := []struct {
		arg     string
		owner   string
		repo    string
		wantErr bool
	}{
		{arg: "golang/go", owner: "golang", repo: "go"},
		{arg: "openai/openai-python", owner: "openai", repo: "openai-python"},
		{arg: "noslash", wantErr: true},
		{arg: "/repo", wantErr: true},
		{arg: "owner/", wantErr: true},
		{arg: "", wantErr: true},
	}

	for _, tt := range tests {
		owner, repo, err := splitRepo(tt.arg)
		if tt.wantErr {
			assert.Error(t, err, tt.arg)
			continue
		}
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.owner, owner)
		assert.Equal(t, tt.repo, repo)
	}
}

func TestQuerySubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, sub := range queryCmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"branches", "info", "prs", "pr", "commits", "file", "search"} {
		assert.True(t, names[want], "missing query subcommand %s", want)
	}
}
