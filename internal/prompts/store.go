package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Query template names
const (
	QueryBranches           = "branches"
	QueryRepositoryInfo     = "repository_info"
	QueryPullRequests       = "pull_requests"
	QueryPullRequestSummary = "pull_request_summary"
	QueryCommits            = "commits"
	QueryFileContent        = "file_content"
	QuerySearchRepos        = "search_repos"
)

// SystemPrompts holds the system message configuration
type SystemPrompts struct {
	Base string `yaml:"base"`
}

// QueryPrompts holds the query templates for GitHub operations
type QueryPrompts struct {
	Branches           string `yaml:"branches"`
	RepositoryInfo     string `yaml:"repository_info"`
	PullRequests       string `yaml:"pull_requests"`
	PullRequestSummary string `yaml:"pull_request_summary"`
	Commits            string `yaml:"commits"`
	FileContent        string `yaml:"file_content"`
	SearchRepos        string `yaml:"search_repos"`
}

// TestPrompts holds example queries for smoke testing the agent
type TestPrompts struct {
	ExampleQueries []string `yaml:"example_queries"`
}

// Prompts is the root prompt configuration
type Prompts struct {
	System  SystemPrompts `yaml:"system"`
	Queries QueryPrompts  `yaml:"queries"`
	Test    TestPrompts   `yaml:"test"`
}

// Validate checks that every required prompt is present
func (p *Prompts) Validate() error {
	var missing []string

	if strings.TrimSpace(p.System.Base) == "" {
		missing = append(missing, "system.base")
	}

	required := map[string]string{
		QueryBranches:           p.Queries.Branches,
		QueryRepositoryInfo:     p.Queries.RepositoryInfo,
		QueryPullRequests:       p.Queries.PullRequests,
		QueryPullRequestSummary: p.Queries.PullRequestSummary,
		QueryCommits:            p.Queries.Commits,
		QueryFileContent:        p.Queries.FileContent,
		QuerySearchRepos:        p.Queries.SearchRepos,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, "queries."+name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("prompts file missing required entries: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Store loads prompt templates from a YAML file and serves them to the
// rest of the module. When the file is absent the built-in defaults are
// used, so a fresh install works without any prompt setup.
type Store struct {
	path               string
	stabilityThreshold time.Duration

	mu      sync.RWMutex
	prompts Prompts

	watcher     *fsnotify.Watcher
	done        chan struct{}
	reloadTimer *time.Timer
	debounceMu  sync.Mutex
	stopOnce    sync.Once
}

// NewStore creates a store bound to the given prompts file path.
func NewStore(path string) *Store {
	return &Store{
		path:               path,
		stabilityThreshold: 100 * time.Millisecond,
		prompts:            DefaultPrompts(),
	}
}

// Load reads and validates the prompts file. A missing file is not an
// error; the store falls back to the built-in defaults.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", s.path).Msg("Prompts file not found, using built-in defaults")
			s.mu.Lock()
			s.prompts = DefaultPrompts()
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read prompts file: %w", err)
	}

	var parsed Prompts
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse prompts file: %w", err)
	}
	if err := parsed.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.prompts = parsed
	s.mu.Unlock()
	return nil
}

// EnsureFile writes the built-in defaults to the store's path when no
// file exists yet, so users have a file to edit.
func (s *Store) EnsureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat prompts file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create prompts directory: %w", err)
	}

	defaults := DefaultPrompts()
	data, err := yaml.Marshal(&defaults)
	if err != nil {
		return fmt.Errorf("failed to encode default prompts: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prompts file: %w", err)
	}

	log.Info().Str("path", s.path).Msg("Wrote default prompts file")
	return nil
}

// SystemMessage returns the system prompt with surrounding whitespace removed.
func (s *Store) SystemMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.TrimSpace(s.prompts.System.Base)
}

// QueryTemplate returns the raw template for a query type.
func (s *Store) QueryTemplate(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch name {
	case QueryBranches:
		return s.prompts.Queries.Branches, nil
	case QueryRepositoryInfo:
		return s.prompts.Queries.RepositoryInfo, nil
	case QueryPullRequests:
		return s.prompts.Queries.PullRequests, nil
	case QueryPullRequestSummary:
		return s.prompts.Queries.PullRequestSummary, nil
	case QueryCommits:
		return s.prompts.Queries.Commits, nil
	case QueryFileContent:
		return s.prompts.Queries.FileContent, nil
	case QuerySearchRepos:
		return s.prompts.Queries.SearchRepos, nil
	default:
		return "", fmt.Errorf("unknown query type: %s", name)
	}
}

// Render fills a query template's {placeholder} markers with the given
// values. Placeholders without a value are left untouched.
func (s *Store) Render(name string, vars map[string]string) (string, error) {
	template, err := s.QueryTemplate(name)
	if err != nil {
		return "", err
	}

	rendered := template
	for key, value := range vars {
		rendered = strings.ReplaceAll(rendered, "{"+key+"}", value)
	}
	return rendered, nil
}

// ExampleQueries returns the smoke-test queries.
func (s *Store) ExampleQueries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.prompts.Test.ExampleQueries))
	copy(out, s.prompts.Test.ExampleQueries)
	return out
}
