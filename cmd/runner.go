package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/chorussync/chorus/internal/connectors"
	"github.com/chorussync/chorus/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, enrichCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the effective config for a command: an injected config
// wins, then the file named by --config, then embedded defaults.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	if r.config != nil {
		return r.config
	}

	configPath := cmd.String("config")
	if configPath == "" {
		configPath = "config.toml"
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			r.logger.Warnf("failed to load config, using defaults %v", err)
		} else {
			config = loaded
		}
	}

	r.config = config
	return config
}

// openDatabase opens the configured SQLite database, reusing an injected
// handle when one was provided.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	return db, func() { db.Close() }, nil
}

// buildConnector constructs and authenticates the named connector from config
// credentials.
func (r *Runner) buildConnector(ctx context.Context, config *shared.Config, name string) (connectors.Connector, error) {
	switch name {
	case "spotify":
		conn, err := connectors.NewSpotifyConnector(config.Credentials.Spotify.Map())
		if err != nil {
			return nil, err
		}
		token := config.Credentials.Spotify.AccessToken
		if token == "" {
			return nil, fmt.Errorf("%w: run 'chorus auth spotify' first", shared.ErrNotAuthenticated)
		}
		if err := conn.Authenticate(ctx, map[string]string{"access_token": token}); err != nil {
			return nil, err
		}
		return conn, nil
	case "lastfm":
		return connectors.NewLastfmConnector(config.Credentials.Lastfm.APIKey, config.Credentials.Lastfm.Username)
	default:
		return nil, fmt.Errorf("%w: unknown service %q", shared.ErrInvalidInput, name)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
