package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"stopmo/internal/session"
	"stopmo/internal/shared"
	"stopmo/internal/storage"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB // injected in tests; opened from config otherwise
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
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
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

// SetLogger swaps the runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, sessionCommand, projectCommand, framesCommand, cacheCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openSession opens the session database and returns a store plus a
// cleanup func. When a database was injected, cleanup is a no-op.
func (r *Runner) openSession() (*session.Store, func(), error) {
	if r.db != nil {
		return session.NewStore(r.db, r.logger), func() {}, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session database (run 'stopmo setup' first): %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return session.NewStore(db, r.logger), func() { db.Close() }, nil
}

// newClient builds a storage client from session credentials, falling
// back to the config file where the session is silent. The bearer
// token only applies in api mode.
func (r *Runner) newClient(creds session.Credentials) (*storage.Client, error) {
	mode := creds.StorageMode
	if mode == "" {
		mode = r.config.Storage.Mode
	}

	endpoint := creds.Endpoint
	if endpoint == "" {
		if creds.Bucket != "" {
			bucketConfig := *r.config
			bucketConfig.Storage.Mode = shared.StorageModeBucket
			bucketConfig.Storage.Bucket = creds.Bucket
			endpoint = bucketConfig.Endpoint()
		} else {
			endpoint = r.config.Endpoint()
		}
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: no storage endpoint in session or config", shared.ErrMissingCredentials)
	}

	token := ""
	if mode == shared.StorageModeAPI {
		token = creds.AccessToken
		if token == "" {
			return nil, fmt.Errorf("%w: api mode requires an access token (see 'stopmo session set')", shared.ErrMissingCredentials)
		}
	}

	client := storage.NewClient(endpoint, token, r.httpClient)
	if r.config.Cache.ConfigTTLSeconds > 0 || r.config.Cache.ImageTTLSeconds > 0 {
		configTTL := time.Duration(r.config.Cache.ConfigTTLSeconds) * time.Second
		imageTTL := time.Duration(r.config.Cache.ImageTTLSeconds) * time.Second
		if configTTL <= 0 {
			configTTL = storage.DefaultConfigTTL
		}
		if imageTTL <= 0 {
			imageTTL = storage.DefaultImageTTL
		}
		client.SetCacheTTL(configTTL, imageTTL)
	}
	return client, nil
}

// requireProject returns the active project ID from the session,
// unless overridden on the command line.
func (r *Runner) requireProject(override string, creds session.Credentials) (string, error) {
	if override != "" {
		return override, nil
	}
	if creds.ProjectID == "" {
		return "", fmt.Errorf("%w: no active project (use --project or 'stopmo session set --project')", shared.ErrMissingCredentials)
	}
	return creds.ProjectID, nil
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
