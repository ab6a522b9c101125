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
	"github.com/saberlist/saberlist/internal/services"
	"github.com/saberlist/saberlist/internal/shared"
	"github.com/saberlist/saberlist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
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
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, crawlCommand, playlistCommand, songsCommand, runsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reloads configuration from the command's --config flag when the
// file exists, keeping the runner's defaults otherwise.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	return nil
}

// openDatabase opens the configured SQLite database and applies pending migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// newCatalog builds the ScoreSaber client from the current configuration.
func (r *Runner) newCatalog() services.Catalog {
	client := r.httpClient
	if timeout := r.config.ScoreSaber.Timeout(); timeout > 0 {
		client = &http.Client{
			Transport: r.httpClient.Transport,
			Timeout:   timeout,
		}
	}

	retry := shared.DefaultRetryConfig()
	if r.config.ScoreSaber.RetryAttempts > 0 {
		retry.MaxAttempts = r.config.ScoreSaber.RetryAttempts
	}

	return services.NewScoreSaberService(services.ScoreSaberOpts{
		BaseURL:    r.config.ScoreSaber.BaseURL,
		PageSize:   r.config.ScoreSaber.PageSize,
		HTTPClient: client,
		Retry:      retry,
	})
}

// newEngine builds a crawl engine over the given stores.
func (r *Runner) newEngine(songs tasks.SongStore, runs tasks.RunStore, maxPages int) *tasks.CrawlEngine {
	if maxPages <= 0 {
		maxPages = r.config.Crawl.MaxPages
	}

	return tasks.NewCrawlEngine(tasks.EngineOpts{
		Catalog:   r.newCatalog(),
		Songs:     songs,
		Runs:      runs,
		Logger:    r.logger,
		MaxPages:  maxPages,
		BatchSize: r.config.Crawl.BatchSize,
		RateLimit: r.config.Crawl.RateLimit,
	})
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
