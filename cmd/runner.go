package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/repositories"
	"github.com/desertthunder/bookrack/internal/services"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/desertthunder/bookrack/internal/storage"
	"github.com/desertthunder/bookrack/internal/stores"
	"github.com/desertthunder/bookrack/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Storage, stores and the catalog are opened on first use so that commands like `setup config` work without them.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	storage storage.Storage
	stores  *stores.Stores
	catalog services.CatalogService
	books   *repositories.BookRepository
	engine  *tasks.LibraryEngine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Stores, Catalog and Books are normally opened from the config; tests inject them.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer

	Stores  *stores.Stores
	Catalog services.CatalogService
	Books   *repositories.BookRepository
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

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		stores:     opts.Stores,
		catalog:    opts.Catalog,
		books:      opts.Books,
	}
	if r.stores != nil {
		r.engine = tasks.NewLibraryEngine(r.stores, r.catalog, r.logger)
	}
	return r
}

// SetLogger replaces the logger used by the runner and everything it opens afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, bookmarksCommand, progressCommand, settingsCommand, searchCommand,
		libraryCommand, uploadCommand, cacheCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the file named by --config, falling back to defaults when it does not exist.
// --ephemeral forces memory storage and an in-memory database.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	path := cmd.String("config")
	if path != "" {
		r.configPath = path
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return err
			}
			r.config = config
		} else if cmd.IsSet("config") {
			return fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
	}

	if cmd.Bool("ephemeral") {
		r.config.Storage.Driver = "memory"
		r.config.Database.Path = shared.MemoryDatabase
	}

	r.logger.SetLevel(shared.ParseLogLevel(r.config.Log.Level))
	return nil
}

// ready opens storage, the stores, the book cache and the catalog client if they are not open yet.
func (r *Runner) ready(cmd *cli.Command) error {
	if r.stores != nil {
		return nil
	}
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	needsDB := r.config.Storage.Driver == "sqlite" || r.config.Cache.Enabled
	if needsDB {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return err
		}
		shared.ConfigureDatabase(db, r.config.Database.Path, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.db = db
	}

	st, err := storage.Open(storage.Options{
		Driver:    r.config.Storage.Driver,
		DB:        r.db,
		BadgerDir: r.config.Storage.BadgerDir,
		Logger:    r.logger,
	})
	if err != nil {
		r.Close()
		return fmt.Errorf("failed to open storage: %w", err)
	}
	r.storage = st
	r.stores = stores.Open(st, stores.Options{Logger: r.logger})

	client, err := services.NewCatalogClient(services.CatalogOptions{
		BaseURL:    r.config.Catalog.BaseURL,
		HTTPClient: r.httpClient,
		Timeout:    r.config.Catalog.Timeout(),
		RateLimit:  r.config.Catalog.RateLimit,
		MaxRetries: r.config.Catalog.MaxRetries,
		Logger:     r.logger,
	})
	if err != nil {
		r.Close()
		return err
	}
	r.catalog = client

	if r.config.Cache.Enabled && r.db != nil {
		r.books = repositories.NewBookRepository(r.db)
		r.catalog = repositories.NewCachingResolver(client, r.books, r.config.Cache.TTL(), r.logger)
	}

	r.engine = tasks.NewLibraryEngine(r.stores, r.catalog, r.logger)
	r.logger.Debug("runner ready", "storage", r.config.Storage.Driver, "catalog", r.config.Catalog.BaseURL, "cache", r.books != nil)
	return nil
}

// Close releases storage and the database. It is safe to call more than once.
func (r *Runner) Close() error {
	var errs []error
	if r.storage != nil {
		errs = append(errs, r.storage.Close())
		r.storage = nil
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}

// warnUnsaved reports stores whose last write did not reach durable storage.
func (r *Runner) warnUnsaved() {
	if err := r.stores.Err(); err != nil {
		r.logger.Warn("changes were applied in memory but not saved", "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
