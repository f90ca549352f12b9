package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mmcdole/folio/internal/adapter"
	"github.com/mmcdole/folio/internal/adapter/source"
	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/server"
	"github.com/mmcdole/folio/internal/service"
	"github.com/mmcdole/folio/internal/store"
	"github.com/mmcdole/folio/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `Usage: folio [flags] [command]

Commands:
  (none)         browse the catalog interactively
  serve          run the JSON API and OPDS feed
  list           print a page of items
  show <id>      print the metadata of one item
  pdf <id>       print the PDF of an item or media id
  cache clear    remove cached API responses
  init           write a configuration file

Flags:
`

func main() {
	var (
		showVersion bool
		configFile  string
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configFile, "config", "", "config file (default ~/.config/folio/config.yaml)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("folio %s\n", Version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configFile, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, domain.ErrNotConfigured) {
			fmt.Fprintln(os.Stderr, "Run `folio init` or set FOLIO_API_BASE_URL, FOLIO_API_KEY_IDENTITY and FOLIO_API_KEY_CREDENTIAL.")
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string, args []string) error {
	// Load configuration
	cfg, err := adapter.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cmd := ""
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "init":
		return runInit(ctx, cfg)
	case "serve":
		return runServe(ctx, cfg, args)
	case "cache":
		return runCache(ctx, cfg, args)
	case "list":
		return withApp(ctx, cfg, func(a *app) error { return a.list(ctx, args) })
	case "show":
		return withApp(ctx, cfg, func(a *app) error { return a.show(ctx, args) })
	case "pdf":
		return withApp(ctx, cfg, func(a *app) error { return a.pdf(ctx, args) })
	case "":
		if !cfg.IsConfigured() && term.IsTerminal(int(os.Stdin.Fd())) {
			// First run: set up before browsing
			if err := runInit(ctx, cfg); err != nil {
				return err
			}
		}
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			// Piped output gets the plain listing
			return withApp(ctx, cfg, func(a *app) error { return a.list(ctx, nil) })
		}
		return withApp(ctx, cfg, func(a *app) error { return a.browse() })
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// app holds the wired services shared by the catalog commands
type app struct {
	cfg     *adapter.Config
	logger  *slog.Logger
	stack   *source.Stack
	catalog *service.CatalogService
	media   *service.MediaResolver
	reader  *service.ReaderService
}

// withApp wires the catalog stack with file logging, runs fn and releases the stack
func withApp(ctx context.Context, cfg *adapter.Config, fn func(*app) error) error {
	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.stack.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}()
	return fn(a)
}

func newApp(ctx context.Context, cfg *adapter.Config, logger *slog.Logger) (*app, error) {
	logger.Info("starting folio", "version", Version)

	stack, err := source.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	media := service.NewMediaResolver(stack.Client,
		store.NewThumbnailMemo(cfg.Cache.ThumbnailTTL),
		logger,
		service.WithHTTPSDocuments(cfg.Preferences.HTTPSDocuments),
		service.WithRelays(stack.Strategies()),
	)
	launcher := adapter.NewLauncher(cfg.Viewer.Command, cfg.Viewer.Args, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		stack:   stack,
		catalog: service.NewCatalogService(stack.Client, logger),
		media:   media,
		reader:  service.NewReaderService(launcher, media, logger),
	}, nil
}

// browse runs the interactive TUI
func (a *app) browse() error {
	model := tui.NewModel(a.catalog, a.media, a.reader, a.cfg.Preferences.Language, a.cfg.UI.PageSize)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	a.logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	a.logger.Info("shutting down")
	return nil
}

func runServe(ctx context.Context, cfg *adapter.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Server.Addr, "listen address")
	debug := fs.Bool("debug", false, "include internal error messages in responses")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := adapter.SetupConsoleLogger(&cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.stack.Close()

	// Every distinct client query adds an entry; drop the ones no TTL class can serve
	if rc, ok := a.stack.Cache.(*store.ResponseCache); ok {
		maxAge := max(cfg.Cache.ListingTTL, cfg.Cache.MediaTTL)
		go rc.PruneEvery(ctx, max(maxAge, time.Minute), maxAge, logger)
	}

	srv := server.New(server.Config{
		Catalog:  a.catalog,
		Media:    a.media,
		Language: cfg.Preferences.Language,
		PageSize: cfg.UI.PageSize,
		Debug:    *debug,
		Logger:   logger,
	})
	return srv.ListenAndServe(ctx, *addr)
}

func runCache(ctx context.Context, cfg *adapter.Config, args []string) error {
	if len(args) != 1 || args[0] != "clear" {
		return errors.New("usage: folio cache clear")
	}
	logger := adapter.SetupConsoleLogger(&cfg.Logging, os.Stderr)
	if err := source.ClearCache(ctx, cfg, logger); err != nil {
		return err
	}
	fmt.Println("Cache cleared.")
	return nil
}
