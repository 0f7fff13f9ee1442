package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bryan-buckman/newsreader/internal/adblock"
	"github.com/bryan-buckman/newsreader/internal/config"
	"github.com/bryan-buckman/newsreader/internal/database"
	"github.com/bryan-buckman/newsreader/internal/ingest"
	"github.com/bryan-buckman/newsreader/internal/logging"
	"github.com/bryan-buckman/newsreader/internal/model"
	"github.com/bryan-buckman/newsreader/internal/rss"
	"github.com/bryan-buckman/newsreader/internal/scripts"
	"github.com/bryan-buckman/newsreader/internal/server"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// app bundles the components every command needs.
type app struct {
	cfg     config.Config
	logger  *log.Logger
	store   database.Store
	fetcher *rss.Fetcher
	coord   *ingest.Coordinator
}

func setup(c *cli.Command) (*app, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if c.Bool("verbose") {
		level = "debug"
	}
	logger := logging.New(os.Stderr, level)

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database opened", "type", store.DatabaseType())

	fetcher := rss.NewFetcher(rss.Options{
		Timeout:         cfg.FetchTimeout(),
		MaxBodyBytes:    cfg.Fetch.MaxBodyBytes,
		UserAgent:       cfg.Fetch.UserAgent,
		PerHostInterval: cfg.PerHostInterval(),
		Logger:          logger,
	})
	coord := ingest.New(store, fetcher, ingest.Options{
		Concurrency: cfg.Sync.Concurrency,
		Logger:      logger,
		Notifier: ingest.NotifierFunc(func(title string) {
			logger.Info("interest matched", "title", title)
		}),
	})
	return &app{cfg: cfg, logger: logger, store: store, fetcher: fetcher, coord: coord}, nil
}

// newBlocker builds the ad blocker on its own fetcher, since list bodies
// exceed the feed size cap.
func (a *app) newBlocker() *adblock.Engine {
	lists := rss.NewFetcher(rss.Options{
		Timeout:         a.cfg.FetchTimeout(),
		MaxBodyBytes:    adblock.MaxListBytes,
		UserAgent:       a.cfg.Fetch.UserAgent,
		PerHostInterval: a.cfg.PerHostInterval(),
		Logger:          a.logger,
	})
	return adblock.New(lists, a.logger)
}

func openStore(cfg config.Config) (database.Store, error) {
	switch strings.ToLower(cfg.Database.Driver) {
	case "postgres", "postgresql":
		if cfg.Database.DSN == "" {
			return nil, fmt.Errorf("database.dsn is required for postgres (or set %s)", config.DatabaseURLEnv)
		}
		return database.NewPostgres(cfg.Database.DSN)
	case "", "sqlite":
		return database.New(cfg.Database.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func runServe(ctx context.Context, a *app) error {
	blocker := a.newBlocker()
	engine := scripts.NewEngine(a.store, scripts.NewCatalog(a.cfg.ScriptCatalog.BaseURL, a.fetcher), a.fetcher, a.logger)
	srv := server.New(server.Deps{
		Store:       a.store,
		Coordinator: a.coord,
		Poller:      ingest.NewPoller(a.coord, 0),
		Blocker:     blocker,
		Scripts:     engine,
		Logger:      a.logger,
	})

	go func() {
		if err := srv.ReloadBlockLists(ctx); err != nil {
			a.logger.Warn("initial block list load failed", "err", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(a.cfg.ListenAddr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	}
}

func runSync(ctx context.Context, a *app) error {
	report, err := a.coord.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Synced %d feeds: %d new articles\n", report.Subscriptions, report.NewArticles)
	for _, f := range report.Failures {
		fmt.Printf("  failed: %s: %v\n", f.URL, f.Err)
	}
	return nil
}

func runAdd(ctx context.Context, a *app, url, categories string) error {
	var cats []string
	if categories != "" {
		cats = strings.Split(categories, ",")
	}
	sub, err := a.coord.AddSubscription(ctx, ingest.AddRequest{URL: url, Categories: cats})
	if err != nil {
		return fmt.Errorf("add %s: %w", url, err)
	}
	fmt.Printf("Added %q (%s)\n", sub.Title, sub.URL)
	return nil
}

func runCheckURL(ctx context.Context, a *app, url string) error {
	blocker := a.newBlocker()
	enabled, err := database.GetStringSet(a.store, model.SettingBlockListEnabled)
	if err != nil {
		return err
	}
	custom, err := database.GetStringSet(a.store, model.SettingBlockListCustom)
	if err != nil {
		return err
	}
	blocker.Reload(ctx, enabled, custom)
	if blocker.IsBlocked(url) {
		fmt.Printf("%s: blocked (%d domains loaded)\n", url, blocker.Size())
	} else {
		fmt.Printf("%s: allowed (%d domains loaded)\n", url, blocker.Size())
	}
	return nil
}

// withApp builds the app for a command and closes the store afterwards.
func withApp(fn func(ctx context.Context, a *app, c *cli.Command) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		a, err := setup(c)
		if err != nil {
			return err
		}
		defer a.store.Close()
		return fn(ctx, a, c)
	}
}

func main() {
	var addURL, checkURL string
	cmd := &cli.Command{
		Name:  "newsreader",
		Usage: "RSS/Atom news reader with ad blocking and userscripts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to config file (default ~/.config/newsreader/config.yaml)"},
			&cli.BoolFlag{Name: "verbose", Usage: "Enable debug logging"},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP API and background sync",
				Action: withApp(func(ctx context.Context, a *app, c *cli.Command) error {
					return runServe(ctx, a)
				}),
			},
			{
				Name:  "sync",
				Usage: "Sync every subscription once",
				Action: withApp(func(ctx context.Context, a *app, c *cli.Command) error {
					return runSync(ctx, a)
				}),
			},
			{
				Name:  "add",
				Usage: "Validate and subscribe to a feed",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "categories", Usage: "Comma-separated categories"},
				},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url", UsageText: "feed url", Max: 1, Destination: &addURL},
				},
				Action: withApp(func(ctx context.Context, a *app, c *cli.Command) error {
					return runAdd(ctx, a, addURL, c.String("categories"))
				}),
			},
			{
				Name:  "check-url",
				Usage: "Report whether a URL is on the block list",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url", UsageText: "url", Max: 1, Destination: &checkURL},
				},
				Action: withApp(func(ctx context.Context, a *app, c *cli.Command) error {
					return runCheckURL(ctx, a, checkURL)
				}),
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
