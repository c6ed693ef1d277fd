package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/feedmx/feedmx/pkg/config"
	"github.com/feedmx/feedmx/pkg/feed"
	"github.com/feedmx/feedmx/pkg/matrix"
	"github.com/feedmx/feedmx/pkg/repository"
	"github.com/feedmx/feedmx/pkg/scheduler"
	"github.com/feedmx/feedmx/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"feedmx.yml" description:"config file"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		setupLog(opts.Debug, opts.NoColor)
		log.Printf("[ERROR] can't load config %s: %v", opts.Config, err)
		os.Exit(1)
	}

	// keep the access token out of log output
	setupLog(opts.Debug, opts.NoColor, cfg.Matrix.Token)

	log.Printf("[INFO] starting feedmx version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err = run(ctx, cfg, opts)
	cancel()

	if err != nil {
		log.Printf("[ERROR] feedmx failed: %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run wires the pipeline and blocks until shutdown or a fatal error
func run(ctx context.Context, cfg *config.Config, opts Opts) error {
	repos, err := repository.NewRepositories(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init seen store: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Printf("[WARN] failed to close seen store: %v", err)
		}
	}()

	fetcher := feed.NewParser(cfg.Schedule.FeedTimeout, "feedmx/"+revision)

	client := matrix.NewClient(matrix.Config{
		BaseURL:     cfg.Matrix.BaseURL,
		Port:        cfg.Matrix.Port,
		RoomID:      cfg.Matrix.RoomID,
		Token:       cfg.Matrix.Token,
		MaxAttempts: cfg.Delivery.MaxAttempts,
		BaseDelay:   cfg.Delivery.BaseDelay,
		MaxDelay:    cfg.Delivery.MaxDelay,
	})

	sched, err := scheduler.New(fetcher, repos.Seen, client, scheduler.Config{
		Feeds:      cfg.Feeds,
		CronExpr:   cfg.Schedule.Cron,
		Mute:       cfg.MuteWindow(),
		MaxWorkers: cfg.Schedule.MaxWorkers,
	})
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return sched.Run(gctx) })

	if cfg.Server.Enabled {
		listen, timeout := cfg.GetServerConfig()
		srv := server.New(server.Config{
			Listen:  listen,
			Timeout: timeout,
			Version: revision,
			Debug:   opts.Debug,
		}, sched, repos.Seen)
		g.Go(func() error { return srv.Run(gctx) })
	}

	if cfg.Matrix.Listener.Enabled {
		listener := matrix.NewListener(client, cfg.Matrix.Listener.Welcome)
		g.Go(func() error { listener.Run(gctx); return nil })
	}

	return g.Wait()
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
