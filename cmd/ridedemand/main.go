// Command ridedemand builds the hourly ride demand tables, trains the baseline model and serves
// the prediction dashboard.
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

	"github.com/aouyang1/go-ridedemand"
	"github.com/aouyang1/go-ridedemand/config"
	"github.com/aouyang1/go-ridedemand/dashboard"
	"github.com/aouyang1/go-ridedemand/metrics"
	"github.com/pkg/profile"
)

const usage = `usage: ridedemand [flags] <command>

commands:
  build-taxi     fetch the monthly trip logs and write the hourly taxi table
  build-weather  fetch the weather archive and write the hourly weather table
  build-events   fetch the city events and write the hourly events table
  build-base     join the hourly tables and write the base and model ready tables
  build          run every build stage in order
  train          fit the baseline linear model on the model ready table
  serve          serve the prediction dashboard

flags:
`

var ErrUnknownCommand = errors.New("unknown command")

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("ridedemand failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("ridedemand", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "path of the YAML config file")
	envFile := fs.String("env", "", "path of the .env file, defaults to ./.env")
	logJSON := fs.Bool("log-json", false, "log as JSON")
	profileMode := fs.String("profile", "", "write a cpu or mem profile of the run")
	profileDir := fs.String("profile-dir", ".", "directory of the profile output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one command, got %d, %w", fs.NArg(), ErrUnknownCommand)
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		return err
	}
	setupLogging(cfg, *logJSON)

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*profileDir), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(*profileDir), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("profile mode %q, expected cpu or mem", *profileMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := metrics.NewRecorder()
	p, err := ridedemand.New(cfg, rec)
	if err != nil {
		return err
	}
	slog.Info("starting", "command", fs.Arg(0), "run_id", p.RunID(), "data_dir", cfg.DataDir)

	switch cmd := fs.Arg(0); cmd {
	case "build-taxi":
		_, err = p.BuildTaxi(ctx)
	case "build-weather":
		_, err = p.BuildWeather(ctx)
	case "build-events":
		_, err = p.BuildEvents(ctx)
	case "build-base":
		_, err = p.BuildBase(ctx)
	case "build":
		_, err = p.Build(ctx)
	case "train":
		_, err = p.Train(ctx)
	case "serve":
		err = serve(ctx, cfg, p, rec)
	default:
		fs.Usage()
		err = fmt.Errorf("%q, %w", cmd, ErrUnknownCommand)
	}
	return err
}

func setupLogging(cfg *config.Config, forceJSON bool) {
	hopt := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, hopt)
	if forceJSON || cfg.Log.JSON {
		handler = slog.NewJSONHandler(os.Stderr, hopt)
	}
	slog.SetDefault(slog.New(handler))
}

func serve(ctx context.Context, cfg *config.Config, p *ridedemand.Pipeline, rec *metrics.Recorder) error {
	srv, err := p.LoadServer()
	if err != nil {
		return err
	}
	app := dashboard.New(srv, rec, dashboard.Options{
		DefaultDays: cfg.Dashboard.DefaultDays,
		Location:    cfg.Location(),
	})

	errc := make(chan error, 1)
	go func() {
		slog.Info("serving dashboard", "addr", cfg.Dashboard.ListenAddr)
		errc <- app.Listen(cfg.Dashboard.ListenAddr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down dashboard, %w", err)
	}
	slog.Info("dashboard stopped")
	return nil
}
