// Copyright (c) 2021 - The Event Horizon authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command recall runs the spaced repetition core, either to seed a deck or to
// serve view updates.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/looplab/recall/internal/app"
	"github.com/looplab/recall/internal/config"
	"github.com/looplab/recall/internal/digest"
	"github.com/looplab/recall/internal/domain/learning"
	"github.com/looplab/recall/internal/logger"
	"github.com/looplab/recall/internal/seed"
	"github.com/looplab/recall/srs"
)

var configPath = flag.String("config", "", "path to a YAML config file")

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: %s [-config file] <command> [flags]

Commands:
  seed -name <deck name> <file>   create a deck from a JSON seed file
  serve [-seed file -name name]   publish view updates until interrupted

`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	if command != "seed" && command != "serve" {
		return fmt.Errorf("unknown command: %s", command)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := srs.NewFSRS(
		srs.WithDesiredRetention(cfg.Scheduler.DesiredRetention),
		srs.WithMaximumInterval(cfg.Scheduler.MaximumInterval),
	)
	if err != nil {
		return fmt.Errorf("could not create scheduler: %w", err)
	}

	learning.Scheduler = scheduler

	if cfg.Tracing.Enabled {
		closer, err := newTracer(cfg.Tracing)
		if err != nil {
			return err
		}
		defer closer.Close()
	}

	stores, release, err := newStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer release()

	adapters, err := newAdapters(ctx, cfg.Outbound, command == "serve", log)
	if err != nil {
		stores.Close()

		return err
	}
	defer adapters.Close()

	options := []app.Option{
		app.WithOutboundAdapters(adapters.all...),
		app.WithAttempts(cfg.Session.Attempts),
		app.WithDueOnly(cfg.Session.DueOnly),
		app.WithLogger(log),
	}
	if cfg.Tracing.Enabled {
		options = append(options, app.WithTracing())
	}

	a, err := app.New(stores, options...)
	if err != nil {
		stores.Close()

		return err
	}
	defer a.Close()

	log.Info("recall started",
		"command", command,
		"store", cfg.Store.Driver,
		"adapters", len(adapters.all),
	)

	if command == "seed" {
		return runSeed(ctx, a, args, log)
	}

	return runServe(ctx, a, cfg, adapters, args, log)
}

func runSeed(ctx context.Context, a *app.App, args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	name := fs.String("name", "", "name of the deck")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return errors.New("seed needs exactly one file")
	}

	return seedFile(ctx, a, fs.Arg(0), *name, log)
}

func seedFile(ctx context.Context, a *app.App, path, name string, log *slog.Logger) error {
	s, err := seed.New(a.Commands, seed.WithLogger(log.With("component", "seed")))
	if err != nil {
		return err
	}

	_, err = s.SeedFile(ctx, path, name)

	return err
}

func runServe(ctx context.Context, a *app.App, cfg *config.Config, adapters *adapters, args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	seedPath := fs.String("seed", "", "seed file to load before serving")
	name := fs.String("name", "", "name of the seeded deck")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *seedPath != "" {
		if err := seedFile(ctx, a, *seedPath, *name, log); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	if adapters.hub != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Outbound.WebsocketPath, adapters.hub)

		srv := &http.Server{
			Addr:              cfg.Outbound.WebsocketAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			log.Info("serving updates", "addr", srv.Addr, "path", cfg.Outbound.WebsocketPath)

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("could not serve updates: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.Digest.Schedule != "" {
		d, err := digest.New(cfg.Digest.Schedule, a.Stores().Cards,
			digest.WithOutboundAdapters(adapters.all...),
			digest.WithLogger(log.With("component", "digest")),
		)
		if err != nil {
			return err
		}

		g.Go(func() error {
			return d.Run(ctx)
		})
	}

	g.Go(func() error {
		errs := a.HandlerErrors()

		for {
			select {
			case err, ok := <-errs:
				if !ok {
					return nil
				}

				log.Debug("event handler failed", "handler", err.HandlerType.String(), "error", err.Err)
			case <-ctx.Done():
				log.Info("shutting down")

				return nil
			}
		}
	})

	return g.Wait()
}
