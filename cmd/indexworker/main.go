// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Indexworker consumes listing index events and keeps the search engine in
// sync with the listings database.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"storj.io/marketplace/pkg/cfgstruct"
	"storj.io/marketplace/pkg/eventbus"
	"storj.io/marketplace/pkg/events"
	"storj.io/marketplace/pkg/indexer"
	"storj.io/marketplace/pkg/listingdb"
	"storj.io/marketplace/pkg/process"
)

// Config is the complete worker configuration.
type Config struct {
	IndexWorkerPort int    `help:"port the health endpoint listens on" default:"8081"`
	PublicFilesURL  string `help:"base URL validated public files are served from" default:"http://localhost:9000/public-files"`

	DB        listingdb.Config
	NATS      eventbus.Config
	Typesense indexer.Config
	Event     events.Config
}

var (
	rootCmd = &cobra.Command{
		Use:   "indexworker",
		Short: "Marketplace search index worker",
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the index worker",
		RunE:  cmdRun,
	}
	setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Print an environment template for every configuration flag",
		RunE:  cmdSetup,
	}

	runCfg Config
)

func init() {
	rootCmd.AddCommand(runCmd, setupCmd)
	cfgstruct.Bind(runCmd.Flags(), &runCfg)
}

func cmdSetup(cmd *cobra.Command, args []string) error {
	runCmd.Flags().VisitAll(func(f *pflag.Flag) {
		fmt.Printf("# %s\n%s=%s\n", f.Usage, process.EnvName(f.Name), f.DefValue)
	})
	return nil
}

func cmdRun(cmd *cobra.Command, args []string) (err error) {
	log, err := process.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := process.Ctx()
	defer cancel()

	pool, err := listingdb.Open(ctx, runCfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	bus, err := eventbus.Dial(log.Named("eventbus"), runCfg.NATS, "listings-worker")
	if err != nil {
		return err
	}

	index := indexer.NewTypesense(runCfg.Typesense)
	defer func() { _ = index.Close() }()

	service := indexer.NewService(log.Named("indexer"),
		listingdb.New(pool), index, runCfg.PublicFilesURL)

	reader := indexer.NewReader(log.Named("reader"), bus, runCfg.Event, service)
	subscription, err := reader.Run()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", indexer.NewHealthHandler(log.Named("health"), pool, index))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", runCfg.IndexWorkerPort),
		Handler: mux,

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("index worker listening", zap.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	// Stop taking new messages, then let in-flight handlers finish through
	// the drain before the database goes away.
	if err := subscription.Unsubscribe(); err != nil {
		log.Error("unsubscribe failed", zap.Error(err))
	}
	if err := bus.Drain(); err != nil {
		log.Error("event bus drain failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	return nil
}

func main() {
	process.Execute(rootCmd)
}
