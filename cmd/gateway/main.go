// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Gateway is the public HTTP API of the marketplace: listing CRUD, presigned
// uploads and the events that feed the validation and indexing pipeline.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"storj.io/marketplace/pkg/api"
	"storj.io/marketplace/pkg/auth"
	"storj.io/marketplace/pkg/cache"
	"storj.io/marketplace/pkg/cfgstruct"
	"storj.io/marketplace/pkg/eventbus"
	"storj.io/marketplace/pkg/events"
	"storj.io/marketplace/pkg/idempotency"
	"storj.io/marketplace/pkg/listingdb"
	"storj.io/marketplace/pkg/listings"
	"storj.io/marketplace/pkg/objectstore"
	"storj.io/marketplace/pkg/process"
	"storj.io/marketplace/pkg/uploads"
)

// Config is the complete gateway configuration. Every field resolves from a
// flag or its environment counterpart (api-port from API_PORT, db.dsn from
// DB_DSN and so on).
type Config struct {
	APIPort        int    `help:"port the HTTP API listens on" default:"8080"`
	DomainName     string `help:"origin allowed to call the API from a browser" default:"http://localhost:3000"`
	PublicFilesURL string `help:"base URL validated public files are served from" default:"http://localhost:9000/public-files"`

	GatewayS3AccessKeyID     string `help:"access key for the object store" default:""`
	GatewayS3SecretAccessKey string `help:"secret key for the object store" default:""`

	DB            listingdb.Config
	NATS          eventbus.Config
	Redis         cache.Config
	S3            objectstore.Config
	Authorization auth.Config
	Event         events.Config
	Uploads       uploads.Config
}

var (
	rootCmd = &cobra.Command{
		Use:   "gateway",
		Short: "Marketplace API gateway",
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the gateway",
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
	db := listingdb.New(pool)

	redis, err := cache.Open(runCfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redis.Close() }()

	bus, err := eventbus.Dial(log.Named("eventbus"), runCfg.NATS, "gateway-service")
	if err != nil {
		return err
	}

	store, err := objectstore.NewMinio(runCfg.S3,
		runCfg.GatewayS3AccessKeyID, runCfg.GatewayS3SecretAccessKey)
	if err != nil {
		return err
	}

	verifier, err := auth.NewOpenIDVerifier(ctx, runCfg.Authorization)
	if err != nil {
		return err
	}

	publisher := events.NewPublisher(log.Named("events"), bus, runCfg.Event)

	listingsService := listings.NewService(log.Named("listings"),
		db, pool, store, publisher, redis, runCfg.PublicFilesURL)
	listingsHandler := listings.NewHandler(log.Named("listings"), listingsService)

	uploadsService := uploads.NewService(log.Named("uploads"),
		store, uploads.DefaultConstraints(), runCfg.Uploads)
	uploadsHandler := uploads.NewHandler(log.Named("uploads"), uploadsService)

	idemStore := idempotency.NewStore(redis)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", runCfg.APIPort),
		Handler: newRouter(log, verifier, idemStore, listingsHandler, uploadsHandler, pool, redis),

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("gateway listening", zap.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	if err := bus.Drain(); err != nil {
		log.Error("event bus drain failed", zap.Error(err))
	}
	return nil
}

func newRouter(
	log *zap.Logger,
	verifier auth.Verifier,
	idemStore *idempotency.Store,
	listingsHandler *listings.Handler,
	uploadsHandler *uploads.Handler,
	pool *pgxpool.Pool,
	redis *cache.Client,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{runCfg.DomainName},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public surface: health and listing reads.
	router.Get("/health", healthHandler(log, pool, redis))
	router.Get("/listings/{id}", listingsHandler.Get)

	// Everything else requires a verified user, and every write is
	// replay-safe behind the idempotency layer.
	router.Group(func(router chi.Router) {
		router.Use(auth.Middleware(log.Named("auth"), verifier))
		router.Use(idempotency.Handler(log.Named("idempotency"), idemStore))

		router.Post("/listings", listingsHandler.Create)
		router.Get("/listings", listingsHandler.List)
		router.Put("/listings/{id}", listingsHandler.Update)
		router.Delete("/listings/{id}", listingsHandler.Delete)

		router.Post("/files/presign", uploadsHandler.PresignUpload)

		// Cheap probe for the frontend to check a session is still valid.
		router.Get("/authenticated", func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.FromContext(r.Context())
			if err != nil {
				api.ServeError(log, w, r, api.NewError(api.KindUnauthorized, "Not authenticated", err))
				return
			}
			_ = api.WriteJSON(w, http.StatusOK, map[string]string{"user_id": user.ID})
		})
	})

	return router
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}

func healthHandler(log *zap.Logger, pool *pgxpool.Pool, redis *cache.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := pool.Ping(ctx); err != nil {
			log.Error("health check: database unreachable", zap.Error(err))
			_ = api.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unreachable"})
			return
		}
		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis unreachable", zap.Error(err))
			_ = api.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "cache unreachable"})
			return
		}
		_ = api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func main() {
	process.Execute(rootCmd)
}
