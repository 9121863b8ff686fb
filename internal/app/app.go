// Package app wires the storefront service together and runs it.
package app

import (
	"context"
	"net/http"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/misterblack0101/letsride-sub000/internal/auth"
	"github.com/misterblack0101/letsride-sub000/internal/catalog"
	"github.com/misterblack0101/letsride-sub000/internal/docstore"
	"github.com/misterblack0101/letsride-sub000/internal/docstore/firestoredb"
	"github.com/misterblack0101/letsride-sub000/internal/docstore/memory"
	"github.com/misterblack0101/letsride-sub000/internal/handler"
	"github.com/misterblack0101/letsride-sub000/internal/loadstate"
	"github.com/misterblack0101/letsride-sub000/internal/objstore"
	"github.com/misterblack0101/letsride-sub000/internal/search"
	"github.com/misterblack0101/letsride-sub000/pkg/health"
	"github.com/misterblack0101/letsride-sub000/pkg/httpmiddleware"
)

// deps are the environment-dependent backends: Firestore plus Cloud Storage
// plus Firebase Auth in production, in-memory stand-ins otherwise.
type deps struct {
	store    docstore.Store
	files    objstore.Storage
	verifier auth.Verifier
	close    func() error
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.close(); err != nil {
			lg.Error("Closing backends", zap.Error(err))
		}
	}()

	// Repositories and domain services.
	productRepo := catalog.NewRepository(d.store, lg.Named("catalog"))
	structureRepo := catalog.NewStructureRepository(d.store, lg.Named("structure"))
	adminSvc := catalog.NewAdminService(d.store, d.files, lg.Named("admin"))

	var remote *search.RemoteClient
	if cfg.Search.BaseURL != "" {
		remote = search.NewRemoteClient(cfg.Search.BaseURL, cfg.Search.Index, cfg.Search.APIKey, &http.Client{
			Timeout: 5 * time.Second,
		})
	}
	searcher := search.NewService(remote, search.NewFallbackIndex(productRepo, lg.Named("search")))

	events := loadstate.NewBus()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddReadinessCheck("store", 5*time.Second, func(ctx context.Context) error {
		_, err := d.store.Collection(catalog.ProductsCollection).Query().Limit(1).Documents(ctx)
		return err
	})
	healthSvc.SetReady(true)

	// HTTP surface.
	api := handler.New(productRepo, structureRepo, adminSvc, searcher, events, d.verifier)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	api.Register(mux)

	instrumented := otelhttp.NewHandler(mux, "letsride-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      0, // event stream holds connections open
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:       86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// buildDeps connects the Firebase-backed production stack, or the in-memory
// stand-ins when no project is configured.
func buildDeps(ctx context.Context, cfg *Config) (deps, error) {
	if cfg.Firestore.ProjectID == "" {
		verifier, err := auth.NewHMACVerifier([]byte(cfg.Admin.KeyPepper), cfg.Admin.KeyHash)
		if err != nil {
			return deps{}, errors.Wrap(err, "configure admin key verifier")
		}
		return deps{
			store:    memory.New(),
			files:    objstore.NewMemory(),
			verifier: verifier,
			close:    func() error { return nil },
		}, nil
	}

	var opts []option.ClientOption
	if cfg.Firestore.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firestore.CredentialsFile))
	}
	fbApp, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.Firestore.ProjectID,
		StorageBucket: cfg.Storage.Bucket,
	}, opts...)
	if err != nil {
		return deps{}, errors.Wrap(err, "initialize firebase app")
	}

	fs, err := fbApp.Firestore(ctx)
	if err != nil {
		return deps{}, errors.Wrap(err, "connect firestore")
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		_ = fs.Close()
		return deps{}, errors.Wrap(err, "connect firebase auth")
	}
	storageClient, err := fbApp.Storage(ctx)
	if err != nil {
		_ = fs.Close()
		return deps{}, errors.Wrap(err, "connect cloud storage")
	}
	bucket, err := storageClient.DefaultBucket()
	if err != nil {
		_ = fs.Close()
		return deps{}, errors.Wrap(err, "open storage bucket")
	}

	return deps{
		store:    firestoredb.New(fs),
		files:    objstore.NewGCS(bucket, cfg.Storage.Bucket),
		verifier: auth.NewFirebaseVerifier(authClient),
		close:    fs.Close,
	}, nil
}
