package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/cyberguard/internal/application"
	appai "github.com/bryanwahyu/cyberguard/internal/application/ai"
	appscans "github.com/bryanwahyu/cyberguard/internal/application/scans"
	"github.com/bryanwahyu/cyberguard/internal/config"
	"github.com/bryanwahyu/cyberguard/internal/domain/analyst"
	"github.com/bryanwahyu/cyberguard/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
	openaiClient "github.com/bryanwahyu/cyberguard/internal/infra/ai/openai"
	"github.com/bryanwahyu/cyberguard/internal/infra/cache"
	mysqlp "github.com/bryanwahyu/cyberguard/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/cyberguard/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/cyberguard/internal/infra/db/sqlite"
	"github.com/bryanwahyu/cyberguard/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/cyberguard/internal/infra/storage"
	"github.com/bryanwahyu/cyberguard/internal/infra/virustotal"
	"github.com/bryanwahyu/cyberguard/internal/middleware"
)

const archiveTimeout = 30 * time.Second

// repositories dari driver yang dipilih
type repositories struct {
	scans    domain.Repository
	errors   scanerrors.Repository
	analyses analyst.Repository
	db       *sql.DB
	close    func() error
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		return &repositories{
			scans:    postgresp.NewScanRepository(db),
			errors:   postgresp.NewScanErrorRepository(db),
			analyses: postgresp.NewAnalystRepository(db),
			db:       db,
			close:    db.Close,
		}, nil
	case config.DriverSQLite:
		gdb, err := sqlitep.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		db, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		return &repositories{
			scans:    sqlitep.NewScanRepository(gdb),
			errors:   sqlitep.NewScanErrorRepository(gdb),
			analyses: sqlitep.NewAnalystRepository(gdb),
			db:       db,
			close:    db.Close,
		}, nil
	default:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		return &repositories{
			scans:    mysqlp.NewScanRepository(db),
			errors:   mysqlp.NewScanErrorRepository(db),
			analyses: mysqlp.NewAnalystRepository(db),
			db:       db,
			close:    db.Close,
		}, nil
	}
}

// archiveHook upload raw payload ke MinIO di background; gagal upload tidak mengganggu scan.
func archiveHook(store *minioStore.Store) func(context.Context, *domain.ScanRecord) {
	return func(ctx context.Context, rec *domain.ScanRecord) {
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
			defer cancel()
			url, err := store.ArchiveRecord(ctx, rec)
			if err != nil {
				log.Printf("archive failed: scan_id=%s err=%v", rec.ID, err)
				return
			}
			log.Printf("archived raw payload: scan_id=%s url=%s", rec.ID, url)
		}()
	}
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	defer repos.close()
	log.Printf("database ready: driver=%s", cfg.Database.Driver)

	// reputation client
	vt, err := virustotal.New(virustotal.Options{
		APIKey:      cfg.VirusTotal.APIKey,
		BaseURL:     cfg.VirusTotal.BaseURL,
		Timeout:     cfg.LookupTimeout(),
		MaxAttempts: cfg.VirusTotal.MaxAttempts,
		Mode:        virustotal.Mode(cfg.ReputationMode()),
	})
	if err != nil {
		log.Fatalf("virustotal init error: %v", err)
	}
	if vt.Mode() == virustotal.ModeStub {
		log.Printf("virustotal: no api key configured, serving stub verdicts")
	}

	// init service
	svc := &appscans.Service{
		Repo:   repos.scans,
		Lookup: vt,
		Clock:  application.SystemClock{},
		Cache:  cache.NewRecordCache(cfg.Cache.Size, cfg.CacheTTL()),
	}

	health := &middleware.Health{
		Checks:         map[string]middleware.Check{"database": middleware.PingCheck(repos.db)},
		ReputationMode: string(vt.Mode()),
	}

	// init minio (optional)
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		svc.OnCreated = archiveHook(store)
		health.Checks["archive"] = store.Ping
	}

	// init ai advisor (optional)
	var aiSvc *appai.Service
	if cfg.OpenAI.APIKey != "" {
		aiSvc = &appai.Service{
			Scans:   svc,
			Advisor: openaiClient.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL),
			Repo:    repos.analyses,
			Clock:   application.SystemClock{},
		}
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
	defer limiter.Stop()

	// init router
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.MetricsMiddleware)
	if len(cfg.Server.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
			MaxAge:         300,
		}))
	}
	mux.Use(limiter.Middleware)
	mux.Mount("/", httpserver.NewRouter(svc, aiSvc, repos.errors, httpserver.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Health:         health,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
		// lookups retry with backoff, so writes get the full retry budget
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LookupTimeout()*time.Duration(cfg.VirusTotal.MaxAttempts) + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
