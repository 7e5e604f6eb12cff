package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfviewer/internal/backend"
	cfgpkg "github.com/local/pdfviewer/internal/config"
	"github.com/local/pdfviewer/internal/extract"
	"github.com/local/pdfviewer/internal/health"
	logpkg "github.com/local/pdfviewer/internal/logger"
	"github.com/local/pdfviewer/internal/metrics"
	"github.com/local/pdfviewer/internal/session"
	"github.com/local/pdfviewer/internal/store"
	"github.com/local/pdfviewer/internal/web"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	sessions, err := session.NewManager(cfg.Session.RedisURL, cfg.Session.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer sessions.Close()

	docStore, err := buildStore(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init document store")
	}

	adapters := backend.Probe()
	if len(adapters) == 0 {
		log.Fatal().Msg("no extraction backends available")
	}
	extractor := extract.NewService(adapters, backend.Options{
		BaseDPI:       cfg.Extract.BaseDPI,
		LowDPI:        cfg.Extract.LowDPI,
		LargeDocPages: cfg.Extract.LargeDocPages,
		BatchSize:     cfg.Extract.BatchSize,
		JPEGQuality:   cfg.Extract.JPEGQuality,
	})

	mux := http.NewServeMux()
	ui := web.New(web.Dependencies{
		Extractor:      extractor,
		Store:          docStore,
		Sessions:       sessions,
		UploadDir:      cfg.Server.UploadDir,
		AssetRoot:      cfg.Server.AssetDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	ui.RegisterRoutes(mux)

	checker := health.NewChecker(sessions, cfg.Store.Dir, extractor.Backends())
	mux.HandleFunc("/health", checker.Handler())
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Strs("backends", extractor.Backends()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("shutdown complete")
}

func buildStore(cfg cfgpkg.StoreConfig) (store.Store, error) {
	var cipher *store.BlobCipher
	if cfg.EncryptionKey != "" {
		cipher = store.NewBlobCipher(cfg.EncryptionKey)
	}
	switch cfg.Backend {
	case "s3":
		return store.NewS3Store(context.Background(), store.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Prefix:    cfg.S3Prefix,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}, cipher)
	default:
		return store.NewFSStore(cfg.Dir, cipher)
	}
}
