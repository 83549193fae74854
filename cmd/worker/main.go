package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relawanns/regworker/internal/config"
	"github.com/relawanns/regworker/internal/db"
	"github.com/relawanns/regworker/internal/gdrive"
	"github.com/relawanns/regworker/internal/notifications"
	"github.com/relawanns/regworker/internal/observability"
	"github.com/relawanns/regworker/internal/processor"
	"github.com/relawanns/regworker/internal/queue"
	"github.com/relawanns/regworker/internal/queue/redisclient"
	"github.com/relawanns/regworker/internal/repo/postgres"
	"github.com/relawanns/regworker/internal/storage"
	"github.com/relawanns/regworker/internal/worker"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	logger := observability.NewLogger(cfg.Env)

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "regworker", cfg.OTLPEndpoint)

		if err != nil {
			log.Printf("tracer init failed: %v", err)
		} else {
			defer func() {
				_ = shutdownTracer(context.Background())
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	defer pool.Close()

	redisCli, err := redisclient.New(cfg.RedisURL)

	if err != nil {
		log.Fatalf("redis setup failed: %v", err)
	}

	if err := redisCli.Ping(ctx); err != nil {
		log.Fatalf("redis connect failed: %v", err)
	}

	promReg := prometheus.NewRegistry()
	prom := observability.NewProm(promReg)

	store := queue.NewStore(redisCli, logger)

	registrations := postgres.NewRegistrationsRepo(pool, prom)
	settings := postgres.NewSettingsRepo(pool, prom)

	objects := storage.New(storage.Config{
		BaseURL:    cfg.Storage.URL,
		ServiceKey: cfg.Storage.ServiceKey,
		Bucket:     cfg.Storage.Bucket,
	}, logger)

	drive, err := gdrive.NewClient(ctx, gdrive.OAuthConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RefreshToken: cfg.Google.RefreshToken,
	}, logger)

	if err != nil {
		log.Fatalf("google client setup failed: %v", err)
	}

	var notifier notifications.Notifier = notifications.NewLogNotifier()

	if cfg.Telegram.BotToken != "" {
		notifier = notifications.NewTelegramNotifier(notifications.TelegramConfig{
			Token:        cfg.Telegram.BotToken,
			ChatIDs:      cfg.Telegram.ChatIDs,
			AlertChatIDs: cfg.Telegram.AdminChatIDs,
		}, logger)
	}

	proc := processor.New(processor.Deps{
		Registrations: registrations,
		Settings:      settings,
		Objects:       objects,
		Drive:         drive,
		Sheets:        drive,
		Notifier:      notifier,
	}, logger)

	w := worker.New(worker.Config{
		DequeueTimeout:  cfg.Worker.DequeueTimeout,
		FailureCooldown: cfg.Worker.FailureCooldown,
		JobTimeout:      cfg.Worker.JobTimeout,
	}, store, proc, notifier, prom, logger)

	healthSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Worker.HealthPort),
		Handler: w.HealthHandler(promReg),
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server error: %v", err)
		}
	}()

	log.Println("worker has started")

	runErr := w.Run(ctx)

	_ = healthSrv.Shutdown(context.Background())

	if runErr != nil {
		log.Printf("worker stopped with error: %v", runErr)
		os.Exit(1)
	}

	log.Println("worker shutdown complete")
}
