package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gbv_reporter/config"
	"gbv_reporter/dashboard"
	"gbv_reporter/dialog"
	"gbv_reporter/escalation"
	"gbv_reporter/handlers"
	"gbv_reporter/i18n"
	"gbv_reporter/jobs"
	"gbv_reporter/logging"
	"gbv_reporter/middleware"
	"gbv_reporter/session"
	"gbv_reporter/storage"
	"gbv_reporter/whatsapp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WhatsApp webhook, dashboard and queue workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	fmt.Println("🚀 Starting GBV reporter...")

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	log := logging.Setup(logLevel(cfg.LogLevel), cfg.LogFormat)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	reports := storage.NewReportStore(db)
	if err := reports.Migrate(ctx); err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb, err = storage.ConnectRedis(ctx, storage.RedisOptions{
			URL:      cfg.RedisURL,
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	store, closeStore, err := openSessionStore(cfg.SessionBackend, cfg.SQLitePath, cfg.SessionTTL, rdb)
	if err != nil {
		return err
	}
	defer closeStore()

	var locker session.Locker = session.NewKeyedMutex()
	if rdb != nil {
		locker = session.NewRedisLocker(rdb, cfg.LockTTL)
	}

	escalations := escalation.NewService(reports)
	var (
		notifier  dialog.Notifier = escalation.InlineNotifier{Service: escalations}
		publisher *jobs.Publisher
	)
	if rdb != nil {
		publisher = jobs.NewPublisher(rdb, jobs.DefaultQueue)
		notifier = escalation.QueueNotifier{Publisher: publisher}
	}

	manager := dialog.NewManager(dialog.Deps{
		Engine: dialog.NewEngine(i18n.DefaultTranslator()),
		Store:  store,
		Locker: locker,
		Sender: &whatsapp.Client{
			Token:         cfg.WhatsAppToken,
			PhoneNumberID: cfg.WhatsAppPhoneNumberID,
			BaseURL:       cfg.WhatsAppAPIBase,
		},
		Sink:      reports,
		Status:    reports,
		FollowUps: reports,
		Notifier:  notifier,
	})

	dispatcher := handlers.Inline(manager)
	if cfg.QueueEnabled {
		dispatcher = handlers.Queued(publisher, cfg.Workers)
	}
	webhook := &handlers.WhatsAppWebhook{
		VerifyToken: cfg.WhatsAppVerifyToken,
		AppSecret:   cfg.WhatsAppAppSecret,
		Dispatcher:  dispatcher,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(webhook, reports, cfg.APIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("🌐 Server listening on http://localhost:%s\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\n⏳ Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if rdb != nil {
		escalator := jobs.NewWorker(rdb, jobs.DefaultQueue)
		escalator.Handle(jobs.TaskEscalateReport, escalations.HandleTask)
		for range cfg.Workers {
			g.Go(func() error { return escalator.Run(gctx) })
		}

		// One worker per shard: a user's messages are handled in order.
		if cfg.QueueEnabled {
			inbound := handlers.InboundTask(manager)
			for i := range cfg.Workers {
				w := jobs.NewWorker(rdb, jobs.ShardName(jobs.InboundQueue, i))
				w.Handle(jobs.TaskInboundMessage, inbound)
				g.Go(func() error { return w.Run(gctx) })
			}
		}
		log.Info("queue workers started", "count", cfg.Workers, "inbound", cfg.QueueEnabled)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Println("✅ Shutdown complete.")
	return nil
}

// reportAPI is what the back-office routes read.
type reportAPI interface {
	dashboard.StatsSource
	dashboard.ReportFinder
	dashboard.StatusUpdater
}

func newRouter(webhook http.Handler, reports reportAPI, apiKey string) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware(apiKey)

	mux.Handle("GET /webhook", webhook)
	mux.Handle("POST /webhook", webhook)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("✅ GBV reporter is running"))
	})
	mux.Handle("GET /dashboard", auth(dashboard.Handler(reports)))
	mux.Handle("GET /api/reports/{ref}", auth(dashboard.ReportHandler(reports)))
	mux.Handle("PUT /api/reports/{ref}/status", auth(dashboard.StatusHandler(reports)))

	return mux
}

// openSessionStore returns the store for backend and a function that
// releases it.
func openSessionStore(backend, sqlitePath string, ttl time.Duration, rdb *redis.Client) (session.Store, func(), error) {
	switch backend {
	case config.BackendRedis:
		if rdb == nil {
			return nil, nil, errors.New("redis session backend needs a Redis connection")
		}
		return session.NewRedisStore(rdb, ttl), func() {}, nil
	case config.BackendSQLite:
		s, err := session.OpenSQLite(sqlitePath, ttl)
		if err != nil {
			return nil, nil, err
		}
		fmt.Println("✅ Opened SQLite session store:", sqlitePath)
		return s, func() { s.Close() }, nil
	case config.BackendMemory:
		return session.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", backend)
	}
}
