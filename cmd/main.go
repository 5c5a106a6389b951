package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	cancelBookingHandler "github.com/m04kA/SMC-TutoringService/internal/api/handlers/cancel_booking"
	claimBookingHandler "github.com/m04kA/SMC-TutoringService/internal/api/handlers/claim_booking"
	createBookingHandler "github.com/m04kA/SMC-TutoringService/internal/api/handlers/create_booking"
	getAvailableBookingsHandler "github.com/m04kA/SMC-TutoringService/internal/api/handlers/get_available_bookings"
	getBookingHandler "github.com/m04kA/SMC-TutoringService/internal/api/handlers/get_booking"
	getMyBookingsHandler "github.com/m04kA/SMC-TutoringService/internal/api/handlers/get_my_bookings"
	reassignBookingHandler "github.com/m04kA/SMC-TutoringService/internal/api/handlers/reassign_booking"
	"github.com/m04kA/SMC-TutoringService/internal/api/middleware"
	"github.com/m04kA/SMC-TutoringService/internal/app"
	"github.com/m04kA/SMC-TutoringService/internal/config"
	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/internal/infra/cache/broadcast"
	bookingRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/booking"
	notificationRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/notification"
	sessionRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/session"
	studentRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/student"
	tutorRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/tutor"
	userRepo "github.com/m04kA/SMC-TutoringService/internal/infra/storage/user"
	"github.com/m04kA/SMC-TutoringService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-TutoringService/internal/integrations/eventbus"
	"github.com/m04kA/SMC-TutoringService/internal/integrations/telegram"
	"github.com/m04kA/SMC-TutoringService/internal/service/allocation"
	bookingsService "github.com/m04kA/SMC-TutoringService/internal/service/bookings"
	"github.com/m04kA/SMC-TutoringService/internal/service/notifications"
	"github.com/m04kA/SMC-TutoringService/internal/worker"
	"github.com/m04kA/SMC-TutoringService/migrations"
	"github.com/m04kA/SMC-TutoringService/pkg/dbmetrics"
	"github.com/m04kA/SMC-TutoringService/pkg/logger"
	"github.com/m04kA/SMC-TutoringService/pkg/metrics"
	"github.com/m04kA/SMC-TutoringService/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level, cfg.Logs.Format)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-TutoringService...")

	// Инициализируем метрики (если включены); nil-коллектор безопасно игнорирует вызовы
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Применяем миграции
	if cfg.Database.AutoMigrate {
		migrator, err := app.NewMigrator(db, migrations.FS, ".", log)
		if err != nil {
			log.Fatal("Failed to init migrator: %v", err)
		}
		if err := migrator.Run(context.Background()); err != nil {
			log.Fatal("Failed to apply migrations: %v", err)
		}
	}

	// Исполнитель запросов и источник транзакций (с метриками или без)
	var (
		executor dbmetrics.DBExecutor
		beginner txmanager.TxBeginner
	)
	if cfg.Metrics.Enabled {
		wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		executor = wrappedDB
		beginner = wrappedDB
		log.Info("Database metrics collection started")
	} else {
		executor = db
		beginner = dbmetrics.SqlDBBeginner{DB: db}
	}

	txMgr := txmanager.NewTransactionManager(beginner, txmanager.WithMaxRetries(cfg.Database.TxMaxRetries))

	// Репозитории
	bookingRepository := bookingRepo.NewRepository(executor)
	tutorRepository := tutorRepo.NewRepository(executor)
	studentRepository := studentRepo.NewRepository(executor)
	sessionRepository := sessionRepo.NewRepository(executor)
	notificationRepository := notificationRepo.NewRepository(executor)
	userRepository := userRepo.NewRepository(executor)

	// Каталог предметов, пакетов и программ
	catalogClient := catalogservice.NewClient(
		cfg.CatalogService.URL,
		time.Duration(cfg.CatalogService.Timeout)*time.Second,
		log,
	)
	log.Info("Catalog client initialized (url=%s, timeout=%ds)", cfg.CatalogService.URL, cfg.CatalogService.Timeout)

	// Защита от повторной рассылки: Redis, если включен, иначе память процесса
	broadcastTTL := time.Duration(cfg.Redis.BroadcastTTL) * time.Second
	var guard allocation.BroadcastGuard
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("Failed to ping redis at %s, falling back to in-memory broadcast guard: %v", cfg.Redis.Addr, err)
		} else {
			guard = broadcast.NewRedisGuard(redisClient, broadcastTTL)
			log.Info("Broadcast guard: redis (addr=%s)", cfg.Redis.Addr)
		}
	}
	if guard == nil {
		guard = broadcast.NewMemoryGuard(broadcastTTL)
		log.Warn("Broadcast guard: in-memory, de-duplication is lost on restart")
	}

	// Каналы уведомлений
	channels := notifications.Channels{
		InApp:    notificationRepository,
		Contacts: userRepository,
	}
	if cfg.Telegram.Enabled {
		tgClient, err := telegram.NewClient(cfg.Telegram.Token)
		if err != nil {
			log.Fatal("Failed to init telegram client: %v", err)
		}
		channels.Telegram = tgClient
		log.Info("Telegram notifications enabled")
	}
	if cfg.RabbitMQ.Enabled {
		publisher, err := eventbus.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal("Failed to connect to rabbitmq: %v", err)
		}
		defer publisher.Close()
		channels.EventBus = publisher
		log.Info("Event bus enabled (exchange=%s)", cfg.RabbitMQ.Exchange)
	}

	dispatcher := notifications.NewDispatcher(channels, notifications.Options{
		Workers:   cfg.Workers.NotificationWorkers,
		QueueSize: cfg.Workers.NotificationQueue,
		Timeout:   time.Duration(cfg.Workers.NotificationTimeout) * time.Second,
	}, metricsCollector, log)
	dispatcher.Start()

	// Движок распределения
	var selector allocation.Selector
	switch cfg.Allocation.Selector {
	case config.SelectorLoad:
		selector = allocation.NewLoadSelector(bookingRepository, nil)
	default:
		selector = allocation.NewRandomSelector(nil)
	}

	opts := allocation.DefaultOptions()
	opts.MaxCommitAttempts = cfg.Allocation.MaxCommitAttempts
	opts.RequestedBlocks = cfg.Allocation.RequestedBlocks()

	availability := allocation.NewAvailability(bookingRepository, opts.RequestedBlocks)
	committer := allocation.NewCommitter(
		bookingRepository,
		tutorRepository,
		studentRepository,
		sessionRepository,
		availability,
		txMgr,
		dispatcher,
		metricsCollector,
		log,
	)
	engine := allocation.NewEngine(
		bookingRepository,
		tutorRepository,
		studentRepository,
		catalogClient,
		allocation.NewEligibility(tutorRepository),
		availability,
		selector,
		committer,
		allocation.NewBroadcaster(bookingRepository, guard, dispatcher, log),
		metricsCollector,
		log,
		opts,
	)
	log.Info("Allocation engine initialized (selector=%s, max_commit_attempts=%d, requested_blocks=%t)",
		cfg.Allocation.Selector, opts.MaxCommitAttempts, opts.RequestedBlocks)

	bookingSvc := bookingsService.NewService(
		bookingRepository,
		studentRepository,
		tutorRepository,
		sessionRepository,
		txMgr,
		metricsCollector,
		log,
	)

	// Фоновые задачи
	scheduler := worker.NewScheduler(log)
	scheduler.Add(worker.NewArchiver(bookingSvc), time.Duration(cfg.Workers.ArchiveInterval)*time.Second)
	scheduler.Add(worker.NewRebroadcaster(engine, metricsCollector, log),
		time.Duration(cfg.Workers.RebroadcastInterval)*time.Second)

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	scheduler.Start(workersCtx)

	// Инициализируем handlers
	createBooking := createBookingHandler.NewHandler(engine, log)
	claimBooking := claimBookingHandler.NewHandler(engine, log)
	reassignBooking := reassignBookingHandler.NewHandler(engine, log)
	getAvailableBookings := getAvailableBookingsHandler.NewHandler(engine, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	getMyBookings := getMyBookingsHandler.NewHandler(bookingSvc, log)
	cancelBooking := cancelBookingHandler.NewHandler(bookingSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logging(log))

	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	// API prefix, все маршруты требуют JWT
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, log))

	role := func(h http.HandlerFunc, roles ...domain.Role) http.Handler {
		return middleware.RequireRoles(roles...)(h)
	}

	// Статические пути регистрируются раньше /bookings/{bookingId}
	api.Handle("/bookings/mine",
		role(getMyBookings.Handle, domain.RoleStudent, domain.RoleParent, domain.RoleTutor)).Methods(http.MethodGet)
	api.Handle("/bookings/available",
		role(getAvailableBookings.Handle, domain.RoleTutor)).Methods(http.MethodGet)

	api.Handle("/bookings",
		role(createBooking.Handle, domain.RoleStudent, domain.RoleParent, domain.RoleAdmin)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)
	api.Handle("/bookings/{bookingId}/claim",
		role(claimBooking.Handle, domain.RoleTutor)).Methods(http.MethodPost)
	api.Handle("/bookings/{bookingId}/reassign/{tutorId}",
		role(reassignBooking.Handle, domain.RoleAdmin)).Methods(http.MethodPatch)
	api.Handle("/bookings/{bookingId}/cancel",
		role(cancelBooking.Handle, domain.RoleStudent, domain.RoleParent, domain.RoleAdmin)).Methods(http.MethodPost)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Останавливаем фоновые задачи, затем дожидаемся доставки уведомлений
	stopWorkers()
	scheduler.Stop()
	_ = dispatcher.Close()

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	log.Info("Server stopped gracefully")
}
