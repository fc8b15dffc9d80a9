package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	appHTTP "github.com/cmlabs-hris/attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/email"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lark"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/queue"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-engine/internal/service/attendance"
	calculationService "github.com/cmlabs-hris/attendance-engine/internal/service/calculation"
	"github.com/go-chi/httplog/v3"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), int32(cfg.Calculation.Workers)*2)
	if err != nil {
		log.Fatal("Error connecting to database: ", err)
	}
	defer db.Close()

	shiftRepo := postgresql.NewShiftRepository(db)
	checkinRepo := postgresql.NewCheckinRepository(db)
	leaveRepo := postgresql.NewLeaveRepository(db)
	holidayRepo := postgresql.NewHolidayRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	calculationRepo := postgresql.NewCalculationRepository(db)

	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Error connecting to redis: ", err)
		}
		locker = lock.NewRedisLocker(redisClient)
	} else {
		slog.Warn("REDIS_ADDR not set, run locks are held in process memory")
		locker = lock.NewMemoryLocker()
	}

	var (
		runQueue   queue.Queue
		localQueue *queue.LocalQueue
		amqpQueue  *queue.AMQPQueue
	)
	switch cfg.Queue.Driver {
	case config.QueueDriverAMQP:
		amqpQueue, err = queue.NewAMQPQueue(cfg.Queue.AMQPDSN, cfg.Queue.Name, cfg.Queue.PublishTimeout)
		if err != nil {
			log.Fatal("Error connecting to message broker: ", err)
		}
		defer amqpQueue.Close()
		runQueue = amqpQueue
	default:
		localQueue = queue.NewLocalQueue(cfg.Queue.LocalSize)
		runQueue = localQueue
	}

	hub := sse.NewHub()
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	emailService, err := email.NewEmailService(cfg.SMTP)
	if err != nil {
		log.Fatal("Failed to initialize email service: ", err)
	}

	opts := calculationService.Options{
		Workers:         cfg.Calculation.Workers,
		ExternalTimeout: cfg.Calculation.ExternalTimeout,
		LockTTL:         cfg.Calculation.LockTTL,
		Location:        cfg.Calculation.Location(),
		Notifier:        emailService,
	}
	if cfg.Lark.Enabled {
		opts.Source = lark.NewClient(lark.Config{
			BaseURL:   cfg.Lark.BaseURL,
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
			Timeout:   cfg.Lark.Timeout,
		})
	}

	calculator := attendanceService.NewCalculator(shiftRepo, checkinRepo, leaveRepo, holidayRepo, attendanceRepo)
	calculationSvc := calculationService.NewCalculationService(
		calculationRepo,
		employeeRepo,
		calculator,
		runQueue,
		locker,
		hub,
		opts,
	)

	// Workers
	workerErr := make(chan error, 1)
	if amqpQueue != nil {
		go func() {
			workerErr <- amqpQueue.Consume(ctx, calculationSvc.StartRun)
		}()
	} else {
		localQueue.Start(ctx, calculationSvc.StartRun)
		defer localQueue.Close()
	}

	scheduler := cron.NewScheduler()
	if cfg.Calculation.NightlyEnabled {
		cron.NewCalculationJobs(calculationSvc, cfg.Calculation.NightlyHour, cfg.Calculation.Location()).RegisterJobs(scheduler)
		scheduler.Start()
		defer scheduler.Stop()
	}

	calculationHandler := appHTTP.NewCalculationHandler(calculationSvc, JWTService, hub)
	router := appHTTP.NewRouter(JWTService, calculationHandler, appHTTP.RouterOptions{Logger: logger})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "queue", cfg.Queue.Driver, "workers", cfg.Calculation.Workers)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
		}
	case err := <-workerErr:
		if err != nil {
			slog.Error("Queue consumer stopped", "error", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
}

func newLogger(app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(app.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(app.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-engine"),
		slog.String("version", "v1.0.0"),
		slog.String("env", app.Env),
	)
}
