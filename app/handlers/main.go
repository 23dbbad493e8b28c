package main

import (
	"context"
	"fmt"
	"os"

	"github.com/escomrepo/users-service/app/authors"
	cfgPkg "github.com/escomrepo/users-service/app/config"
	"github.com/escomrepo/users-service/app/email"
	"github.com/escomrepo/users-service/app/logger"
	"github.com/escomrepo/users-service/app/outbox"
	"github.com/escomrepo/users-service/app/services"
	"github.com/escomrepo/users-service/app/store"
	"github.com/escomrepo/users-service/migrations"
)

func main() {
	// Initialize structured logging
	logger.Init()

	// Load .env file (if it exists)
	cfgPkg.Load()

	if err := validateRequiredEnv(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("required environment variables missing")
	}

	// Build connection string from individual components
	dbUser := cfgPkg.GetString("POSTGRES_USER", "postgres")
	dbPassword := cfgPkg.GetString("POSTGRES_PASSWORD", "postgres")
	dbHost := cfgPkg.GetString("POSTGRES_HOST", "postgres") // "postgres" in Docker, "localhost" locally
	dbPort := cfgPkg.GetString("POSTGRES_PORT", "5432")
	dbName := cfgPkg.GetString("POSTGRES_DB", "repositorio")
	dbSSLMode := cfgPkg.GetString("POSTGRES_SSLMODE", "disable")

	dbAddr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)

	appCfg := cfgPkg.NewApp()

	cfg := config{
		addr: cfgPkg.GetString("ADDR", ":8080"),
		app:  appCfg,
		db: dbConfig{
			addr:         dbAddr,
			maxOpenConns: cfgPkg.GetInt("DB_MAX_OPEN_CONNS", 30),
			maxIdleConns: cfgPkg.GetInt("DB_MAX_IDLE_CONNS", 30),
			maxIdleTime:  cfgPkg.GetString("DB_MAX_IDLE_TIME", "15m"),
		},
	}

	logger.Logger.Info().
		Str("host", dbHost).
		Str("port", dbPort).
		Str("database", dbName).
		Str("sslmode", dbSSLMode).
		Msg("connecting to postgres")

	db, err := cfgPkg.NewDB(
		cfg.db.addr,
		cfg.db.maxOpenConns,
		cfg.db.maxIdleConns,
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	logger.Logger.Info().
		Str("host", dbHost).
		Str("database", dbName).
		Msg("postgres connection pool established")

	if cfgPkg.GetString("MIGRATE_ON_START", "true") == "true" {
		if err := migrations.Up(context.Background(), db); err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
		logger.Logger.Info().Msg("database schema up to date")
	}

	redisAddr := cfgPkg.GetString("REDIS_ADDR", "localhost:6379")
	redisDB := cfgPkg.GetInt("REDIS_DB", 0)

	logger.Logger.Info().
		Str("addr", redisAddr).
		Int("db", redisDB).
		Msg("connecting to redis")

	redisClient, err := cfgPkg.NewRedisClient()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	logger.Logger.Info().
		Str("addr", redisAddr).
		Int("db", redisDB).
		Msg("redis connection established")

	storage := store.NewStorage(db, appCfg.RetryCap)

	app := &application{
		config:      cfg,
		store:       storage,
		redisClient: redisClient,
		db:          db,
	}

	// Outbound mail: Resend HTTP API by default, or a RabbitMQ publisher when
	// a separate mail worker consumes the queue.
	var mailer email.Sender
	switch provider := cfgPkg.GetString("EMAIL_PROVIDER", "resend"); provider {
	case "rabbitmq":
		rabbitURL := cfgPkg.GetString("RABBITMQ_URL", "")
		logger.Logger.Info().Str("url", rabbitURL).Msg("connecting to RabbitMQ")

		rabbitConn, rabbitCh, err := cfgPkg.NewRabbitMQConnection()
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rabbitConn.Close()
		defer rabbitCh.Close()

		logger.Logger.Info().Msg("RabbitMQ connection established")

		app.rabbitConn = rabbitConn
		app.rabbitCh = rabbitCh
		mailer = email.NewRabbitSender(rabbitCh)
	case "resend":
		mailer = email.NewResendSender(
			cfgPkg.GetString("RESEND_API_KEY", ""),
			cfgPkg.GetString("MAIL_FROM", "no-reply@escom.ipn.mx"),
			cfgPkg.GetString("MAIL_FROM_NAME", "Repositorio Digital ESCOM"),
		)
	default:
		logger.Logger.Fatal().Str("provider", provider).Msg("unknown EMAIL_PROVIDER")
	}

	initValidation(appCfg.StaffDomain, appCfg.StudentDomain)

	issuer := services.NewCodeIssuer(appCfg)
	app.userService = services.NewUserService(storage, mailer, issuer, appCfg)

	registry := authors.NewHTTPClient(appCfg.AuthorsAPIURL, logger.Logger)
	dispatcher := outbox.NewDispatcher(storage, registry, appCfg, logger.Logger)

	mux := app.mount()

	// Start server with graceful shutdown
	if err := app.runWithGracefulShutdown(mux, dispatcher, db, redisClient); err != nil {
		logger.Logger.Fatal().Err(err).Msg("server error")
	}
}

func validateRequiredEnv() error {
	if os.Getenv("JWT_SECRET") == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if cfgPkg.GetString("EMAIL_PROVIDER", "resend") == "resend" && os.Getenv("RESEND_API_KEY") == "" {
		return fmt.Errorf("RESEND_API_KEY is required when EMAIL_PROVIDER=resend")
	}
	return nil
}
