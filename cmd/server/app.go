package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/moplan-logistics/service-routing/internal/application"
	"github.com/moplan-logistics/service-routing/internal/config"
	"github.com/moplan-logistics/service-routing/internal/events"
	"github.com/moplan-logistics/service-routing/internal/osrm"
	"github.com/moplan-logistics/service-routing/internal/platform/database"
	"github.com/moplan-logistics/service-routing/internal/platform/kafka"
	"github.com/moplan-logistics/service-routing/internal/platform/logger"
	"github.com/moplan-logistics/service-routing/internal/repository"
	"github.com/moplan-logistics/service-routing/internal/upstream"
)

// app is the wiring shared by every command.
type app struct {
	cfg      *config.ServiceConfig
	log      *zap.Logger
	db       *gorm.DB
	producer kafka.EventPublisher
	routes   *application.RouteService
	planning *application.PlanningService
}

func newApp(ctx context.Context) (*app, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:            cfg.DBConfig.Host,
		Port:            cfg.DBConfig.Port,
		User:            cfg.DBConfig.User,
		Password:        cfg.DBConfig.Password,
		DBName:          cfg.DBConfig.DBName,
		SSLMode:         cfg.DBConfig.SSLMode,
		MaxOpenConns:    cfg.DBConfig.MaxOpenConns,
		MaxIdleConns:    cfg.DBConfig.MaxIdleConns,
		ConnMaxLifetime: cfg.DBConfig.ConnMaxLifetime,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		models := append([]interface{}{&repository.RouteCacheModel{}}, repository.PlanningModels()...)
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to run auto-migration: %w", err)
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.DBConfig.MigrationsDir, log); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Initialize Kafka producer
	var producer kafka.EventPublisher = kafka.NopPublisher{}
	if cfg.KafkaConfig.Enabled {
		producer = kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	} else {
		log.Info("kafka disabled, events will not be published")
	}
	publisher := events.NewPublisher(producer, log.Named("events"))

	// Initialize repositories and clients
	cacheRepo := repository.NewGormRouteCacheRepository(db)
	planningRepo := repository.NewGormPlanningRepository(db)
	osrmClient := osrm.NewClient(cfg.RoutingConfig.BaseURL, cfg.RoutingConfig.Timeout, log.Named("osrm"))
	planningClient := upstream.NewClient(
		cfg.PlanningConfig.BaseURL,
		cfg.PlanningConfig.Token,
		cfg.PlanningConfig.Timeout,
		log.Named("upstream"),
	)

	// Initialize application services
	routeService := application.NewRouteService(cacheRepo, osrmClient, publisher, log.Named("routes"))
	if err := routeService.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare route cache: %w", err)
	}
	planningService := application.NewPlanningService(
		planningRepo,
		planningClient,
		routeService,
		publisher,
		log.Named("planning"),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		producer: producer,
		routes:   routeService,
		planning: planningService,
	}, nil
}

func (a *app) close() {
	if p, ok := a.producer.(*kafka.Producer); ok {
		_ = p.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
