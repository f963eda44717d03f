package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moplan-logistics/service-routing/internal/events"
	"github.com/moplan-logistics/service-routing/internal/handler"
	"github.com/moplan-logistics/service-routing/internal/platform/auth"
	"github.com/moplan-logistics/service-routing/internal/platform/health"
	"github.com/moplan-logistics/service-routing/internal/platform/middleware"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	cfg, log := a.cfg, a.log
	log.Info("starting "+serviceName, zap.String("port", cfg.Port))

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTTL, cfg.JWTConfig.Issuer)

	// Start the planning command consumer when Kafka is enabled
	if cfg.KafkaConfig.Enabled {
		groupID := cfg.KafkaConfig.GroupPrefix + "routing-service"
		planningConsumer := events.NewPlanningCommandConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			a.planning,
			log.Named("consumer"),
		)
		defer func() { _ = planningConsumer.Close() }()

		go func() {
			log.Info("starting planning command consumer")
			if err := planningConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("planning command consumer error", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	routeHandler := handler.NewRouteHandler(a.routes)
	orderHandler := handler.NewOrderHandler(a.planning)
	adminHandler := handler.NewAdminHandler(a.routes, a.planning)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(a.db, serviceName)
	healthHandler.RegisterRoutes(router)

	// Register routes
	routeHandler.RegisterRoutes(&router.RouterGroup)
	orderHandler.RegisterRoutes(&router.RouterGroup)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.PlanningConfig.Timeout),
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		log.Error("HTTP server error", zap.Error(err))
		return err
	}

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
	return nil
}

// writeTimeout leaves room for an admin sync: three sequential planning
// calls plus the table rewrites.
func writeTimeout(planningTimeout time.Duration) time.Duration {
	const floor, storeMargin = 30 * time.Second, 15 * time.Second
	if d := 3*planningTimeout + storeMargin; d > floor {
		return d
	}
	return floor
}
