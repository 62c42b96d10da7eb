package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridelink/internal/config"
	"ridelink/internal/handlers"
	"ridelink/internal/middleware"
	"ridelink/internal/services"
	"ridelink/pkg/cache"
	"ridelink/pkg/database"
	"ridelink/pkg/logger"
	"ridelink/pkg/maps"
	"ridelink/pkg/push"
	"ridelink/pkg/queue"
	"ridelink/pkg/sms"
	"ridelink/pkg/websocket"
	"ridelink/routes"

	mongorepo "ridelink/internal/repositories/mongodb"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	if err := db.EnsureIndexes(context.Background()); err != nil {
		appLogger.WithError(err).Fatal("Failed to create indexes")
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}

	rideRepo := mongorepo.NewRideRepository(db.Database, redisCache)
	offerRepo := mongorepo.NewOfferRepository(db.Database)

	wsHandler := websocket.NewHandler(appLogger)

	sinks := []services.NotificationSink{websocket.NewEventSink(wsHandler.GetHub())}

	if cfg.Push.Enabled {
		fcm, err := push.NewFCMProvider(cfg.Push.FCM.Credentials)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize FCM")
		}
		apns, err := push.NewAPNSProvider(
			cfg.Push.APNS.KeyFile,
			cfg.Push.APNS.KeyID,
			cfg.Push.APNS.TeamID,
			cfg.Push.APNS.BundleID,
			cfg.Push.APNS.Production,
		)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize APNS")
		}
		tokens := push.NewRedisTokenSource(redisCache)
		sinks = append(sinks, push.NewEventSink(fcm, apns, tokens, rideRepo, appLogger))
	}

	if cfg.SMS.Enabled {
		twilio := sms.NewTwilioProvider(
			cfg.SMS.Twilio.AccountSID,
			cfg.SMS.Twilio.AuthToken,
			cfg.SMS.Twilio.FromNumber,
		)
		phones := sms.NewRedisPhoneSource(redisCache)
		sinks = append(sinks, sms.NewEventSink(twilio, phones, rideRepo, appLogger))
	}

	var kafkaSink *queue.KafkaSink
	if cfg.Queue.Enabled {
		kafkaSink = queue.NewKafkaSink(cfg.Queue.Brokers, cfg.Queue.Topic)
		sinks = append(sinks, kafkaSink)
	}

	notifier := services.NewNotifier(appLogger, sinks...)

	lifecycleService := services.NewLifecycleService(rideRepo, offerRepo, notifier, appLogger)
	matchingService := services.NewMatchingService(rideRepo, offerRepo, notifier, appLogger)
	sweeper := services.NewSweeperService(rideRepo, notifier, appLogger)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx, cfg.Matching.SweepInterval)

	var fares handlers.FareSuggester
	if cfg.Maps.Enabled {
		provider, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize Google Maps")
		}
		fares = maps.NewFareSuggester(provider)
	}

	passengerHandler := handlers.NewPassengerRideHandler(lifecycleService, matchingService, fares, appLogger)
	driverHandler := handlers.NewDriverRideHandler(lifecycleService, matchingService, appLogger)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(appLogger))

	v1 := router.Group("/api/v1")
	{
		routes.SetupPassengerRoutes(v1, passengerHandler, cfg.Security.JWTSecret)
		routes.SetupDriverRoutes(v1, driverHandler, cfg.Security.JWTSecret)
	}

	router.GET("/ws", middleware.AuthRequired(cfg.Security.JWTSecret), wsHandler.HandleWebSocket)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"mongodb": "ok", "redis": "ok"}
		if err := db.Ping(); err != nil {
			checks["mongodb"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := redisCache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"version": cfg.App.Version, "checks": checks})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}

	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			appLogger.WithError(err).Error("Failed to close Kafka writer")
		}
	}
	if err := redisCache.Close(); err != nil {
		appLogger.WithError(err).Error("Failed to close Redis")
	}
	if err := db.Close(); err != nil {
		appLogger.WithError(err).Error("Failed to close MongoDB")
	}
}
