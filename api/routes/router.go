// api/routes/router.go
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"walkin/internal/notifications"
	"walkin/internal/outlets"
	"walkin/internal/queue"
	"walkin/internal/realtime"
	"walkin/internal/recommend"
	"walkin/internal/shared/config"
	"walkin/internal/shared/database"
	"walkin/internal/shared/middleware"
	"walkin/internal/waittime"
	"walkin/pkg/cache"
	"walkin/pkg/logger"
	"walkin/pkg/metrics"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB
	logger *logger.Logger

	outletService outlets.Service
	queueService  queue.Service
	jobs          *queue.JobProcessor
	notifier      *notifications.KafkaNotifier
}

// NewRouter wires the outlet catalog and the queue engine
func NewRouter(cfg *config.Config, db *database.DB, log *logger.Logger) (*Router, error) {
	r := &Router{
		config: cfg,
		db:     db,
		logger: log,
	}

	var cacheService cache.Service
	if db.Redis != nil {
		cacheService = cache.NewService(db.Redis, log)
	}
	r.outletService = outlets.NewService(outlets.NewRepository(db.SQL), cacheService, &outlets.ServiceConfig{
		DefaultMaxPartySize: cfg.Queue.DefaultMaxPartySize,
		DefaultTimezone:     "UTC",
		TablesTTL:           cfg.Redis.CatalogTTL,
	}, log)

	queueRepo := queue.NewRepository(db.SQL)

	params := waittime.DefaultParams()
	params.MinutesPerPosition = cfg.WaitTime.MinutesPerPosition
	params.RetrainInterval = cfg.WaitTime.RetrainInterval
	params.HistoryWindow = cfg.WaitTime.HistoryWindow
	params.MinSamples = cfg.WaitTime.MinSamples
	estimator := waittime.NewEstimator(queueRepo, params, log)

	opts := []queue.Option{
		queue.WithConfig(&queue.ServiceConfig{
			NotifyDelay: cfg.Queue.NotifyDelay,
			LockTimeout: cfg.Queue.LockWaitTimeout,
		}),
		queue.WithRecommender(recommend.NewRecommender(recommend.Params{UtilizationGap: cfg.Queue.UtilizationGap})),
	}

	if cfg.Queue.DistributedLock && db.Redis != nil {
		opts = append(opts, queue.WithLocker(queue.ChainLocker{
			queue.NewLocalLocker(),
			queue.NewRedisLocker(db.Redis, cfg.Queue.LockLeaseTTL(), cfg.Queue.LockRetryInterval, log),
		}))
		log.Info("Distributed queue lock enabled",
			"lease_ttl", cfg.Queue.LockLeaseTTL().String(),
			"wait_timeout", cfg.Queue.LockWaitTimeout.String(),
		)
	}

	if cfg.Realtime.Enabled && db.Redis != nil {
		opts = append(opts, queue.WithBroadcaster(realtime.NewRedisBroadcaster(db.Redis, cfg.Realtime.ChannelPrefix)))
	}

	if cfg.Kafka.Enabled {
		kafkaConfig := notifications.DefaultKafkaProducerConfig()
		kafkaConfig.Brokers = cfg.Kafka.Brokers
		kafkaConfig.Topic = cfg.Kafka.Topic

		notifier, err := notifications.NewKafkaNotifier(kafkaConfig, log)
		if err != nil {
			// the queue keeps working; customers just don't get messages
			log.Error("Failed to initialize Kafka notifier, continuing without notifications", "error", err.Error())
		} else {
			r.notifier = notifier
			opts = append(opts, queue.WithNotifier(notifier))
		}
	}

	r.queueService = queue.NewService(queueRepo, r.outletService, estimator, log, opts...)

	jobs, err := queue.NewJobProcessor(r.queueService, r.outletService, &queue.JobConfig{
		EndOfDayTime: cfg.Queue.EndOfDayTime,
		CheckPeriod:  cfg.Queue.EndOfDayCheckPeriod,
	}, log)
	if err != nil {
		return nil, err
	}
	r.jobs = jobs

	return r, nil
}

// Start launches the background jobs
func (r *Router) Start(ctx context.Context) {
	r.jobs.Start(ctx)
}

// Shutdown stops jobs, drains pending notifications and closes the producer
func (r *Router) Shutdown() {
	r.jobs.Stop()
	r.queueService.Wait()
	if r.notifier != nil {
		if err := r.notifier.Close(); err != nil {
			r.logger.Error("Error closing Kafka notifier", "error", err.Error())
		}
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	auth := middleware.JWTAuth(r.config.JWT.Secret)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		outlets.SetupOutletRoutes(api, outlets.NewController(r.outletService), auth)
		queue.SetupQueueRoutes(api, queue.NewController(r.queueService), auth)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "walkin-queue",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "walkin-queue",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		status := gin.H{
			"status":        "operational",
			"api_version":   r.config.APIVersion,
			"timestamp":     time.Now(),
			"jobs":          r.jobs.GetJobStatus(),
			"notifications": r.notifier != nil,
		}
		if r.notifier != nil {
			if err := r.notifier.HealthCheck(c.Request.Context()); err != nil {
				status["notifications_error"] = err.Error()
			}
		}
		c.JSON(http.StatusOK, status)
	})

	engine.GET("/metrics", metrics.Handler())
}
