package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/avoqado/possync/config"
	internalredis "github.com/avoqado/possync/internal/redis"
	"github.com/avoqado/possync/internal/repositories/area"
	"github.com/avoqado/possync/internal/repositories/connectionstatus"
	"github.com/avoqado/possync/internal/repositories/order"
	"github.com/avoqado/possync/internal/repositories/payment"
	"github.com/avoqado/possync/internal/repositories/shift"
	"github.com/avoqado/possync/internal/repositories/staff"
	"github.com/avoqado/possync/internal/repositories/table"
	"github.com/avoqado/possync/internal/repositories/venue"
	"github.com/avoqado/possync/pkg/alerts"
	"github.com/avoqado/possync/pkg/broker"
	"github.com/avoqado/possync/pkg/database"
	"github.com/avoqado/possync/pkg/dispatcher"
	"github.com/avoqado/possync/pkg/heartbeat"
	"github.com/avoqado/possync/pkg/logging"
	"github.com/avoqado/possync/pkg/reconciler"
	"github.com/avoqado/possync/pkg/resolver"
	"github.com/avoqado/possync/pkg/routes/connections"
	"github.com/avoqado/possync/pkg/routes/dlq"
	"github.com/avoqado/possync/pkg/routes/health"
	"github.com/avoqado/possync/pkg/startup"
	"github.com/avoqado/possync/pkg/tracing"
	"github.com/avoqado/possync/pkg/tracing/exporters"
)

var version = "dev"

// dep adapts start/stop funcs to the startup dependency graph.
type dep struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dep) GetName() string                 { return d.name }
func (d *dep) DependsOn() []string             { return d.dependsOn }
func (d *dep) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dep) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

// redisPinger adapts the context-taking redis ping to the health checker.
type redisPinger struct {
	client *internalredis.Client
}

func (p *redisPinger) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return p.client.Ping(ctx)
}

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, flush, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TracingEnabled {
		var exporter sdktrace.SpanExporter
		switch cfg.TracingExporter {
		case "otlp":
			otlpCfg := exporters.DefaultOTLPConfig()
			otlpCfg.Endpoint = cfg.TracingEndpoint
			exporter, err = exporters.NewOTLPExporter(ctx, otlpCfg)
			if err != nil {
				logger.WithError(err).Error("Failed to create OTLP exporter")
				os.Exit(1)
			}
		default:
			exporter, err = exporters.NewConsoleExporter()
			if err != nil {
				logger.WithError(err).Error("Failed to create console exporter")
				os.Exit(1)
			}
		}
		provider := tracing.Init(cfg.AppName, exporter)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = provider.Shutdown(shutdownCtx)
		}()
	}

	var (
		db            database.DB
		redisClient   *internalredis.Client
		mirror        *internalredis.DeadLetterMirror
		alertProducer *alerts.Producer
		amqpClient    *broker.Client
		disp          *dispatcher.Dispatcher
		checker       *health.Checker
		e             *echo.Echo
		consumerStop  context.CancelFunc
	)

	s := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	s.AddDependency(&dep{
		name: "database",
		start: func(ctx context.Context) error {
			db, err = database.Connect(database.ConnectOptions{
				Driver:          cfg.DatabaseDriver,
				Host:            cfg.DatabaseHost,
				Port:            cfg.DatabasePort,
				UserName:        cfg.DatabaseUserName,
				Password:        cfg.DatabasePassword,
				Name:            cfg.DatabaseName,
				SSLMode:         cfg.DatabaseSSLMode,
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, logger)
			if err != nil {
				return err
			}
			ms := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return ms.Migrate(cfg.DatabaseName, db)
		},
		stop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	s.AddDependency(&dep{
		name: "redis",
		start: func(ctx context.Context) error {
			redisClient, err = internalredis.NewClient(internalredis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			if err != nil {
				return err
			}
			mirror = internalredis.NewDeadLetterMirror(redisClient, cfg.RedisDLQStream, logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			return redisClient.Close()
		},
	})

	s.AddDependency(&dep{
		name: "alerts",
		start: func(ctx context.Context) error {
			alertProducer = alerts.NewProducer(alerts.ParseConfig(cfg.KafkaBrokers, cfg.KafkaAlertTopic, cfg.KafkaAlertsEnabled), logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			return alertProducer.Close()
		},
	})

	s.AddDependency(&dep{
		name: "amqp",
		start: func(ctx context.Context) error {
			amqpClient, err = broker.Dial(broker.Config{
				Host:             cfg.AmqpHost,
				Port:             cfg.AmqpPort,
				User:             cfg.AmqpUser,
				Password:         cfg.AmqpPassword,
				VHost:            cfg.AmqpVHost,
				UseTLS:           cfg.AmqpUseTLS,
				Exchange:         cfg.AmqpExchange,
				CommandExchange:  cfg.AmqpCommandExchange,
				Queue:            cfg.AmqpQueue,
				BindingPattern:   cfg.AmqpBindingPattern,
				DeadLetterSuffix: cfg.AmqpDeadLetterSuffix,
			}, logger)
			return err
		},
		stop: func(ctx context.Context) error {
			amqpClient.Close()
			return nil
		},
	})

	s.AddDependency(&dep{
		name:      "dispatcher",
		dependsOn: []string{"database", "redis", "alerts", "amqp"},
		start: func(ctx context.Context) error {
			venueRepo := venue.NewRepository(db, logger)
			staffRepo := staff.NewRepository(db, logger)
			tableRepo := table.NewRepository(db, logger)
			areaRepo := area.NewRepository(db, logger)
			shiftRepo := shift.NewRepository(db, logger)
			orderRepo := order.NewRepository(db, logger)
			paymentRepo := payment.NewRepository(db, logger)
			statusRepo := connectionstatus.NewRepository(db, logger)

			staffResolver := resolver.NewStaffResolver(staffRepo, logger)
			areaResolver := resolver.NewAreaResolver(areaRepo, logger)
			tableResolver := resolver.NewTableResolver(tableRepo, areaResolver, logger)
			shiftResolver := resolver.NewShiftResolver(shiftRepo, staffResolver, logger)

			rec := reconciler.NewReconciler(db, venueRepo, orderRepo, paymentRepo, staffResolver, tableResolver, shiftResolver, logger)
			monitor := heartbeat.NewMonitor(venueRepo, statusRepo, amqpClient, alertProducer, logger)

			disp = dispatcher.New(cfg.ConsumerMaxDeliveries, mirror, logger)
			if err := dispatcher.RegisterDefaults(disp, dispatcher.Services{
				Venues:     venueRepo,
				Reconciler: rec,
				Staff:      staffResolver,
				Tables:     tableResolver,
				Areas:      areaResolver,
				Shifts:     shiftResolver,
				Monitor:    monitor,
			}); err != nil {
				return err
			}
			logger.Infof("Registered %d event handlers", len(disp.Registered()))
			return nil
		},
	})

	s.AddDependency(&dep{
		name:      "consumer",
		dependsOn: []string{"dispatcher"},
		start: func(ctx context.Context) error {
			deliveries, err := amqpClient.Consume(cfg.AppName, cfg.ConsumerPrefetch)
			if err != nil {
				return err
			}
			runCtx, stop := context.WithCancel(context.Background())
			consumerStop = stop
			go func() {
				if err := disp.Run(runCtx, deliveries); err != nil && runCtx.Err() == nil {
					logger.WithError(err).Error("Dispatcher stopped unexpectedly")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error {
			if consumerStop != nil {
				consumerStop()
			}
			return nil
		},
	})

	s.AddDependency(&dep{
		name:      "http",
		dependsOn: []string{"dispatcher", "consumer"},
		start: func(ctx context.Context) error {
			e = echo.New()
			e.HideBanner = true
			e.Use(echomiddleware.Recover())

			checker = health.NewChecker(db.Unsafe(), &redisPinger{client: redisClient}, amqpClient, version)
			checker.RegisterRoutes(e)

			api := e.Group("/api/v1")
			connections.Register(api, venue.NewRepository(db, logger), logger)
			dlq.Register(api, mirror, logger)
			e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

			go func() {
				if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
					logger.WithError(err).Info("HTTP server stopped")
				}
			}()
			checker.SetReady(true)
			return nil
		},
		stop: func(ctx context.Context) error {
			checker.SetReady(false)
			return e.Shutdown(ctx)
		},
	})

	if err := s.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	logger.Infof("%s %s is up on port %d", cfg.AppName, version, cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutdown signal received")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := s.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown incomplete")
	}
}
