package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"registre/internal/access"
	"registre/internal/access/adapters"
	courrierhandler "registre/internal/courrier/handler"
	"registre/internal/courrier/metrics"
	courrierservice "registre/internal/courrier/service"
	courrierstore "registre/internal/courrier/store"
	"registre/internal/identity"
	identityhandler "registre/internal/identity/handler"
	jwttoken "registre/internal/jwt_token"
	"registre/internal/notification"
	"registre/internal/platform/config"
	"registre/internal/platform/httpserver"
	"registre/internal/platform/logger"
	"registre/internal/platform/redis"
	"registre/internal/transfer"
	httptransport "registre/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services; storage backends are selected from config
// so the same binary runs in-memory for development and on postgres/redis in
// deployment.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage backends.
	var (
		records   courrierstore.Store
		transfers transfer.Store
		db        *sql.DB
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := courrierstore.NewPostgres(db)
		pgTransfers := transfer.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("failed to migrate courrier schema", "error", err)
			os.Exit(1)
		}
		if err := pgTransfers.EnsureSchema(ctx); err != nil {
			log.Error("failed to migrate transfer schema", "error", err)
			os.Exit(1)
		}
		records = pg
		transfers = pgTransfers
		log.Info("using postgres stores")
	} else {
		records = courrierstore.NewInMemory()
		transfers = transfer.NewInMemory()
		log.Info("using in-memory stores")
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	var notices notification.Store
	if redisClient != nil {
		defer redisClient.Close()
		notices = notification.NewRedisStore(redisClient.Client)
		log.Info("using redis notification feed")
	} else {
		notices = notification.NewInMemoryStore()
	}

	// Identity: provisioned directory plus the prototype token flow.
	users := identity.NewInMemoryUserStore()
	seeded, err := identity.SeedDirectory(ctx, users)
	if err != nil {
		log.Error("failed to seed user directory", "error", err)
		os.Exit(1)
	}
	log.Info("user directory provisioned", "users", len(seeded))

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "registre", 12*time.Hour)
	identitySvc := identity.NewService(users, tokens, identity.WithLogger(log))

	// Notification emitter, optionally mirrored to Kafka.
	emitterOpts := []notification.EmitterOption{notification.WithLogger(log)}
	var mirror chan notification.Notification
	if len(cfg.KafkaBrokers) > 0 {
		mirror = make(chan notification.Notification, 256)
		emitterOpts = append(emitterOpts, notification.WithMirror(mirror))
	}
	emitter := notification.NewEmitter(notices, emitterOpts...)

	// Core workflow.
	grants := access.NewInMemoryGrantStore()
	engine := access.NewEngine(grants, users, adapters.NewLedgerAdapter(transfers))
	ledger := transfer.NewLedger(transfers)
	workflow := courrierservice.NewWorkflow(records, identitySvc, engine, ledger, emitter,
		courrierservice.WithLogger(log),
		courrierservice.WithMetrics(metrics.New()),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Courrier:      courrierhandler.New(workflow, log),
		Identity:      identityhandler.New(identitySvc, log),
		Notifications: notification.NewHandler(notices, log),
		Verifier:      workflow,
		JWTValidator:  jwttoken.NewAdapter(tokens),
		Logger:        log,
		Health: func(ctx context.Context) error {
			if db != nil {
				if err := db.PingContext(ctx); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(ctx)
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting registre", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if mirror != nil {
		g.Go(func() error {
			worker, err := notification.NewKafkaMirror(cfg.KafkaBrokers, cfg.KafkaTopic, mirror, log)
			if err != nil {
				return err
			}
			log.Info("notification mirror started", "topic", cfg.KafkaTopic)
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
