// main wires the pool server: stores, ledger, services, audit pipeline,
// and the HTTP surface. Business logic lives in the internal services.
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

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"tandapool/internal/asset"
	"tandapool/internal/audit"
	auditkafka "tandapool/internal/audit/kafka"
	"tandapool/internal/credit"
	credithandler "tandapool/internal/credit/handler"
	creditmetrics "tandapool/internal/credit/metrics"
	grouphandler "tandapool/internal/group/handler"
	groupmetrics "tandapool/internal/group/metrics"
	"tandapool/internal/group/ports"
	groupservice "tandapool/internal/group/service"
	groupmemory "tandapool/internal/group/store/memory"
	grouppostgres "tandapool/internal/group/store/postgres"
	jwttoken "tandapool/internal/jwt_token"
	"tandapool/internal/platform/config"
	"tandapool/internal/platform/httpserver"
	"tandapool/internal/platform/logger"
	platformredis "tandapool/internal/platform/redis"
	registryhandler "tandapool/internal/registry/handler"
	"tandapool/internal/registry/locks"
	registryports "tandapool/internal/registry/ports"
	registryservice "tandapool/internal/registry/service"
	registrymemory "tandapool/internal/registry/store/memory"
	registrypostgres "tandapool/internal/registry/store/postgres"
	httptransport "tandapool/internal/transport/http"
	id "tandapool/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: PostgreSQL when configured, in-process otherwise.
	var (
		groupStore    ports.GroupStore
		registryStore registryports.Store
		ledger        ports.Ledger
		health        func() error
	)
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		for _, schema := range []string{grouppostgres.Schema, registrypostgres.Schema} {
			if _, err := db.ExecContext(ctx, schema); err != nil {
				log.Error("apply schema", "error", err)
				os.Exit(1)
			}
		}
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Error("open pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, asset.Schema); err != nil {
			log.Error("apply ledger schema", "error", err)
			os.Exit(1)
		}
		groupStore = grouppostgres.New(db)
		registryStore = registrypostgres.New(db)
		ledger = asset.NewPostgresLedger(pool)
		health = func() error { return db.Ping() }
	} else {
		log.Warn("POSTGRES_URL not set, using in-process stores")
		groupStore = groupmemory.New()
		registryStore = registrymemory.New()
		ledger = asset.NewInMemoryLedger()
	}

	// Remit lock: redis when configured, in-process otherwise.
	var remitLock registryports.RemitLock
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		remitLock = locks.NewRedis(redisClient.Client)
	} else {
		log.Warn("REDIS_URL not set, remit lock is process-local")
		remitLock = locks.NewMemory()
	}

	eg, ctx := errgroup.WithContext(ctx)

	// Audit: kafka when configured, otherwise an async in-process trail.
	var publisher ports.AuditPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := auditkafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		log.Warn("KAFKA_BROKERS not set, audit trail stays in process")
		async, inbox := audit.NewAsyncPublisher(1024)
		worker := audit.NewWorker(audit.NewInMemoryStore(), inbox)
		eg.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		publisher = async
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "tandapool", "tandapool")
	registryAccount := id.AccountID(cfg.Registry.Account)
	creditFund := id.AccountID(cfg.Registry.CreditFund)
	authorizer := registryservice.NewAuthorizer(registryStore)

	groupMetrics := groupmetrics.New()
	groupSvc, err := groupservice.New(groupStore, ledger,
		groupservice.WithLogger(log),
		groupservice.WithAuditPublisher(publisher),
		groupservice.WithMetrics(groupMetrics),
		groupservice.WithAuthorizer(authorizer),
		groupservice.WithRegistryAccount(registryAccount),
		groupservice.WithCreditRecipient(creditFund),
	)
	if err != nil {
		log.Error("build group service", "error", err)
		os.Exit(1)
	}

	creditSvc, err := credit.New(groupSvc, ledger, creditFund,
		credit.WithLogger(log),
		credit.WithAuditPublisher(publisher),
		credit.WithMetrics(creditmetrics.New()),
		credit.WithAuthorizer(authorizer),
		credit.WithRegistryAccount(registryAccount),
	)
	if err != nil {
		log.Error("build credit service", "error", err)
		os.Exit(1)
	}

	registrySvc, err := registryservice.New(registryStore, groupSvc, remitLock,
		registryservice.WithLogger(log),
		registryservice.WithAuditPublisher(publisher),
		registryservice.WithLoans(creditSvc),
		registryservice.WithTokenService(jwtService),
	)
	if err != nil {
		log.Error("build registry service", "error", err)
		os.Exit(1)
	}

	if cfg.Registry.BootstrapAdmin != "" {
		err := registrySvc.Bootstrap(ctx, id.AccountID(cfg.Registry.BootstrapAdmin), cfg.Registry.BootstrapSecret)
		switch {
		case err == nil:
			log.Info("bootstrapped first administrator", "account", cfg.Registry.BootstrapAdmin)
		case errors.Is(err, context.Canceled):
			return
		default:
			// Already bootstrapped is fine on restart.
			log.Info("bootstrap skipped", "reason", err)
		}
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		JWT:      jwtService,
		Group:    grouphandler.New(groupSvc, log),
		Registry: registryhandler.New(registrySvc, log),
		Credit:   credithandler.New(creditSvc, log),
		Health:   health,
	})

	srv := httpserver.New(cfg.Addr, router)
	eg.Go(func() error {
		log.Info("starting tandapool server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
