package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	accounthandler "vigil/internal/account/handler"
	"vigil/internal/account/models"
	accountservice "vigil/internal/account/service"
	accountstore "vigil/internal/account/store"
	"vigil/internal/approval"
	"vigil/internal/auth"
	authhandler "vigil/internal/auth/handler"
	"vigil/internal/challenge"
	"vigil/internal/credentials"
	"vigil/internal/dispatch"
	"vigil/internal/evidence"
	evidencehandler "vigil/internal/evidence/handler"
	"vigil/internal/geo"
	"vigil/internal/notify"
	"vigil/internal/platform/config"
	"vigil/internal/platform/httpserver"
	"vigil/internal/platform/logger"
	"vigil/internal/platform/metrics"
	platformredis "vigil/internal/platform/redis"
	reporthandler "vigil/internal/report/handler"
	reportservice "vigil/internal/report/service"
	reportstore "vigil/internal/report/store"
	"vigil/internal/token"
	httptransport "vigil/internal/transport/http"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Persistence: Postgres when configured, in-process stores otherwise.
	var (
		accounts  accountstore.Store
		reports   reportstore.Store
		decisions approval.Store
		geoIndex  geo.Index
		health    []httptransport.HealthCheck
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		accounts = accountstore.NewPostgres(db)
		reports = reportstore.NewPostgres(db)
		decisions = approval.NewPostgresStore(db)
		geoIndex = geo.NewPostgresIndex(db)
		health = append(health, httptransport.HealthCheck{
			Name:  "postgres",
			Probe: db.PingContext,
		})
	} else {
		memAccounts := accountstore.NewInMemory()
		accounts = memAccounts
		reports = reportstore.NewInMemory()
		decisions = approval.NewInMemoryStore()
		geoIndex = geo.NewMemoryIndex(memAccounts)
	}

	// OTP store: Redis when configured, in-process with a sweep otherwise.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var otpStore challenge.Store
	var otpSweep *challenge.InMemoryStore
	if redisClient != nil {
		defer redisClient.Close()
		otpStore = challenge.NewRedisStore(redisClient.Client)
		health = append(health, httptransport.HealthCheck{
			Name:  "redis",
			Probe: redisClient.Health,
		})
	} else {
		mem := challenge.NewInMemoryStore()
		otpStore = mem
		otpSweep = mem
	}

	// Notifications: Kafka when configured, structured logs otherwise.
	var notifier notify.Notifier = notify.NewSlogNotifier(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier, err := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	tokens := token.NewService(cfg.JWTSigningKey, "vigil", cfg.TokenTTL)
	issuer := challenge.NewIssuer(otpStore, cfg.OTPTTL)
	gateway := auth.NewGateway(accounts, tokens, log)
	registry := accountservice.NewRegistry(accounts, issuer, notifier,
		approval.NewPublisher(decisions), m, log)
	resolver := dispatch.NewResolver(geoIndex, cfg.DispatchRadius)
	reportSvc := reportservice.NewService(reports, accounts, resolver, notifier, m, log)
	evidenceStore := evidence.NewInMemoryStore()

	if err := bootstrapAdmin(ctx, cfg.Admin, accounts, log); err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Options{
		Logger:  log,
		Metrics: m,
		JSON: []httptransport.Registrar{
			accounthandler.New(registry, gateway, log),
			authhandler.New(gateway, cfg.TokenTTL, log),
			reporthandler.New(reportSvc, gateway, log),
		},
		Raw: []httptransport.Registrar{
			evidencehandler.New(evidenceStore, gateway, log),
		},
		HealthChecks: health,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting vigil", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if otpSweep != nil {
		g.Go(func() error {
			err := otpSweep.StartCleanup(ctx, time.Minute)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// bootstrapAdmin seeds an approved admin account from config so approvals are
// possible on a fresh deployment. Idempotent: an existing account wins.
func bootstrapAdmin(ctx context.Context, cfg config.AdminBootstrap, accounts accountstore.Store, log *slog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}
	if _, err := accounts.FindByEmail(ctx, cfg.Email); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}

	hash, err := credentials.Hash(cfg.Password)
	if err != nil {
		return err
	}
	now := time.Now()
	admin := &models.Account{
		ID:           id.NewAccountID(),
		Name:         cfg.Name,
		Email:        models.NormalizeEmail(cfg.Email),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.StatusApproved,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := accounts.Create(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return err
	}
	log.Info("seeded admin account", "email", admin.Email)
	return nil
}
