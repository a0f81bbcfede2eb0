package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	archiveexport "watchdesk/internal/archive/export"
	archivehandler "watchdesk/internal/archive/handler"
	archivemetrics "watchdesk/internal/archive/metrics"
	archiveservice "watchdesk/internal/archive/service"
	archivestore "watchdesk/internal/archive/store"
	authhandler "watchdesk/internal/auth/handler"
	authservice "watchdesk/internal/auth/service"
	"watchdesk/internal/auth/store/revocation"
	"watchdesk/internal/auth/store/user"
	caseshandler "watchdesk/internal/cases/handler"
	casesmetrics "watchdesk/internal/cases/metrics"
	casesservice "watchdesk/internal/cases/service"
	casesstore "watchdesk/internal/cases/store"
	"watchdesk/internal/country"
	countryhandler "watchdesk/internal/country/handler"
	jwttoken "watchdesk/internal/jwt_token"
	"watchdesk/internal/platform/config"
	"watchdesk/internal/platform/metrics"
	"watchdesk/internal/platform/postgres"
	platformredis "watchdesk/internal/platform/redis"
	"watchdesk/internal/platform/tracing"
	ratelimitmetrics "watchdesk/internal/ratelimit/metrics"
	ratelimitmw "watchdesk/internal/ratelimit/middleware"
	ratelimitmodels "watchdesk/internal/ratelimit/models"
	ratelimitservice "watchdesk/internal/ratelimit/service"
	"watchdesk/internal/ratelimit/store/bucket"
	"watchdesk/internal/screening/cache"
	screeninghandler "watchdesk/internal/screening/handler"
	screeningmetrics "watchdesk/internal/screening/metrics"
	screeningservice "watchdesk/internal/screening/service"
	screeningstore "watchdesk/internal/screening/store"
	httptransport "watchdesk/internal/transport/http"
	"watchdesk/pkg/platform/audit"
	kafkastore "watchdesk/pkg/platform/audit/store/kafka"
	"watchdesk/pkg/secrets"
)

// app holds what run needs after wiring: the router, the background workers
// and the resources to release.
type app struct {
	router    chi.Router
	publisher *audit.Publisher
	purge     func(ctx context.Context)
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*app, error) {
	a := &app{}
	health := map[string]httptransport.HealthCheck{}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	tp, err := tracing.New(ctx, cfg.Tracing)
	if err != nil {
		return fail(err)
	}
	if tp != nil {
		a.closers = append(a.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn("tracer shutdown failed", "error", err)
			}
		})
		log.Info("exporting traces", "endpoint", cfg.Tracing.Endpoint, "sample_ratio", cfg.Tracing.SampleRatio)
	}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return fail(err)
		}
		health["postgres"] = db.PingContext
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		health["redis"] = redisClient.Health
	}

	// Audit events: Kafka when configured, otherwise the structured log.
	var sink audit.Store = logSink{logger: log}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := kafkastore.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, kafka.Close)
		if err := kafka.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		health["kafka"] = kafka.Ping
		sink = kafka
	}
	a.publisher = audit.NewPublisher(sink, audit.WithLogger(log), audit.WithMetrics(audit.NewMetrics()))

	// Country directory.
	directory := country.Default()
	if cfg.Countries.TablePath != "" {
		directory, err = country.LoadFile(cfg.Countries.TablePath)
		if err != nil {
			return fail(err)
		}
	}

	// Entity search.
	source, err := entitySource(ctx, cfg, db, log, a)
	if err != nil {
		return fail(err)
	}
	screenMetrics := screeningmetrics.New()
	switch cfg.Search.Cache {
	case "memory":
		source = cache.NewCachedSource(source, cache.NewMemory(cfg.Search.CacheTTL), log, screenMetrics)
	case "redis":
		if redisClient == nil {
			return fail(fmt.Errorf("SEARCH_CACHE=redis requires REDIS_URL"))
		}
		source = cache.NewCachedSource(source, cache.NewRedis(redisClient.Client, cfg.Search.CacheTTL), log, screenMetrics)
	}
	matcher := screeningservice.New(source, directory,
		screeningservice.WithLogger(log),
		screeningservice.WithMetrics(screenMetrics),
		screeningservice.WithResultCap(cfg.Search.ResultCap),
	)

	// Users and tokens.
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	var (
		users   authservice.UserStore      = user.New()
		revoked authservice.RevocationList = revocation.NewInMemoryTRL()
	)
	if db != nil {
		users = user.NewPostgres(db)
		pgTRL := revocation.NewPostgresTRL(db)
		revoked = pgTRL
		a.purge = purgeLoop(pgTRL, log)
	}
	if redisClient != nil {
		revoked = revocation.NewRedisTRL(redisClient.Client)
		a.purge = nil
	}
	auth := authservice.New(users, revoked, tokens, authservice.Config{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	},
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(a.publisher),
	)
	if err := bootstrapManager(ctx, cfg, auth, log); err != nil {
		return fail(err)
	}

	// History archive.
	var histories archiveservice.Store = archivestore.NewInMemory()
	if db != nil {
		histories = archivestore.NewPostgres(db)
	}
	archiveOpts := []archiveservice.Option{
		archiveservice.WithLogger(log),
		archiveservice.WithMetrics(archivemetrics.New()),
		archiveservice.WithAuditPublisher(a.publisher),
	}
	if cfg.Archive.Bucket != "" {
		exporter, err := archiveexport.NewS3(ctx, archiveexport.Config{
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
			Endpoint:  cfg.Archive.Endpoint,
			PathStyle: cfg.Archive.PathStyle,
			Prefix:    cfg.Archive.Prefix,
		})
		if err != nil {
			return fail(err)
		}
		archiveOpts = append(archiveOpts, archiveservice.WithExporter(exporter))
	}
	archive := archiveservice.New(histories, archiveOpts...)

	// Cases.
	var (
		caseStore casesservice.Store    = casesstore.NewInMemory()
		caseTx    casesservice.TxRunner = casesservice.NewShardedTx(casesservice.DefaultTxTimeout)
	)
	if db != nil {
		caseStore = casesstore.NewPostgres(db)
		caseTx = newCasesPostgresTx(db)
	}
	cases := casesservice.New(caseStore, auth, archive,
		casesservice.WithLogger(log),
		casesservice.WithMetrics(casesmetrics.New()),
		casesservice.WithAuditPublisher(a.publisher),
		casesservice.WithTxRunner(caseTx),
		casesservice.WithEntityLookup(matcher),
	)

	// Rate limiting.
	var buckets ratelimitservice.BucketStore = bucket.NewInMemoryBucketStore()
	if redisClient != nil {
		buckets = bucket.NewRedisBucketStore(redisClient.Client)
	}
	limiter := ratelimitservice.New(buckets, ratelimitservice.Config{
		Search: ratelimitmodels.Policy{Limit: cfg.Search.RateLimit, Window: cfg.Search.RateWindow},
		Login:  ratelimitmodels.Policy{Limit: cfg.LoginRateLimit, Window: cfg.LoginRateWindow},
	},
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithMetrics(ratelimitmetrics.New()),
		ratelimitservice.WithAuditPublisher(a.publisher),
	)

	a.router = httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Metrics:     metrics.New(),
		Validator:   jwttoken.NewJWTServiceAdapter(tokens),
		Revocations: auth,
		RateLimit:   ratelimitmw.New(limiter, log),
		Auth:        authhandler.New(auth, log),
		Search:      screeninghandler.New(matcher, directory, log),
		Countries:   countryhandler.New(directory),
		Cases:       caseshandler.New(cases, log),
		History:     archivehandler.New(archive, log),
		Health:      health,
	})
	return a, nil
}

// entitySource opens the configured sanctioned-entity source.
func entitySource(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger, a *app) (screeningservice.Source, error) {
	switch cfg.Entities.Kind {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("ENTITY_SOURCE=postgres requires DATABASE_URL")
		}
		return screeningstore.NewPostgres(db), nil
	case "sqlite":
		store, err := screeningstore.OpenSQLite(ctx, cfg.Entities.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	case "memory", "":
		if cfg.Entities.DataPath == "" {
			log.Warn("no ENTITY_DATA_PATH set, entity search will return nothing")
			return screeningstore.NewInMemory(nil), nil
		}
		f, err := os.Open(cfg.Entities.DataPath)
		if err != nil {
			return nil, fmt.Errorf("open entity data: %w", err)
		}
		defer f.Close()
		store, stats, err := screeningstore.LoadInMemory(f, screeningstore.LoadOptions{PersonOnly: true})
		if err != nil {
			return nil, err
		}
		log.Info("loaded entity data", "path", cfg.Entities.DataPath, "loaded", stats.Loaded, "skipped", stats.Skipped)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown ENTITY_SOURCE %q", cfg.Entities.Kind)
	}
}

func bootstrapManager(ctx context.Context, cfg config.Server, auth *authservice.Service, log *slog.Logger) error {
	if cfg.BootstrapManagerEmail == "" {
		return nil
	}
	password := cfg.BootstrapManagerPassword
	generated := password == ""
	if generated {
		var err error
		if password, err = secrets.Generate(); err != nil {
			return err
		}
	}
	created, err := auth.EnsureManager(ctx, cfg.BootstrapManagerEmail, password)
	if err != nil {
		return fmt.Errorf("bootstrap manager: %w", err)
	}
	if created == nil {
		return nil
	}
	if generated {
		// Printed once so the operator can sign in; never logged.
		fmt.Fprintf(os.Stderr, "bootstrap manager %s created with password %s\n", created.Email, password)
	}
	log.Info("bootstrap manager created", "user_id", created.ID)
	return nil
}

func purgeLoop(trl *revocation.PostgresTRL, log *slog.Logger) func(ctx context.Context) {
	return func(ctx context.Context) {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := trl.Purge(ctx)
				if err != nil {
					log.WarnContext(ctx, "token revocation purge failed", "error", err)
					continue
				}
				log.DebugContext(ctx, "purged expired token revocations", "count", n)
			}
		}
	}
}

// logSink writes audit events to the structured log when no broker is
// configured.
type logSink struct {
	logger *slog.Logger
}

func (s logSink) Append(ctx context.Context, event audit.Event) error {
	s.logger.InfoContext(ctx, string(event.Action),
		"log_type", "audit",
		"category", event.Category,
		"actor_id", event.ActorID,
		"entity_id", event.EntityID,
		"officer_id", event.OfficerID,
		"status", event.Status,
		"reason", event.Reason,
		"request_id", event.RequestID,
	)
	return nil
}
