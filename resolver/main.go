package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chainworks-labs/ipmeta/internal/access"
	"github.com/chainworks-labs/ipmeta/internal/directory"
	"github.com/chainworks-labs/ipmeta/internal/docstore"
	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/metadata"
	"github.com/chainworks-labs/ipmeta/internal/platform/auth"
	"github.com/chainworks-labs/ipmeta/internal/platform/env"
	"github.com/chainworks-labs/ipmeta/internal/platform/httpserver"
	"github.com/chainworks-labs/ipmeta/internal/platform/objectstore"
	"github.com/chainworks-labs/ipmeta/internal/platform/postgres"
	"github.com/chainworks-labs/ipmeta/internal/repo"
	"github.com/chainworks-labs/ipmeta/internal/repo/memory"
	repopg "github.com/chainworks-labs/ipmeta/internal/repo/postgres"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("IPMETA_RESOLVER_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("IPMETA_RESOLVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	resource, err := domain.ParseAddress(env.String("IPMETA_RESOLVER_RESOURCE", "0x0000000000000000000000000000000000000001"))
	if err != nil {
		logger.Error("invalid resolver resource address", "error", err)
		os.Exit(2)
	}

	storageMode := strings.ToLower(strings.TrimSpace(env.String("IPMETA_STORAGE_MODE", "postgres")))

	var (
		metadataRepo   repo.MetadataRepository
		permissionRepo repo.PermissionRepository
		registrations  repo.RegistrationRepository
		auditAppender  repo.AuditEventAppender
		checks         []httpserver.ReadinessCheck
	)

	switch storageMode {
	case "postgres":
		dbCfg, err := postgres.ConfigFromEnv()
		if err != nil {
			logger.Error("invalid database config", "error", err)
			os.Exit(2)
		}
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			logger.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		metadataRepo = repopg.NewMetadataStore(db)
		permissionRepo = repopg.NewPermissionStore(db)
		registrations = repopg.NewRegistrationStore(db)
		auditAppender = repopg.NewAuditAppender(db)
		checks = append(checks, httpserver.ReadinessCheck{
			Name:  "postgres",
			Check: auth.WithTimeout(750*time.Millisecond, db.PingContext),
		})
	case "memory":
		metadataRepo = memory.NewMetadataStore()
		permissionRepo = memory.NewPermissionStore()
		registrations = memory.NewRegistrationStore()
		auditAppender = memory.NewAuditAppender()
	default:
		logger.Error("IPMETA_STORAGE_MODE must be postgres or memory", "mode", storageMode)
		os.Exit(2)
	}

	controller := access.NewController(permissionRepo)
	registry := directory.NewRegistry(registrations)
	store := metadata.NewStore(metadataRepo, registry, controller, resource)
	if store == nil {
		logger.Error("metadata store init failed")
		os.Exit(2)
	}
	synth := metadata.NewSynthesizer(store)

	if grantsPath := strings.TrimSpace(env.String("IPMETA_GRANTS_FILE", "")); grantsPath != "" {
		raw, err := os.ReadFile(grantsPath)
		if err != nil {
			logger.Error("read grants file", "path", grantsPath, "error", err)
			os.Exit(2)
		}
		spec, err := access.ParseGrantSpec(raw)
		if err != nil {
			logger.Error("parse grants file", "path", grantsPath, "error", err)
			os.Exit(2)
		}
		if err := access.ApplyGrantSpec(ctx, controller, spec); err != nil {
			logger.Error("apply grants file", "path", grantsPath, "error", err)
			os.Exit(2)
		}
		logger.Info("seeded permission grants", "path", grantsPath, "grants", len(spec.Grants))
	}

	var docs *docstore.Store
	archiveEnabled, err := env.Bool("IPMETA_DOCSTORE_ENABLED", false)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	if archiveEnabled {
		storeCfg, err := objectstore.ConfigFromEnv()
		if err != nil {
			logger.Error("invalid object store config", "error", err)
			os.Exit(2)
		}
		client, err := objectstore.NewMinIOClient(storeCfg)
		if err != nil {
			logger.Error("object store client init failed", "error", err)
			os.Exit(2)
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = objectstore.EnsureBucket(startupCtx, client, storeCfg)
		cancel()
		if err != nil {
			logger.Error("object store unavailable", "error", err)
			os.Exit(1)
		}
		docs, err = docstore.NewStore(client, storeCfg.BucketDocuments)
		if err != nil {
			logger.Error("document archive init failed", "error", err)
			os.Exit(2)
		}
		checks = append(checks, httpserver.ReadinessCheck{
			Name: "minio",
			Check: auth.WithTimeout(750*time.Millisecond, func(ctx context.Context) error {
				return objectstore.CheckBucket(ctx, client, storeCfg)
			}),
		})
	}

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(2)
	}
	var authenticator auth.Authenticator
	var authorizer auth.AuthorizeFunc
	switch authCfg.Mode {
	case auth.ModeOIDC:
		bearer, err := auth.NewBearerAuthenticator(ctx, authCfg)
		if err != nil {
			logger.Error("oidc init failed", "error", err)
			os.Exit(1)
		}
		authenticator = bearer
		authorizer = auth.MethodRoleAuthorizer()
	case auth.ModeDev:
		authenticator = auth.NewDevAuthenticator(authCfg)
		authorizer = auth.MethodRoleAuthorizer()
	case auth.ModeDisabled:
		authenticator = auth.AnonymousAuthenticator{}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("resolver"))
	mux.HandleFunc("/readyz", httpserver.ReadyzWithChecks("resolver", checks...))

	svc := newResolverService(store, synth, registry, controller, docs, auditAppender)
	api := newResolverAPI(logger, svc, resource)
	api.register(mux)

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		Authorize:     authorizer,
		Audit: func(ctx context.Context, event auth.DenyEvent) error {
			auditCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
			defer cancel()
			return auth.DenyAuditFunc(auditAppender, "resolver")(auditCtx, event)
		},
		SkipPrefixes: []string{"/healthz", "/readyz"},
	}.Wrap(mux)

	cfg := httpserver.Config{
		Service:         "resolver",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "resolver", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
