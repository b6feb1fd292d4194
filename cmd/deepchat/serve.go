package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/deepchat-ai/deepchat/internal/accounts"
	"github.com/deepchat-ai/deepchat/internal/chat"
	"github.com/deepchat-ai/deepchat/internal/config"
	"github.com/deepchat-ai/deepchat/internal/conversation"
	"github.com/deepchat-ai/deepchat/internal/conversation/flow"
	"github.com/deepchat-ai/deepchat/internal/db"
	dbsqlc "github.com/deepchat-ai/deepchat/internal/db/sqlc"
	emailpkg "github.com/deepchat-ai/deepchat/internal/email"
	emailgeneric "github.com/deepchat-ai/deepchat/internal/email/adapters/generic"
	emailmailgun "github.com/deepchat-ai/deepchat/internal/email/adapters/mailgun"
	"github.com/deepchat-ai/deepchat/internal/handlers"
	"github.com/deepchat-ai/deepchat/internal/llm"
	"github.com/deepchat-ai/deepchat/internal/logger"
	"github.com/deepchat-ai/deepchat/internal/models"
	"github.com/deepchat-ai/deepchat/internal/server"
	"github.com/deepchat-ai/deepchat/internal/verification"
	"github.com/deepchat-ai/deepchat/internal/version"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideDBQueries,
			provideCatalog,
			provideLLMClient,
			provideGate,
			provideEmailRegistry,
			provideMailer,
			provideAccountService,
			provideVerificationService,
			provideConversationService,
			provideChatResolver,
			provideJanitor,
			provideServerHandler(handlers.NewHealthHandler),
			provideServerHandler(handlers.NewAuthHandler),
			provideServerHandler(handlers.NewUserHandler),
			provideServerHandler(handlers.NewConversationHandler),
			provideServerHandler(handlers.NewChatHandler),
			provideServerHandler(handlers.NewSwaggerHandler),
			provideServer,
		),
		fx.Invoke(
			applyMigrations,
			startCatalogWatcher,
			startJanitor,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	return loadConfig()
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideDBQueries(conn *pgxpool.Pool) *dbsqlc.Queries { return dbsqlc.New(conn) }

func provideCatalog(log *slog.Logger, cfg config.Config) (*models.Catalog, error) {
	catalog, err := models.LoadCatalog(log, cfg.AI.ModelsFile, cfg.AI.DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	return catalog, nil
}

func provideLLMClient(log *slog.Logger, cfg config.Config) *llm.Client {
	if cfg.AI.APIKey == "" {
		log.Warn("ai api key is empty, upstream calls will be rejected")
	}
	return llm.NewClient(log, llm.Config{
		BaseURL:  cfg.AI.BaseURL,
		APIKey:   cfg.AI.APIKey,
		AppTitle: cfg.AI.AppTitle,
		Referer:  cfg.AI.Referer,
		Timeout:  cfg.AI.RequestTimeout(),
	})
}

func provideGate(catalog *models.Catalog) chat.Gate { return chat.NewGate(catalog) }

func provideEmailRegistry(log *slog.Logger) *emailpkg.Registry {
	return emailpkg.NewRegistry(emailgeneric.New(log), emailmailgun.New(log))
}

func provideMailer(log *slog.Logger, cfg config.Config, registry *emailpkg.Registry) (*emailpkg.Mailer, error) {
	return emailpkg.NewMailer(log, registry, emailpkg.MailerConfig{
		Provider: cfg.Email.Provider,
		From:     cfg.Email.From,
		Settings: cfg.Email.ProviderConfig(),
		CodeTTL:  cfg.Verification.CodeLifetime(),
	})
}

func provideAccountService(log *slog.Logger, queries *dbsqlc.Queries) *accounts.Service {
	return accounts.NewService(log, queries)
}

func provideVerificationService(log *slog.Logger, cfg config.Config, queries *dbsqlc.Queries, mailer *emailpkg.Mailer) *verification.Service {
	return verification.NewService(log, queries, mailer, verification.Config{
		CodeTTL:     cfg.Verification.CodeLifetime(),
		ResendEvery: cfg.Verification.ResendEvery(),
		MaxAttempts: cfg.Verification.MaxAttempts,
	})
}

func provideConversationService(log *slog.Logger, queries *dbsqlc.Queries) *conversation.Service {
	return conversation.NewService(log, queries)
}

func provideChatResolver(log *slog.Logger, cfg config.Config, store *conversation.Service, catalog *models.Catalog, client *llm.Client, gate chat.Gate) *flow.Resolver {
	return flow.NewResolver(log, store, catalog, client, client, gate, flow.Config{
		HistoryLimit: cfg.AI.HistoryLimit,
		Classifier:   chat.NewClassifier(cfg.Chat.ReasoningPaths, cfg.Chat.ContentPaths),
	})
}

func provideJanitor(log *slog.Logger, cfg config.Config, codes *verification.Service, accountService *accounts.Service) (*verification.Janitor, error) {
	return verification.NewJanitor(log, cfg.Verification.CleanupSchedule, map[string]verification.PurgeFunc{
		"verification_codes": codes.PurgeExpired,
		"reset_tokens":       accountService.PurgeExpiredResetTokens,
	})
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, server.Options{
		Addr:         params.Config.Server.Addr,
		JWTSecret:    params.Config.Auth.JWTSecret,
		AllowOrigins: params.Config.Server.AllowOrigins,
	}, params.ServerHandlers...)
}

func applyMigrations(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) {
	lc.Append(fx.Hook{OnStart: func(ctx context.Context) error {
		m, err := db.NewMigrator(log, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("open migrator: %w", err)
		}
		defer m.Close()
		return m.Up()
	}})
}

func startCatalogWatcher(lc fx.Lifecycle, log *slog.Logger, catalog *models.Catalog) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := catalog.Watch(ctx); err != nil {
					log.Warn("models watcher stopped", slog.Any("error", err))
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error { cancel(); return nil },
	})
}

func startJanitor(lc fx.Lifecycle, janitor *verification.Janitor) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { janitor.Start(); return nil },
		OnStop:  func(ctx context.Context) error { janitor.Stop(ctx); return nil },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	fmt.Printf("Starting DeepChat %s\n", version.GetInfo())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Auth.JWTSecret == "" {
				return errors.New("jwt secret is required: set auth.jwt_secret or " + config.EnvJWTSecret)
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
