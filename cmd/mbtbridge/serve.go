package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/neststoplabs/mbtbridge/internal/backend"
	"github.com/neststoplabs/mbtbridge/internal/badges"
	"github.com/neststoplabs/mbtbridge/internal/config"
	"github.com/neststoplabs/mbtbridge/internal/discord"
	"github.com/neststoplabs/mbtbridge/internal/github"
	"github.com/neststoplabs/mbtbridge/internal/handlers"
	"github.com/neststoplabs/mbtbridge/internal/logger"
	"github.com/neststoplabs/mbtbridge/internal/relay"
	"github.com/neststoplabs/mbtbridge/internal/route"
	"github.com/neststoplabs/mbtbridge/internal/server"
	"github.com/neststoplabs/mbtbridge/internal/version"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBackendClient,
			provideAllowList,
			route.NewClassifier,
			provideRelayBackend,
			relay.NewSynchronizer,
			relay.NewDispatcher,
			relay.NewPipeline,
			provideBadgeCatalog,
			provideIssueService,
			provideCommandSet,
			provideAdapter,
			provideDiscordControl,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideThreadsHandler),
			provideServerHandler(handlers.NewChannelsHandler),
			provideServerHandler(handlers.NewMessagesHandler),
			provideServerHandler(handlers.NewEmbedsHandler),
			provideServer,
		),
		fx.Invoke(
			startBadgeCatalog,
			startAdapter,
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
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideBackendClient(log *slog.Logger, cfg config.Config) *backend.Client {
	return backend.NewClient(log, cfg.Backend)
}

func provideAllowList(cfg config.Config) *route.AllowList {
	return route.NewAllowList(cfg.Discord.AllowedForumIDs)
}

func provideRelayBackend(client *backend.Client) relay.Backend { return client }

func provideBadgeCatalog(log *slog.Logger, client *backend.Client, cfg config.Config) *badges.Catalog {
	return badges.NewCatalog(log, client, cfg.Badges.RefreshCron)
}

func provideIssueService(log *slog.Logger, cfg config.Config) *github.IssueService {
	return github.NewIssueService(log, cfg.GitHub)
}

func provideCommandSet(log *slog.Logger, client *backend.Client, issues *github.IssueService, catalog *badges.Catalog, cfg config.Config) *discord.CommandSet {
	return discord.NewCommandSet(log, client, issues, catalog, cfg.Discord.AllowedUserIDs)
}

func provideAdapter(log *slog.Logger, cfg config.Config, pipeline *relay.Pipeline, commands *discord.CommandSet) (*discord.Adapter, error) {
	return discord.NewAdapter(log, cfg.Discord, pipeline, commands)
}

func provideDiscordControl(adapter *discord.Adapter) handlers.DiscordControl { return adapter }

func provideThreadsHandler(log *slog.Logger, control handlers.DiscordControl, cfg config.Config) *handlers.ThreadsHandler {
	return handlers.NewThreadsHandler(log, control, cfg.Discord.ForumChannelID)
}

func provideServer(log *slog.Logger, cfg config.Config, hs []server.Handler) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, cfg.Auth.JWTSecret, hs...)
}

func startBadgeCatalog(lc fx.Lifecycle, catalog *badges.Catalog) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return catalog.Start(ctx) },
		OnStop:  func(ctx context.Context) error { catalog.Stop(); return nil },
	})
}

func startAdapter(lc fx.Lifecycle, adapter *discord.Adapter) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return adapter.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return adapter.Stop() },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting mbtbridge %s\n", version.GetInfo())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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
