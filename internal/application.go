package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/rocketscienceinc/tictactoe-bot/internal/bot"
	"github.com/rocketscienceinc/tictactoe-bot/internal/config"
	"github.com/rocketscienceinc/tictactoe-bot/internal/msgcat"
	"github.com/rocketscienceinc/tictactoe-bot/internal/render"
	"github.com/rocketscienceinc/tictactoe-bot/internal/repository"
	"github.com/rocketscienceinc/tictactoe-bot/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-bot/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-bot/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-bot/transport/chatapi"
	"github.com/rocketscienceinc/tictactoe-bot/transport/rest"
	"github.com/rocketscienceinc/tictactoe-bot/transport/websocket"
)

const (
	cleanupInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

var ErrAddrNotFound = errors.New("redis address string is empty")

type server interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// RunApp - runs the application until ctx is cancelled or a server fails.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	catalog, err := msgcat.New(conf.Language, conf.MessagesDir)
	if err != nil {
		return fmt.Errorf("could not load messages: %w", err)
	}

	sessions, closeSessions, err := openSessions(ctx, log, conf)
	if err != nil {
		return err
	}
	defer closeSessions()

	rnd := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	controller := tictactoe.NewGameController(tictactoe.NewLockedRandomizer(rnd))
	games := usecase.NewGameManager(logger, sessions, controller)

	switch conf.BotMode {
	case config.BotModeWebhook:
		return runWebhook(ctx, log, logger, conf, games, render.New(catalog))
	default:
		log.Info("Starting websocket mode", "http_port", conf.HTTPPort, "socket_port", conf.SocketPort)

		return serve(ctx, log,
			rest.New(logger, conf.HTTPPort, conf.Webhook.Path, nil),
			websocket.New(logger, games, conf.SocketPort),
		)
	}
}

func runWebhook(ctx context.Context, log, logger *slog.Logger, conf *config.Config, games *usecase.GameManager, renderer *render.Renderer) error {
	client := chatapi.NewClient(conf.ChatAPI.BaseURL,
		chatapi.WithToken(conf.ChatAPI.Token),
		chatapi.WithTimeout(conf.ChatAPI.Timeout),
		chatapi.WithRetry(conf.ChatAPI.Retries),
	)

	if err := client.SetWebhook(ctx, conf.WebhookURL()); err != nil {
		return fmt.Errorf("could not register webhook: %w", err)
	}
	log.Info("Webhook registered", "url", conf.WebhookURL())

	defer func() {
		deleteCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := client.DeleteWebhook(deleteCtx); err != nil {
			log.Error("could not delete webhook", "error", err)
			return
		}
		log.Info("Webhook deleted")
	}()

	handler := bot.NewHandler(logger, games, renderer)
	webhook := rest.NewWebhookHandler(logger, handler, client)

	return serve(ctx, log, rest.New(logger, conf.HTTPPort, conf.Webhook.Path, webhook))
}

// openSessions builds the configured session store. The returned func releases it.
func openSessions(ctx context.Context, log *slog.Logger, conf *config.Config) (repository.SessionRepository, func(), error) {
	expiry := conf.Sessions.Expiry()

	if conf.Sessions.Backend != config.BackendRedis {
		sessions := repository.NewMemorySessionRepository(expiry)

		cleanupCtx, cancel := context.WithCancel(ctx)
		go runCleanup(cleanupCtx, log, sessions)

		return sessions, cancel, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if conf.Redis.Host == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	closeFn := func() {
		if err := redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}

	return repository.NewRedisSessionRepository(redisStorage.Connection, expiry), closeFn, nil
}

func runCleanup(ctx context.Context, log *slog.Logger, sessions *repository.MemorySessions) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.Cleanup(); removed > 0 {
				log.Debug("expired sessions removed", "count", removed, "left", sessions.Len())
			}
		}
	}
}

// serve runs every server until ctx is done or one of them fails, then shuts all of them down.
func serve(ctx context.Context, log *slog.Logger, servers ...server) error {
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			if err := srv.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-errCh:
		log.Error("server error", "error", runErr)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("could not shut down server", "error", err)
		}
	}

	return runErr
}
