package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aura-chat/chat-service/config"
	"github.com/aura-chat/chat-service/internal/feed"
	"github.com/aura-chat/chat-service/internal/postgres"
	"github.com/aura-chat/chat-service/internal/security"
	"github.com/aura-chat/chat-service/internal/service"
	httpx "github.com/aura-chat/chat-service/internal/transport/http"
	"github.com/aura-chat/chat-service/internal/transport/ws"
	"github.com/aura-chat/chat-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- redis change feed ---
	changeFeed, err := feed.NewRedisFeed(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer changeFeed.Close()

	// --- repos ---
	roomRepo := postgres.NewRoomRepository(db.Pool)
	partRepo := postgres.NewParticipantRepository(db.Pool)
	msgRepo := postgres.NewMessageRepository(db.Pool)
	profileRepo := postgres.NewProfileRepository(db.Pool)
	letterRepo := postgres.NewLetterRepository(db.Pool)

	// --- services ---
	signer := security.NewTokenSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLDuration())
	memberSvc := service.NewMemberService(roomRepo, partRepo, changeFeed, cfg.Chat.GroupCapacity)
	roomSvc := service.NewRoomService(roomRepo, memberSvc, cfg.Chat.GroupCapacity, cfg.Chat.InviteTTLDuration())
	chatSvc := service.NewChatService(msgRepo, changeFeed, cfg.Chat.MaxMessageLength)
	profileSvc := service.NewProfileService(profileRepo, signer)
	matchSvc := service.NewMatchService(profileRepo, roomRepo, memberSvc, changeFeed)
	letterSvc := service.NewLetterService(letterRepo, changeFeed)

	// --- WS ---
	wsServer := ws.NewServer(chatSvc, memberSvc, roomSvc, changeFeed, signer, cfg.Chat.TypingDebounceDuration())

	// --- HTTP ---
	handler := httpx.NewHandler(profileSvc, roomSvc, memberSvc, chatSvc, matchSvc, letterSvc)
	router := httpx.NewRouter(handler, signer, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- фоновая уборка просроченных комнат ---
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := roomSvc.ExpireStale(sweepCtx); err != nil {
					slog.Warn("expire stale rooms failed", "err", err)
				} else if n > 0 {
					slog.Info("expired stale rooms", "count", n)
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 1)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
