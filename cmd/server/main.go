package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/Wyydra/ya-signal/internal/adapter/driven/clock"
	"github.com/Wyydra/ya-signal/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/ya-signal/internal/adapter/driven/persistence/memory"
	"github.com/Wyydra/ya-signal/internal/adapter/driven/persistence/sqlite"
	handler "github.com/Wyydra/ya-signal/internal/adapter/driving/http"
	"github.com/Wyydra/ya-signal/internal/config"
	"github.com/Wyydra/ya-signal/internal/core/port"
	"github.com/Wyydra/ya-signal/internal/core/service"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "ya-signal",
		Short:         "Signaling server for calls and chat rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			code := run(cfg)
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}
	serve.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	serve.Flags().String("addr", "", "listen address")
	serve.Flags().String("log-level", "", "log level (debug, info, warn, error)")
	serve.Flags().String("storage", "", "message storage driver (memory or sqlite)")
	_ = v.BindPFlag("http.addr", serve.Flags().Lookup("addr"))
	_ = v.BindPFlag("log.level", serve.Flags().Lookup("log-level"))
	_ = v.BindPFlag("storage.driver", serve.Flags().Lookup("storage"))

	root.AddCommand(serve)
	return root
}

func setupLogger(cfg config.LogConfig) {
	level, _ := zerolog.ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
		return
	}
	w := zerolog.ConsoleWriter{Out: os.Stdout}
	log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger()
}

func openStore(cfg config.StorageConfig) (port.MessageStore, func(context.Context) error, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewMessageRepository(db), func(context.Context) error { return sqlite.Close(db) }, nil
	default:
		return memory.NewMessageRepository(), func(context.Context) error { return nil }, nil
	}
}

func run(cfg config.Config) int {
	setupLogger(cfg.Log)
	l := log.Logger

	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		l.Error().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to open message storage")
		return 1
	}

	hub := ws.NewHub()
	registry := service.NewRegistry(hub)
	rooms := service.NewRoomService(hub)
	calls := service.NewCallService(registry, rooms, hub, clock.New(), cfg.Call.RingTimeout)
	signaling := service.NewSignalingService(registry, rooms, calls)
	chat := service.NewChatService(store, rooms)
	relay := service.NewRelayService(hub)

	h := handler.NewHandler(signaling, chat, relay, hub, cfg)

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: h.NewRouter(cfg.HTTP.StaticDir),
	}

	go func() {
		l.Info().
			Str("addr", cfg.HTTP.Addr).
			Str("storage", cfg.Storage.Driver).
			Dur("ring_timeout", cfg.Call.RingTimeout).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Shutdown.Timeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				l.Info().Msg("Shutting down server...")
				// Hijacked sockets are not tracked by Shutdown.
				hub.Stop()
				return srv.Shutdown(ctx)
			},
			"ring-timers": func(ctx context.Context) error {
				calls.Close()
				return nil
			},
			"message-store": closeStore,
		},
	)

	code := <-wait
	l.Info().Int("exit_code", code).Msg("Server exited")
	return code
}
