package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"wallet/bot"
	"wallet/config"
	"wallet/controllers"
	"wallet/database"
	"wallet/middleware"
	"wallet/services"
	"wallet/utils"
)

var Version = "dev"

func main() {
	var configDir string

	rootCmd := &cobra.Command{
		Use:          "wallet",
		Short:        "Wallet - cards, transactions and Telegram notifications",
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configDir)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "", "Directory with config.yaml")

	// Add subcommands
	rootCmd.AddCommand(serveCmd(&configDir))
	rootCmd.AddCommand(migrateCmd(&configDir))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API, ops listener, Telegram bot and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configDir)
		},
	}
}

func migrateCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup(*configDir)
			if err != nil {
				return err
			}
			defer db.Close()

			log.Info().Str("driver", cfg.DB.Driver).Msg("migrations applied")
			return nil
		},
	}
}

// setup загружает конфигурацию, настраивает логгер и готовит базу данных
func setup(configDir string) (*config.Config, *database.Database, error) {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}

	// Инициализируем конфигурацию
	cfg, err := config.NewConfig(paths...)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	utils.InitLogger(cfg.Log.Level, cfg.Log.Pretty)

	// Инициализируем подключение к базе данных
	db, err := database.NewDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := db.Migrate(cfg); err != nil {
		db.Close()
		return nil, nil, err
	}
	return cfg, db, nil
}

func serve(ctx context.Context, configDir string) error {
	cfg, db, err := setup(configDir)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := utils.GetMetrics()

	// Каналы уведомлений
	ws := services.NewWebSocketService()
	notifiers := &services.MultiNotifier{ws}
	var expiryNotifiers []services.ExpiryNotifier
	if cfg.SMTP.Enabled {
		email := services.NewEmailService(cfg)
		notifiers.Add(email)
		expiryNotifiers = append(expiryNotifiers, email)
	}

	payments := services.NewPaymentService(notifiers, metrics)
	userService := services.NewUserService(db.DB)

	// Telegram-бот
	if cfg.Telegram.Enabled {
		tgBot, err := bot.New(cfg.Telegram.Token, bot.NewDispatcher(db.DB, payments))
		if err != nil {
			return err
		}
		notifiers.Add(tgBot)
		expiryNotifiers = append(expiryNotifiers, tgBot)

		go tgBot.Start()
		defer tgBot.Stop()
	}

	// Запускаем планировщик напоминаний
	scheduler := services.NewSchedulerService(db.DB, metrics, expiryNotifiers...)
	if _, err := scheduler.ScheduleExpiryReminders(cfg.Scheduler.ExpirySpec); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Info().Str("spec", cfg.Scheduler.ExpirySpec).Msg("Планировщик напоминаний запущен")

	limiter := utils.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	router := controllers.NewRouter(controllers.RouterDeps{
		DB:             db.DB,
		JWTSecret:      cfg.JWT.SecretKey,
		JWTExpiresIn:   cfg.JWT.ExpiresIn,
		Payments:       payments,
		Users:          userService,
		WebSocket:      ws,
		Metrics:        metrics,
		Limiter:        limiter,
		TrustedProxies: proxies,
	})

	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.Server.OpsPort > 0 {
		opsRouter, err := controllers.NewOpsRouter(db, metrics,
			utils.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window), cfg.Server.TrustedProxies)
		if err != nil {
			return err
		}
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.OpsPort),
			Handler:           opsRouter,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info().Str("addr", srv.Addr).Msg("Сервер запущен")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("ошибка запуска сервера %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("Получен сигнал завершения")
	case err = <-errCh:
		log.Error().Err(err).Msg("server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Str("addr", srv.Addr).Msg("shutdown failed")
		}
	}
	return err
}
