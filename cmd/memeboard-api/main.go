package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warmofmeme/memeboard/internal/aspect"
	"github.com/warmofmeme/memeboard/internal/auth"
	"github.com/warmofmeme/memeboard/internal/config"
	"github.com/warmofmeme/memeboard/internal/logging"
	"github.com/warmofmeme/memeboard/internal/repository"
	"github.com/warmofmeme/memeboard/internal/server"
	"github.com/warmofmeme/memeboard/internal/services"
	"github.com/warmofmeme/memeboard/internal/store"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "memeboard-api",
		Short: "Meme board backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int64("storage-quota-bytes", defaults.GetInt64("storage.quota_bytes"), "Record storage quota in bytes")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().Bool("seed-demo", defaults.GetBool("seed.demo"), "Seed demo memes and comments on startup")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "storage.quota_bytes", "storage-quota-bytes")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "seed.demo", "seed-demo")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	kv, err := store.OpenSQLiteKV(store.SQLiteKVConfig{
		Path:       appConfig.DatabasePath,
		QuotaBytes: appConfig.StorageQuotaBytes,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	sqlDB, err := kv.DB().DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	recordStore, err := store.New(store.Config{
		KV:         kv,
		Clock:      time.Now,
		IDProvider: store.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	if err := recordStore.Bootstrap(store.SeedConfig{DemoData: appConfig.SeedDemo}); err != nil {
		return err
	}

	users := repository.NewUsers(recordStore)
	memes := repository.NewMemes(recordStore)
	comments := repository.NewComments(recordStore)
	votes := repository.NewVotes(recordStore)
	achievements := repository.NewAchievements(recordStore)
	arenas := repository.NewArenas(recordStore)

	registry := aspect.NewRegistry()
	registry.Register(aspect.NewLoggingAspect(logger))
	registry.Register(aspect.NewValidationAspect())

	authService, err := services.NewAuthService(services.AuthServiceConfig{
		Users:   users,
		Store:   recordStore,
		Aspects: registry,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	// The security aspect needs the session source, which only exists once
	// the auth service does.
	registry.Register(aspect.NewSecurityAspect(authService))

	memeService, err := services.NewMemeService(services.MemeServiceConfig{
		Memes:    memes,
		Votes:    votes,
		Comments: comments,
		Users:    users,
		Sessions: authService,
		Aspects:  registry,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	arenaService, err := services.NewArenaService(services.ArenaServiceConfig{
		Arenas:   arenas,
		Sessions: authService,
		Aspects:  registry,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	achievementService, err := services.NewAchievementService(services.AchievementServiceConfig{
		Achievements: achievements,
		Users:        users,
		Memes:        memes,
		Aspects:      registry,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	leaderboardService, err := services.NewLeaderboardService(services.LeaderboardServiceConfig{
		Memes: memes,
		Users: users,
	})
	if err != nil {
		return err
	}
	reportService, err := services.NewReportService(services.ReportServiceConfig{
		Memes: memes,
		Users: users,
	})
	if err != nil {
		return err
	}
	uploadService := services.NewUploadService(services.UploadServiceConfig{Logger: logger})

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "memeboard-auth",
		Audience:      "memeboard-api",
		TokenTTL:      appConfig.TokenTTL,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		AuthService:        authService,
		MemeService:        memeService,
		ArenaService:       arenaService,
		AchievementService: achievementService,
		LeaderboardService: leaderboardService,
		ReportService:      reportService,
		UploadService:      uploadService,
		TokenManager:       tokenManager,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
