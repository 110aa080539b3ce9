package main // Entry point package

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/marketbase/auth-service/internal/auth"
	"github.com/marketbase/auth-service/internal/config"
	"github.com/marketbase/auth-service/internal/database"
	"github.com/marketbase/auth-service/internal/handler"
	"github.com/marketbase/auth-service/internal/middleware"
	"github.com/marketbase/auth-service/internal/notify"
	"github.com/marketbase/auth-service/internal/queue"
	"github.com/marketbase/auth-service/internal/rbac"
	"github.com/marketbase/auth-service/internal/repository"
	"github.com/marketbase/auth-service/internal/router"
	"github.com/marketbase/auth-service/internal/seed"
	"github.com/marketbase/auth-service/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Env == "dev" {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(bootCtx, db); err != nil {
		log.WithError(err).Fatal("schema migration failed")
	}

	users := repository.NewUserRepo(db)
	access := repository.NewAccessRepo(db)
	sessions := repository.NewSessionRepo(db)

	if err := seed.Load(bootCtx, access, cfg.SeedFile, log); err != nil {
		log.WithError(err).Fatal("access fixture load failed")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and RBAC cache disabled")
	}

	issuer := auth.NewTokenIssuer(map[auth.Platform]auth.PlatformKey{
		auth.PlatformAdmin:  {Secret: cfg.AdminSecret, TTL: time.Duration(cfg.AdminTTLMin) * time.Minute},
		auth.PlatformDevice: {Secret: cfg.DeviceSecret, TTL: time.Duration(cfg.DeviceTTLMin) * time.Minute},
		auth.PlatformClient: {Secret: cfg.ClientSecret, TTL: time.Duration(cfg.ClientTTLMin) * time.Minute},
	}, sessions)
	guardian := auth.NewGuardian(users, issuer,
		cfg.MaxLoginRetry, time.Duration(cfg.LoginReactiveMin)*time.Minute)

	var channels []notify.Channel
	if cfg.EmailEnabled {
		channels = append(channels, notify.NewEmailChannel())
	}
	if cfg.SMSEnabled {
		channels = append(channels, notify.NewSMSChannel())
	}
	dispatcher := notify.NewDispatcher(log, time.Duration(cfg.NotifyTimeoutSec)*time.Second, channels...)
	reset := auth.NewResetFlow(users, dispatcher,
		time.Duration(cfg.ResetExpireMin)*time.Minute, cfg.BcryptCost)

	resolver := rbac.NewResolver(access, rbac.NewDecisionCache(rdb, 30*time.Second))
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	go queue.StartNotifyConsumer(log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	router.RegisterRoutes(e)

	accessHandler := &handler.AccessHandler{Resolver: resolver, Log: log}
	for _, p := range auth.Platforms {
		authHandler := &handler.AuthHandler{
			Cfg:        cfg,
			Platform:   p,
			Users:      users,
			Access:     access,
			Guardian:   guardian,
			Issuer:     issuer,
			Reset:      reset,
			Dispatcher: dispatcher,
			Log:        log,
			Hash:       utils.HashPassword,
			GenPass:    utils.GeneratePassword,
		}
		router.RegisterPlatform(e, p, router.PlatformDeps{
			Auth:     authHandler,
			Access:   accessHandler,
			Issuer:   issuer,
			Users:    users,
			Resolver: resolver,
			Limiter:  limiter,
			Log:      log,
		})
	}

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
