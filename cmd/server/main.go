package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"time"

	"mood-insight/internal/config"
	"mood-insight/internal/handler"
	"mood-insight/internal/insight"
	"mood-insight/internal/logger"
	"mood-insight/internal/middleware"
	"mood-insight/internal/model"
	"mood-insight/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)

	db, err := cfg.OpenGormDB()
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(&model.Member{}, &model.Mood{}, &model.Capture{}, &model.InsightSnapshot{}); err != nil {
		slog.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		// tokens won't survive a restart, which is fine for a dev setup
		buf := make([]byte, 32)
		rand.Read(buf)
		secret = []byte(hex.EncodeToString(buf))
		slog.Warn("no jwt_secret configured, generated an ephemeral one")
	}

	resolver := insight.NewResolver(time.Local)
	moodSvc := service.NewMoodService(db)
	moodCache := service.NewMoodCache(moodSvc, time.Duration(cfg.Insight.MoodCacheTTLMin)*time.Minute)
	captureSvc := service.NewCaptureService(db)
	snapshots := service.NewSnapshotStore(db)
	generator := service.NewGenerator(cfg.Generate)
	insightSvc := service.NewInsightService(captureSvc, snapshots, generator, resolver, cfg.Insight)

	authH := handler.NewAuthHandler(service.NewAuthService(db), secret)
	captureH := handler.NewCaptureHandler(captureSvc, moodCache)
	moodH := handler.NewMoodHandler(moodSvc, moodCache)
	insightH := handler.NewInsightHandler(insightSvc)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.POST("/api/login", authH.Login)
	api := r.Group("/api", middleware.JWTAuth(secret))
	api.POST("/captures", captureH.Create)
	api.GET("/captures", captureH.List)
	api.GET("/moods", moodH.List)
	api.POST("/moods", moodH.Create)
	api.DELETE("/moods/:id", moodH.Delete)
	api.GET("/insights/:type", insightH.Ensure)

	slog.Info("server starting", "addr", cfg.Addr())
	if err := r.Run(cfg.Addr()); err != nil {
		slog.Error("server failed", "err", err)
	}
}
