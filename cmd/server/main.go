package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/SumedhUnveil/live-voting-gritgags/api"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/config"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/health"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/shutdown"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/startup"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/vote"
	"github.com/SumedhUnveil/live-voting-gritgags/pkg/lifecycle"
	"github.com/SumedhUnveil/live-voting-gritgags/pkg/token"
)

func main() {
	// .env 仅用于本地开发，缺失不是错误
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("无法加载配置: %v", err))
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	token.GenerateSecretKey()
	database.InitDB(cfg.Database.Sqlite)
	database.InitRedis(cfg.Database.Redis)

	// 阻塞式获取初始Run ID
	health.InitializeRunID()

	// 执行应用启动初始化流程
	app, err := startup.InitializeApplication()
	if err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 阻塞式执行一次启动后健康检查
	fmt.Println("正在执行启动后健康检查...")
	health.PerformCheck()

	// 异步启动后台的持续健康检查器
	go health.StartRedisHealthCheck()

	// 两阶段生命周期：第一信号排空队列，第二信号立即退出
	gracefulManager := lifecycle.NewManager()
	forcefulManager := lifecycle.NewManager()

	orchHandle, err := forcefulManager.NewServiceHandle("会话编排器")
	if err != nil {
		panic(fmt.Sprintf("无法注册编排器: %v", err))
	}
	app.Orch.Start(orchHandle.Ctx())
	go func() {
		<-app.Orch.Stopped()
		orchHandle.Close()
	}()

	if err := vote.StartProcessor(app.Processor, gracefulManager, forcefulManager); err != nil {
		panic(fmt.Sprintf("无法启动投票写入器: %v", err))
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Admin-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r, app.Hub)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("服务器启动失败: %v", err))
		}
	}()

	coordinator := shutdown.NewCoordinator(gracefulManager, forcefulManager)
	coordinator.ListenForSignalsAndShutdown(server)
}
