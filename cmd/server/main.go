package main

import (
	"fmt"
	"net/http"

	"github.com/dc-folding/team-comp-backend/api"
	"github.com/dc-folding/team-comp-backend/internal/platform/config"
	"github.com/dc-folding/team-comp-backend/internal/platform/shutdown"
	"github.com/dc-folding/team-comp-backend/internal/platform/startup"
	"github.com/dc-folding/team-comp-backend/pkg/lifecycle"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("配置加载失败，无法启动: %v", err))
	}

	// 1. 执行应用首次启动初始化流程
	app, err := startup.InitializeApplication(cfg)
	if err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 2. 启动后台调度器
	manager := lifecycle.NewManager()
	handle, err := manager.NewServiceHandle("统计调度器")
	if err != nil {
		panic(fmt.Sprintf("生命周期注册失败: %v", err))
	}
	go app.Scheduler.Run(handle)

	// 3. 装配HTTP服务器
	handler := api.NewHandler(app.Repo, app.Scheduler, app.Aggregator)
	handler.Health = app.Health
	router := api.NewRouter(cfg.Server, handler)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("Failed to start server: " + err.Error())
		}
	}()

	// 4. 阻塞等待停机信号
	coordinator := shutdown.NewCoordinator(manager)
	coordinator.ListenForSignalsAndShutdown(server)
}
