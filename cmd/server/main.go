package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/jengzang/moodmap-backend-go/internal/aggregation"
	"github.com/jengzang/moodmap-backend-go/internal/api"
	"github.com/jengzang/moodmap-backend-go/internal/config"
	"github.com/jengzang/moodmap-backend-go/internal/database"
	"github.com/jengzang/moodmap-backend-go/internal/emotion"
	"github.com/jengzang/moodmap-backend-go/internal/handler"
	"github.com/jengzang/moodmap-backend-go/internal/repository"
	"github.com/jengzang/moodmap-backend-go/internal/scheduler"
	"github.com/jengzang/moodmap-backend-go/internal/service"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()
	db := database.GetDB()

	clock := clockwork.NewRealClock()
	catalog := emotion.NewDefaultCatalog()

	// 仓库层
	entries := repository.NewEntryRepository(db)
	aggregates := repository.NewAggregateRepository(db)
	trust := repository.NewTrustRepository(db)

	// 聚合引擎与调度器
	engine := aggregation.NewEngine(entries, aggregates, trust, aggregation.Config{
		HalfLifeDays: cfg.HalfLifeDays,
		TrustMin:     cfg.TrustMin,
		TrustMax:     cfg.TrustMax,
	}, clock)
	cellScheduler := scheduler.NewCellScheduler(engine, cfg.DebounceWindow, clock)

	// 服务层
	submissions := service.NewSubmissionService(entries, catalog, cfg, clock, cellScheduler)
	entryService := service.NewEntryService(entries, cellScheduler)
	maps := service.NewMapService(aggregates, catalog, cfg)
	missions := service.NewMissionService(entries, clock)
	sweeper := service.NewSweeper(entries, cellScheduler, cfg.SweepInterval, clock)

	// 后台任务
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go cellScheduler.Run(ctx)
	go sweeper.Run(ctx)

	// 初始化路由
	router := api.SetupRouter(cfg, api.Handlers{
		Emotions: handler.NewEmotionHandler(submissions, entryService, catalog),
		Maps:     handler.NewMapHandler(maps),
		Missions: handler.NewMissionHandler(missions),
		Admin:    handler.NewAdminHandler(engine, sweeper),
	})

	// 启动服务器
	log.Printf("Server starting on port %s", cfg.Port)
	go func() {
		if err := router.Run(cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()

	// 退出前处理完排队的重算
	cellScheduler.Flush(context.Background())
	log.Println("Server stopped")
}
