package main

import (
	"fmt"
	"log"

	"longform-server/config"
	"longform-server/models"
	"longform-server/routers"
	"longform-server/routers/api"
	"longform-server/service"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	fmt.Println("Server starting on port", cfg.Server.Port)

	store, err := models.NewStore(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("数据库初始化失败: %v", err)
	}
	fmt.Println("Database initialized")

	assets, err := service.NewAssetStore(cfg)
	if err != nil {
		log.Fatalf("MinIO 初始化失败: %v", err)
	}
	if assets != nil {
		fmt.Println("MinIO initialized")
	}

	script := service.NewScriptClient(cfg.Providers.OpenRouter.APIKey, cfg.Providers.OpenRouter.BaseURL, cfg.Providers.OpenRouter.Model)
	voice := service.NewFishAudioClient(cfg.Providers.FishAudio.APIKey, cfg.Providers.FishAudio.BaseURL, assets)
	media := service.NewWaveSpeedClient(cfg.Providers.WaveSpeed.APIKey, cfg.Providers.WaveSpeed.BaseURL)

	pipeline := service.NewPipeline(store, script, voice, media, assets)

	queue := service.NewQueue(cfg.Redis.Addr, cfg.Redis.Password)
	fmt.Println("Queue initialized")

	processor := service.NewProcessor(cfg.Redis.Addr, cfg.Redis.Password, pipeline)
	processor.Start(5)

	r := routers.InitRouter(
		api.NewProjectHandler(store, queue),
		api.NewProgressHandler(store),
	)
	r.Run(cfg.Server.Port)
}
