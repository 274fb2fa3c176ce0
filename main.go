package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"tryon-gateway/modules/common/cancel"
	"tryon-gateway/modules/common/config"
	"tryon-gateway/modules/common/database"
	"tryon-gateway/modules/common/provider"
	redisClient "tryon-gateway/modules/common/redis"
	"tryon-gateway/modules/common/storage"
	"tryon-gateway/modules/generate"
	"tryon-gateway/modules/jobs"
	"tryon-gateway/modules/mcpserver"
	"tryon-gateway/modules/progress"

	"tryon-gateway/modules/flux"
	"tryon-gateway/modules/kling"
	"tryon-gateway/modules/luma"
	"tryon-gateway/modules/nanobanana"
	"tryon-gateway/modules/novacanvas"
	"tryon-gateway/modules/openai"
	"tryon-gateway/modules/segmind"
)

const version = "1.0.0"

// buildRegistry - 자격증명이 있는 프로바이더만 등록
func buildRegistry(ctx context.Context, cfg *config.Config) *provider.Registry {
	registry := provider.NewRegistry()

	if creds := cfg.KlingCredentials(); creds.Valid() {
		registry.Register(kling.NewService(creds))
	}
	if creds := cfg.OpenAICredentials(); creds.Valid() {
		registry.Register(openai.NewSoraService(creds))
		registry.Register(openai.NewImageService(creds))
	}
	if creds := cfg.GeminiCredentials(); creds.Valid() {
		registry.Register(nanobanana.NewService(creds))
	}
	if creds := cfg.SegmindCredentials(); creds.Valid() {
		registry.Register(segmind.NewService(creds))
	}
	if creds := cfg.FluxCredentials(); creds.Valid() {
		registry.Register(flux.NewService(creds))
	}
	if creds := cfg.LumaCredentials(); creds.Valid() {
		registry.Register(luma.NewService(creds))
	}
	if creds := cfg.NovaCanvasCredentials(); creds.Valid() {
		novaService, err := novacanvas.NewService(ctx, creds)
		if err != nil {
			log.Printf("⚠️ Failed to initialize Nova Canvas: %v", err)
		} else {
			registry.Register(novaService)
		}
	}

	log.Printf("✅ Provider registry built: %v", registry.Names())
	return registry
}

// enableCORS - CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthCheck - 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "tryon-gateway",
		"version": version,
	})
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx := context.Background()

	// 인프라 연결
	rdb := redisClient.Connect(cfg)
	if rdb == nil {
		log.Fatal("❌ Failed to connect to Redis")
	}
	dbClient := database.NewClient()
	if dbClient == nil {
		log.Fatal("❌ Failed to initialize Database client")
	}
	storageClient := storage.NewClient(dbClient)
	cancelStore := cancel.NewStore(rdb)

	// 프로바이더 레지스트리
	registry := buildRegistry(ctx, cfg)

	// 백그라운드: Job 워커 + 진행 이벤트 허브
	worker := jobs.NewWorker(rdb, dbClient, storageClient, cancelStore, registry)
	go worker.Start(ctx)

	hub := progress.NewHub(rdb)
	go hub.Start(ctx)

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", hub.HandleWebSocket)

	generateHandler := generate.NewHandler(registry)
	generateHandler.RegisterRoutes(r)

	jobHandler := jobs.NewHandler(rdb, dbClient, cancelStore, registry)
	jobHandler.RegisterRoutes(r)

	// MCP 서버 (streamable HTTP)
	mcpSrv := mcpserver.NewServer(registry, version)
	r.PathPrefix("/mcp").Handler(mcpSrv.Handler())

	log.Printf("🚀 Tryon Gateway starting on port %s", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("🔧 MCP endpoint: http://localhost:%s/mcp", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
