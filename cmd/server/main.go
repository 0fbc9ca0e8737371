// Command server runs the context library platform's HTTP/WebSocket API and
// drives the SQL corpus, configuration object, and context tree pipelines.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/database"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/orchestrator"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/persistence"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/progress"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/taskregistry"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/toolregistry"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	log.Println("starting context library platform")
	log.Printf("http port: %s", httpPort)
	log.Printf("config directory: %s", *configDir)

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}
	stats := cfg.Stats()

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	log.Println("connected to postgresql, migrations applied")

	store := persistence.NewStore(dbClient.DB())
	tasks := taskregistry.New()
	hub := progress.NewHub()
	tools := toolregistry.New()
	if err := registerTools(tools, store); err != nil {
		log.Fatalf("failed to register tools: %v", err)
	}
	gateway, err := llmgw.NewGateway(cfg.LLMProviders)
	if err != nil {
		log.Fatalf("failed to initialize llm gateway: %v", err)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Config: cfg,
		Store:  store,
		Tasks:  tasks,
		Hub:    hub,
		Tools:  tools,
		LLM:    gateway,
	})

	router := gin.Default()
	orchestrator.RegisterRoutes(router, orch)

	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := database.Health(reqCtx, dbClient.DB())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbHealth,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": dbHealth,
			"configuration": gin.H{
				"llm_providers": stats.LLMProviders,
				"cluster_count": stats.ClusterCount,
			},
			"active_tasks": tasks.Count(),
		})
	})

	log.Printf("http server listening on :%s", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
