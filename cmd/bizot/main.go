package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/davie-sparq/bizot/internal/auth"
	"github.com/davie-sparq/bizot/internal/chatbot"
	"github.com/davie-sparq/bizot/internal/config"
	"github.com/davie-sparq/bizot/internal/database"
	"github.com/davie-sparq/bizot/internal/llm"
	"github.com/davie-sparq/bizot/internal/logger"
	"github.com/davie-sparq/bizot/internal/scheduler"
	"github.com/davie-sparq/bizot/internal/server"
	"github.com/davie-sparq/bizot/web"
)

var version = "dev"

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println("bizot " + version)
		os.Exit(0)
	}

	// Optional .env for local development; real deployments set env vars
	godotenv.Load()

	logger.Banner()

	cfg := config.Load()

	db, err := database.New(cfg.DataDir)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Resolve JWT secret: env var > database > generate and persist
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		stored, err := db.GetSetting("jwt_secret")
		if err == nil && stored != "" {
			jwtSecret = stored
		} else {
			jwtSecret, err = auth.GenerateSecret()
			if err != nil {
				logger.Fatal("Failed to generate JWT secret: %v", err)
			}
			// Persist to database so tokens survive restarts
			if err := db.SetSetting("jwt_secret", jwtSecret); err != nil {
				logger.Error("Failed to persist JWT secret: %v", err)
			}
			logger.Success("Generated and persisted JWT secret")
		}
	}

	authService := auth.NewService(jwtSecret)

	// The generator is picked once at startup: dev mode (or a missing API
	// key) runs the deterministic echo stand-in instead of the provider.
	var generator llm.Generator
	if cfg.DevMode || cfg.APIKey == "" {
		if !cfg.DevMode {
			logger.Warn("GEMINI_API_KEY not set. Running with the echo generator; responses are canned.")
		}
		generator = llm.NewEcho()
	} else {
		generator = llm.NewClient(cfg.APIKey, llm.WithTimeout(cfg.LLMTimeout))
	}

	engine := chatbot.NewEngine(db, generator, chatbot.Options{
		Model:          cfg.Model,
		Temperature:    cfg.Temperature,
		RetrievalLimit: cfg.RetrievalLimit,
		StrictTools:    cfg.StrictTools,
	})

	sched := scheduler.New(db, cfg.RetentionDays)
	sched.Start()
	defer sched.Stop()

	frontendFS, err := fs.Sub(web.FrontendFS, "static")
	if err != nil {
		logger.Fatal("Failed to load frontend assets: %v", err)
	}

	srv := server.New(server.Config{
		DB:         db,
		Auth:       authService,
		Engine:     engine,
		LLMTimeout: cfg.LLMTimeout,
		FrontendFS: frontendFS,
		Port:       cfg.Port,
	})

	go srv.WSHub.Run()
	defer srv.WSHub.Stop()

	hasOwner, err := db.HasOwnerUser()
	if err != nil {
		logger.Fatal("Failed to check owner user: %v", err)
	}
	if !hasOwner {
		logger.Warn("No owner account found. POST /api/v1/setup/init to complete setup.")
	}

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	if cfg.BindAddress != "127.0.0.1" && cfg.BindAddress != "localhost" {
		logger.Warn("Binding to %s — accessible from the network. Use BIZOT_BIND=127.0.0.1 for localhost-only.", cfg.BindAddress)
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // intentionally zero for WebSocket support
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		url := fmt.Sprintf("http://localhost:%d", cfg.Port)
		logger.Listen(addr, url, cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	<-done
	logger.Shutdown("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("Server shutdown failed: %v", err)
	}

	logger.Bye()
}
