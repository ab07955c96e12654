package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"camembert-game-service/internal/app"
	"camembert-game-service/internal/config"
	"camembert-game-service/internal/domain"
	"camembert-game-service/internal/hub"
	"camembert-game-service/internal/infra/memory"
	pggateway "camembert-game-service/internal/infra/postgres"
	redisinfra "camembert-game-service/internal/infra/redis"
	transport "camembert-game-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var gateway app.Gateway
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		gateway = pggateway.NewGateway(pool)
	} else {
		log.Printf("no postgres configured, using in-memory gateway with demo session")
		gateway = demoGateway()
	}

	if redisClient != nil {
		questionTTL := config.TTLDuration(cfg.Game.QuestionTTL, 10*time.Minute)
		gateway = redisinfra.NewQuestionCache(redisClient, gateway, questionTTL)
	}

	registryOpts := []app.RegistryOption{}
	if redisClient != nil {
		livenessTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		registryOpts = append(registryOpts, app.WithLiveness(redisinfra.NewLiveness(redisClient, livenessTTL)))
	}
	registry := app.NewRegistry(gateway, registryOpts...)

	rules := app.Rules{
		BonusPoints:       cfg.Game.BonusPoints,
		WedgesPerCategory: cfg.Game.WedgesPerCategory,
	}
	rooms := hub.New()
	service := app.NewGameService(gateway, rooms, registry, rules)
	wsHandler := transport.NewWSHandler(service, rooms)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting game service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// demoGateway seeds a playable session; swap in Postgres for real data.
func demoGateway() *memory.Gateway {
	gw := memory.NewGateway()
	sessionID := gw.AddSession(domain.Session{
		Title:      "Demo Session",
		Date:       "2025-01-01",
		RedLabel:   "Geography",
		GreenLabel: "Capitals",
		Status:     domain.StatusActivated,
	})

	red := []struct {
		title, answer string
		options       []string
	}{
		{"What is the capital of Germany?", "Berlin", []string{"Berlin", "Munich", "Hamburg", "Frankfurt"}},
		{"What is the largest continent by area?", "Asia", []string{"Asia", "Africa", "Europe", "Antarctica"}},
		{"Which country has the most islands?", "Sweden", []string{"Sweden", "Indonesia", "Philippines", "Finland"}},
		{"What is the capital of Canada?", "Ottawa", []string{"Ottawa", "Toronto", "Vancouver", "Montreal"}},
	}
	for i, q := range red {
		gw.AddQuestion(sessionID, domain.Question{
			Category:       domain.CategoryRed,
			Title:          q.title,
			ExpectedAnswer: q.answer,
			AllocatedTime:  60,
			Options:        q.options,
		}, i+1)
	}

	green := []struct{ title, answer string }{
		{"What is the smallest country in the world?", "Vatican City"},
		{"What is the capital of Japan?", "Tokyo"},
		{"Which country has the most population?", "China"},
		{"What is the highest mountain in the world?", "Mount Everest"},
	}
	for i, q := range green {
		gw.AddQuestion(sessionID, domain.Question{
			Category:       domain.CategoryGreen,
			Title:          q.title,
			ExpectedAnswer: q.answer,
			AllocatedTime:  60,
		}, i+1)
	}

	gw.AddGroup(domain.Group{SessionID: sessionID, Name: "Group Alpha", AvatarName: "Afroboy", AvatarURL: "/avatars/Afroboy.svg"})
	gw.AddGroup(domain.Group{SessionID: sessionID, Name: "Group Beta", AvatarName: "Chaplin", AvatarURL: "/avatars/Chaplin.svg"})
	return gw
}
