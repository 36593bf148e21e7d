package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-or-not-service/internal/broadcast"
	"ai-or-not-service/internal/config"
	"ai-or-not-service/internal/domain"
	"ai-or-not-service/internal/game"
	"ai-or-not-service/internal/infra/memory"
	pginfra "ai-or-not-service/internal/infra/postgres"
	redisinfra "ai-or-not-service/internal/infra/redis"
	transport "ai-or-not-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
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

	var pool *pgxpool.Pool
	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pginfra.NewQuestionLoader(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Game.QuestionCacheTTL, 10*time.Minute)
	var questions game.QuestionSource
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, loader, cacheTTL)
	} else {
		questions = memory.NewQuestionBank(loader, cacheTTL)
	}

	var store game.RoomStore
	if bunDB != nil {
		store = pginfra.NewRoomStore(bunDB)
	} else {
		store = memory.NewRoomStore()
	}
	if redisClient != nil {
		store = redisinfra.NewRoomIndex(store, redisClient)
	}

	roomTTL := config.TTLDuration(cfg.Game.RoomTTL, game.DefaultRoomTTL)
	service := game.NewService(store, questions, roomTTL)

	hub := broadcast.NewHub()
	caster := broadcast.NewBroadcaster(hub, service)
	wsHandler := transport.NewWSHandler(service, caster)
	apiHandler := transport.NewAPIHandler(service, caster)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	sweepInterval := config.TTLDuration(cfg.Game.CleanupInterval, game.DefaultSweepInterval)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go game.NewSweeper(service, sweepInterval).Run(sweepCtx)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting game server on :%s", finalPort)
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

// sampleQuestions seeds the in-memory loader for local runs without Postgres.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "q1",
			Type:          domain.TypeImageClassify,
			Prompt:        "Which portrait was generated by an AI model?",
			ImageURL:      "https://cdn.example.com/questions/portrait-a.jpg",
			ImageURL2:     "https://cdn.example.com/questions/portrait-b.jpg",
			Options:       []string{"Image A", "Image B"},
			CorrectOption: 1,
			Explanation:   "Image B shows the telltale asymmetric earrings and blurred background common in diffusion output.",
			Active:        true,
			OrderIndex:    1,
		},
		{
			ID:            "q2",
			Type:          domain.TypeTextClassify,
			Prompt:        "One of these product reviews was written by a language model. Which one?",
			Options:       []string{"Review A", "Review B"},
			CorrectOption: 0,
			Explanation:   "Review A repeats the product name in every sentence and never mentions a concrete detail.",
			Active:        true,
			OrderIndex:    2,
		},
		{
			ID:            "q3",
			Type:          domain.TypeHallucinationCheck,
			Prompt:        "A chatbot claims the Eiffel Tower was moved to Lyon in 2019. Is this answer reliable?",
			Options:       []string{"Reliable", "Hallucination"},
			CorrectOption: 1,
			Explanation:   "The model invented the relocation. Always check surprising claims against a second source.",
			Active:        true,
			OrderIndex:    3,
		},
		{
			ID:            "q4",
			Type:          domain.TypeTrafficLight,
			Prompt:        "A school wants to feed student grades into a public chatbot to draft report cards. Green, yellow or red light?",
			Options:       []string{"Green light", "Yellow light", "Red light"},
			CorrectOption: 2,
			Explanation:   "Grades are personal data of minors. Sending them to a public service without consent is a red light.",
			Active:        true,
			OrderIndex:    4,
		},
	}
}
