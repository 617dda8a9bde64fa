package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"nova-bot/handler"
	"nova-bot/internal/integrations/openai"
	"nova-bot/internal/integrations/paramstore"
	"nova-bot/internal/repository"
	"nova-bot/internal/usecase"
)

func main() {
	// Local runs may keep settings in .env; Lambda has none.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	queryCfg := usecase.QueryConfig{
		ParamPrefix:     paramPrefix,
		MaxContextItems: envInt("MAX_CONTEXT_ITEMS", 20),
		MaxQueryLength:  envInt("MAX_QUERY_LENGTH", 500),
		MaxTurns:        envInt("MAX_CONVERSATION_TURNS", 50),
	}
	localAddr := os.Getenv("LOCAL_ADDR")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}

	var llmOpts []openai.Option
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(v))
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		llmOpts = append(llmOpts, openai.WithAPIKey(v))
	}
	openaiClient, err := openai.NewClient(ssmClient, paramPrefix, llmOpts...)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	queryService, err := usecase.NewQueryService(ssmClient, openaiClient, stateClient, queryCfg)
	if err != nil {
		slog.Error("failed to create query service", "err", err)
		os.Exit(1)
	}
	signinService, err := usecase.NewSigninService(stateClient)
	if err != nil {
		slog.Error("failed to create signin service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(queryService, signinService, handler.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	if localAddr == "" {
		lambda.Start(h.Handle)
		return
	}
	serveLocal(localAddr, h, logger)
}

// serveLocal runs the API as a plain HTTP server until SIGINT or SIGTERM.
func serveLocal(addr string, h *handler.Handler, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.NewRouter(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
