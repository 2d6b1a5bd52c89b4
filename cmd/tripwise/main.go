package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Desarso/tripwise"
	"github.com/Desarso/tripwise/common_tools"
	"github.com/Desarso/tripwise/models/azure"
	"github.com/Desarso/tripwise/models/gemini"
	"github.com/Desarso/tripwise/server"
	"github.com/Desarso/tripwise/stores"
)

func main() {
	logger := log.New(os.Stdout, "[tripwise] ", log.LstdFlags)

	cfg, err := tripwise.LoadConfig()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	prompts, err := tripwise.LoadPrompts(cfg.PromptsDir)
	if err != nil {
		logger.Fatalf("Failed to load prompts: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := newModel(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create %s model: %v", cfg.LLMProvider, err)
	}

	predictor := common_tools.NewPredictor(cfg.ScoringURI, cfg.ScoringAPIKey, cfg.ScoringDeployment)
	if cfg.MockScoring() {
		logger.Println("AML_SCORING_URI not set, predictions use the local mock")
	}
	tools := common_tools.DefaultTools(common_tools.NewStatsStore(cfg.StatsPath), predictor)
	agent := tripwise.Create_Agent(model, tools)
	chat := tripwise.NewChatSession(&agent, prompts, cfg)

	var store stores.ExchangeStore
	if cfg.StoreType != "none" {
		store, err = stores.NewStore(stores.NewStoreConfig(cfg.StoreType, cfg.StoreDSN))
		if err != nil {
			logger.Fatalf("Failed to open exchange store: %v", err)
		}
		defer store.Close()
		chat.Recorder = stores.NewRecorder(store)

		retention := stores.NewRetentionJob(store, cfg.Retention)
		if err := retention.Start(cfg.PruneSchedule); err != nil {
			logger.Fatalf("Failed to schedule exchange pruning: %v", err)
		}
		defer retention.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(chat, store, cfg.MockScoring(), cfg.AllowedOrigins).Router(),
	}

	go func() {
		logger.Printf("Server starting on %s (provider=%s)", cfg.Addr, cfg.LLMProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown error: %v", err)
	}
}

func newModel(ctx context.Context, cfg *tripwise.Config) (tripwise.Model, error) {
	switch cfg.LLMProvider {
	case tripwise.ProviderGemini:
		return gemini.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return azure.NewAzureModel(cfg.AzureEndpoint, cfg.AzureAPIKey, cfg.AzureDeployment, cfg.APIVersion), nil
	}
}
