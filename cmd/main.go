package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"
	gommon "github.com/labstack/gommon/log"

	"fable/pkg/budget"
	"fable/pkg/inference"
	"fable/pkg/schema"
	"fable/pkg/server"
	"fable/pkg/utils"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	openAI := inference.NewOpenAIInferencer(apiKey, model)
	if apiKey == "" {
		// No key means a local OpenAI-compatible endpoint (LM Studio et al).
		openAI.ChangeBaseURL("http://localhost:1234/v1")
		openAI.SetModel("")
	}
	var inf inference.Inferencer = openAI

	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		gemini, err := inference.NewGeminiInferencer(geminiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Fatal("failed initializing gemini backend", "error", err)
		}
		inf = gemini
	}

	if env := os.Getenv("FABLE_CONTEXT_WINDOW"); env != "" {
		window, err := strconv.Atoi(env)
		if err != nil || window <= 0 {
			log.Fatal("invalid FABLE_CONTEXT_WINDOW", "value", env)
		}
		if err := budget.CheckWindow(window); err != nil {
			log.Fatal("context window too small for configured prompts", "error", err)
		}
		log.Info("context window verified", "window", window, "largest_budget", budget.MaxTotalTokens())
	}

	srv := server.NewServer(ctx, inf)
	srv.Echo.Logger.SetLevel(gommon.DEBUG)
	srv.DefaultWorkflow = os.Getenv("FABLE_WORKFLOW")

	books, err := utils.Load[map[string]*schema.BookAnalysis]("BookAnalyses.json")
	if err == nil && books != nil {
		srv.Books = books
		log.Info("loaded persisted analyses", "books", len(books))
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed loading persisted analyses", "error", err)
	}

	stories, err := utils.Load[[]schema.StoryEntry]("StoryHistory.json")
	if err == nil {
		srv.Stories = stories
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed loading story history", "error", err)
	}

	addr := ":8080"
	if envAddr := os.Getenv("PORT"); envAddr != "" {
		addr = ":" + envAddr
	}

	finishedShutDown := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(ctx); err != nil {
			log.Fatal(err)
		}
		done()
		close(finishedShutDown)
	}()

	if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err)
	}
	<-finishedShutDown
}
