// Command devserver runs the portfolio backend as a plain HTTP server on
// localhost. Conversations live in memory and configuration comes from the
// environment, optionally loaded from a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"portfolio-site/handler"
	"portfolio-site/internal/integrations/emailjs"
	"portfolio-site/internal/integrations/openai"
	"portfolio-site/internal/integrations/paramstore"
	"portfolio-site/internal/repository"
	"portfolio-site/internal/usecase"
)

const paramPrefix = "/portfolio-site"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "err", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	params, err := staticParams()
	if err != nil {
		slog.Error("failed to build local configuration", "err", err)
		os.Exit(1)
	}

	llmOpts := []openai.Option{openai.WithAppInfo(os.Getenv("SITE_URL"), os.Getenv("SITE_TITLE"))}
	if base := os.Getenv("OPENROUTER_BASE_URL"); base != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(base))
	}
	llm, err := openai.NewClient(params, paramPrefix, llmOpts...)
	if err != nil {
		slog.Error("failed to create OpenRouter client", "err", err)
		os.Exit(1)
	}

	creds, err := emailjs.NewParamCredentials(params, paramPrefix+"/emailjs")
	if err != nil {
		slog.Error("failed to create EmailJS credentials", "err", err)
		os.Exit(1)
	}
	mailer, err := emailjs.NewClient(creds)
	if err != nil {
		slog.Error("failed to create EmailJS client", "err", err)
		os.Exit(1)
	}

	askService, err := usecase.NewAskService(params, llm, repository.NewMemoryStore(0), usecase.AskConfig{
		ParamPrefix:     paramPrefix,
		MaxContextItems: envInt("MAX_CONTEXT_ITEMS", 20),
		MaxQuestionLen:  envInt("MAX_QUESTION_LENGTH", 300),
		MaxTurns:        envInt("MAX_CONVERSATION_TURNS", 10),
		TopK:            envInt("RETRIEVAL_TOP_K", 4),
	})
	if err != nil {
		slog.Error("failed to create ask service", "err", err)
		os.Exit(1)
	}
	contactService, err := usecase.NewContactService(mailer)
	if err != nil {
		slog.Error("failed to create contact service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(askService, contactService, handler.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	addr := ":" + envString("PORT", "8000")
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.NewEngine(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}

// staticParams assembles the parameters the Lambda reads from SSM out of
// local environment variables and the resume file.
func staticParams() (*paramstore.Static, error) {
	resume, err := os.ReadFile(envString("RESUME_FILE", "resume.txt"))
	if err != nil {
		return nil, err
	}
	token, err := json.Marshal(map[string]string{"token": os.Getenv("OPENROUTER_API_KEY")})
	if err != nil {
		return nil, err
	}
	creds, err := json.Marshal(emailjs.Credentials{
		ServiceID:  os.Getenv("EMAILJS_SERVICE_ID"),
		TemplateID: os.Getenv("EMAILJS_TEMPLATE_ID"),
		PublicKey:  os.Getenv("EMAILJS_PUBLIC_KEY"),
		PrivateKey: os.Getenv("EMAILJS_PRIVATE_KEY"),
	})
	if err != nil {
		return nil, err
	}

	return paramstore.NewStatic(map[string]string{
		paramPrefix + "/resume":           string(resume),
		paramPrefix + "/pinned_prompt":    os.Getenv("PINNED_PROMPT"),
		paramPrefix + "/config/model":     os.Getenv("MODEL"),
		paramPrefix + "/openrouter-token": string(token),
		paramPrefix + "/emailjs":          string(creds),
	}), nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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
