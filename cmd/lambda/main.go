package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"portfolio-site/handler"
	"portfolio-site/internal/integrations/emailjs"
	"portfolio-site/internal/integrations/openai"
	"portfolio-site/internal/integrations/paramstore"
	"portfolio-site/internal/repository"
	"portfolio-site/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	askCfg := usecase.AskConfig{
		ParamPrefix:     paramPrefix,
		MaxContextItems: envInt("MAX_CONTEXT_ITEMS", 20),
		MaxQuestionLen:  envInt("MAX_QUESTION_LENGTH", 300),
		MaxTurns:        envInt("MAX_CONVERSATION_TURNS", 10),
		TopK:            envInt("RETRIEVAL_TOP_K", 4),
	}

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
	stateStore, err := repository.NewDynamoStore(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create state store", "err", err)
		os.Exit(1)
	}

	llm, err := openai.NewClient(ssmClient, paramPrefix,
		openai.WithAppInfo(os.Getenv("SITE_URL"), os.Getenv("SITE_TITLE")))
	if err != nil {
		slog.Error("failed to create OpenRouter client", "err", err)
		os.Exit(1)
	}

	creds, err := emailjs.NewParamCredentials(ssmClient, paramPrefix+"/emailjs")
	if err != nil {
		slog.Error("failed to create EmailJS credentials", "err", err)
		os.Exit(1)
	}
	mailer, err := emailjs.NewClient(creds)
	if err != nil {
		slog.Error("failed to create EmailJS client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	askService, err := usecase.NewAskService(ssmClient, llm, stateStore, askCfg)
	if err != nil {
		slog.Error("failed to create ask service", "err", err)
		os.Exit(1)
	}
	contactService, err := usecase.NewContactService(mailer)
	if err != nil {
		slog.Error("failed to create contact service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(askService, contactService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
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
