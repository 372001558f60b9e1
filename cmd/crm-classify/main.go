package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/theak/crm/internal/adapters/smtpingest"
	"github.com/theak/crm/internal/adapters/storage"
	"github.com/theak/crm/internal/config"
	"github.com/theak/crm/internal/core"
	"github.com/theak/crm/internal/factory"
	"github.com/theak/crm/internal/logging"
	"github.com/theak/crm/internal/utils"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "openai", "LLM provider (openai, bedrock, gemini)")
	maxTokens   = flag.Int("max-tokens", 1000, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.1, "Temperature for LLM generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for LLM generation")
	maxBodySize = flag.Int("max-body-size", 4096, "Maximum email body size to send to LLM")
	timeout     = flag.Duration("timeout", 30*time.Second, "Classifier call timeout")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI (falls back to OPENAI_API_KEY)")
	openaiModelName = flag.String("openai-model", "gpt-4o", "OpenAI model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini (falls back to GEMINI_API_KEY)")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Input flags
	userEmail  = flag.String("user-email", "", "The inbox owner's address, given to the classifier for context")
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	apply      = flag.Bool("apply", false, "Write the resulting status to the customer store")
	sqlitePath = flag.String("db", "./data/crm.db", "SQLite database path used with -apply")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.NewFromFile(*configFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	textProcessor := utils.NewTextProcessor(logger)
	llmFactory := factory.NewLLMFactory(cfg, logger, textProcessor)
	llmClient, err := llmFactory.CreateLLMClient()
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	text, html, err := smtpingest.ExtractBody(msg)
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}

	email := core.InboundEmail{
		From:    msg.Header.Get("From"),
		Subject: msg.Header.Get("Subject"),
		Text:    text,
		HTML:    html,
	}

	senderDomain, ok := core.ExtractSenderDomain(email.From)
	if !ok {
		logger.Fatal("Could not extract a sender domain", zap.String("from", email.From))
	}

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.From)
	fmt.Printf("Sender domain: %s\n", senderDomain)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Body length: %d bytes\n", len(email.Body()))

	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetString("llm.provider"))

	startTime := time.Now()
	decision, err := llmClient.Classify(context.Background(), core.ClassificationInput{
		UserEmail:    *userEmail,
		SenderDomain: senderDomain,
		Subject:      email.Subject,
		Body:         email.Body(),
	})
	if err != nil {
		logger.Fatal("Failed to classify email", zap.Error(err))
	}
	duration := time.Since(startTime)

	domain := core.NormalizeDomain(decision.Domain)
	if domain == "" {
		domain = senderDomain
	}

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Domain: %s\n", domain)
	fmt.Printf("Status: %d (%s)\n", int(decision.Status), decision.Status.String())
	fmt.Printf("Reasoning: %s\n", decision.Reasoning)
	fmt.Printf("Model used: %s\n", decision.Model)
	fmt.Printf("Processing time: %v\n", duration)

	if *apply {
		if err := applyStatus(logger, domain, decision.Status); err != nil {
			logger.Fatal("Failed to record status", zap.Error(err))
		}
		fmt.Printf("Recorded status for %s\n", domain)
	}

	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
}

// applyStatus writes the classification outcome into the SQLite store.
func applyStatus(logger *zap.Logger, domain string, status core.Status) error {
	db, err := storage.OpenSQLite(*sqlitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	tracker := core.NewTrackerService(storage.NewCustomersRepo(db), storage.NewSettingsRepo(db), logger)
	_, err = tracker.UpsertStatus(context.Background(), domain, status)
	return err
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)
	v.Set("llm.timeout", timeout.String())
	v.Set("llm.max_body_size", *maxBodySize)

	switch *provider {
	case "openai":
		key := *openaiAPIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		v.Set("openai.api_key", key)
		v.Set("openai.model_name", *openaiModelName)
		v.Set("openai.max_tokens", *maxTokens)
		v.Set("openai.temperature", *temperature)
		v.Set("openai.top_p", *topP)
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
		v.Set("bedrock.temperature", *temperature)
		v.Set("bedrock.top_p", *topP)
	case "gemini":
		key := *geminiAPIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		v.Set("gemini.api_key", key)
		v.Set("gemini.model_name", *geminiModelName)
		v.Set("gemini.max_tokens", *maxTokens)
		v.Set("gemini.temperature", *temperature)
		v.Set("gemini.top_p", *topP)
	}

	return config.NewFromViper(v)
}
