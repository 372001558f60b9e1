package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/theak/crm/internal/adapters/bedrock"
	"github.com/theak/crm/internal/adapters/gemini"
	"github.com/theak/crm/internal/adapters/openai"
	"github.com/theak/crm/internal/config"
	"github.com/theak/crm/internal/core"
	"github.com/theak/crm/internal/utils"
)

// LLMFactory creates classifier clients based on configuration.
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory.
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates the classifier for the configured provider.
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmCfg := f.cfg.GetLLM()

	switch llmCfg.Provider {
	case "openai":
		o := f.cfg.GetOpenAI()
		return openai.NewClient(
			o.APIKey,
			o.ModelName,
			o.MaxTokens,
			o.Temperature,
			o.TopP,
			llmCfg.MaxBodySize,
			llmCfg.Timeout,
			f.logger,
			f.textProcessor,
		), nil

	case "bedrock":
		b := f.cfg.GetBedrock()
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(b.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		if _, err := awsCfg.Credentials.Retrieve(context.Background()); err != nil {
			return nil, core.ErrMissingCredential
		}
		return bedrock.NewClient(
			bedrockruntime.NewFromConfig(awsCfg),
			b.ModelID,
			b.MaxTokens,
			b.Temperature,
			b.TopP,
			llmCfg.MaxBodySize,
			llmCfg.Timeout,
			f.logger,
			f.textProcessor,
		), nil

	case "gemini":
		g := f.cfg.GetGemini()
		return gemini.NewClient(
			g.APIKey,
			g.ModelName,
			g.MaxTokens,
			g.Temperature,
			g.TopP,
			llmCfg.MaxBodySize,
			llmCfg.Timeout,
			f.logger,
			f.textProcessor,
		)

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", llmCfg.Provider)
	}
}
