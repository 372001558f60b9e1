package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/theak/crm/internal/core"
	"github.com/theak/crm/internal/prompt"
	"github.com/theak/crm/internal/utils"
)

// ToolName is the single tool the model is forced to invoke.
const ToolName = "record_customer_status"

var toolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"domain": {
			"type": "string",
			"description": "The customer's email domain, lower-cased"
		},
		"status": {
			"type": "integer",
			"enum": [1, 2, 3],
			"description": "1 = NEED_TO_RESPOND, 2 = WAITING_ON_THEM, 3 = NO_ACTION"
		},
		"reasoning": {
			"type": "string",
			"description": "One sentence explaining the decision"
		}
	},
	"required": ["domain", "status", "reasoning"]
}`)

// toolArguments mirrors the tool schema for decoding the model's call.
type toolArguments struct {
	Domain    string  `json:"domain"`
	Status    *int    `json:"status"`
	Reasoning *string `json:"reasoning"`
}

// Client is an implementation of the core.LLMClient interface using OpenAI
// chat completions with a forced tool call.
type Client struct {
	client        *openai.Client
	apiKey        string
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	timeout       time.Duration
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClient creates a new OpenAI classifier client.
func NewClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	timeout time.Duration,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Client {
	return &Client{
		client:        openai.NewClient(apiKey),
		apiKey:        apiKey,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		timeout:       timeout,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// NewClientWithOpenAI creates a classifier client over a pre-built OpenAI
// client, mainly for tests pointing at a fake endpoint.
func NewClientWithOpenAI(
	client *openai.Client,
	modelName string,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Client {
	return &Client{
		client:        client,
		apiKey:        "test",
		modelName:     modelName,
		maxTokens:     1000,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

var _ core.LLMClient = (*Client)(nil)

// Classify sends one chat completion request declaring the status tool and
// forcing the model to call it, then parses the call's arguments.
func (c *Client) Classify(ctx context.Context, input core.ClassificationInput) (*core.Classification, error) {
	if c.apiKey == "" {
		return nil, core.ErrMissingCredential
	}

	systemPrompt, err := prompt.Render(input.UserEmail)
	if err != nil {
		return nil, err
	}

	body := c.textProcessor.ProcessText(input.Body, c.maxBodySize)
	userPrompt := fmt.Sprintf("Sender domain: %s\nSubject: %s\nBody:\n%s", input.SenderDomain, input.Subject, body)

	// One attempt, bounded. Retry behavior is deliberately absent.
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        ToolName,
					Description: "Record the response status for the customer identified by the sender's domain",
					Parameters:  toolSchema,
				},
			},
		},
		// No free-text fallback: the model must call the tool.
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: ToolName},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, core.ErrClassifierTimeout
		}
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", core.ErrClassifierProtocol)
	}

	var call *openai.ToolCall
	for i := range resp.Choices[0].Message.ToolCalls {
		if resp.Choices[0].Message.ToolCalls[i].Function.Name == ToolName {
			call = &resp.Choices[0].Message.ToolCalls[i]
			break
		}
	}
	if call == nil {
		return nil, fmt.Errorf("%w: no %s tool call in response", core.ErrClassifierProtocol, ToolName)
	}

	var args toolArguments
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return nil, fmt.Errorf("%w: bad tool arguments: %v", core.ErrClassifierProtocol, err)
	}
	if args.Status == nil || args.Reasoning == nil {
		return nil, fmt.Errorf("%w: tool arguments missing required fields", core.ErrClassifierProtocol)
	}

	status := core.Status(*args.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status %d outside enumeration", core.ErrClassifierProtocol, *args.Status)
	}

	c.logger.Debug("Classifier decision",
		zap.String("domain", args.Domain),
		zap.String("status", status.String()),
		zap.String("model", c.modelName))

	return &core.Classification{
		Domain:    args.Domain,
		Status:    status,
		Reasoning: *args.Reasoning,
		Model:     c.modelName,
	}, nil
}
