package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/theak/crm/internal/core"
	"github.com/theak/crm/internal/prompt"
	"github.com/theak/crm/internal/utils"
)

// Client is an implementation of the core.LLMClient interface using Google
// Gemini. Like the Bedrock adapter it asks for a bare JSON object.
type Client struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	timeout       time.Duration
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClient creates a new Gemini classifier client.
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
) (*Client, error) {
	// A missing key surfaces as ErrMissingCredential at classify time so
	// the rest of the application still starts.
	if apiKey == "" {
		return &Client{
			modelName:     modelName,
			maxBodySize:   maxBodySize,
			timeout:       timeout,
			logger:        logger,
			textProcessor: textProcessor,
		}, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Client{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		timeout:       timeout,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

var _ core.LLMClient = (*Client)(nil)

// Close closes the underlying Gemini client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify generates one completion and parses the JSON decision from the
// first candidate.
func (c *Client) Classify(ctx context.Context, input core.ClassificationInput) (*core.Classification, error) {
	if c.model == nil {
		return nil, core.ErrMissingCredential
	}

	systemPrompt, err := prompt.Render(input.UserEmail)
	if err != nil {
		return nil, err
	}
	body := c.textProcessor.ProcessText(input.Body, c.maxBodySize)

	fullPrompt := fmt.Sprintf(`%s

Instead of a tool call, respond with a JSON object containing:
- domain: string (the customer's email domain, lower-cased)
- status: integer (1 = NEED_TO_RESPOND, 2 = WAITING_ON_THEM, 3 = NO_ACTION)
- reasoning: string (one sentence explaining the decision)

Email:
Sender domain: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`, systemPrompt, input.SenderDomain, input.Subject, body)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		// The gRPC transport reports a deadline as a status error that does
		// not unwrap to context.DeadlineExceeded, so check the context too.
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, core.ErrClassifierTimeout
		}
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty gemini response", core.ErrClassifierProtocol)
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected gemini part type", core.ErrClassifierProtocol)
	}

	decision, err := decodeDecision(string(text))
	if err != nil {
		return nil, err
	}
	decision.Model = c.modelName
	return decision, nil
}

type statusDecision struct {
	Domain    string  `json:"domain"`
	Status    *int    `json:"status"`
	Reasoning *string `json:"reasoning"`
}

func decodeDecision(responseText string) (*core.Classification, error) {
	var decision statusDecision
	if err := json.Unmarshal([]byte(responseText), &decision); err != nil {
		start := strings.IndexByte(responseText, '{')
		end := strings.LastIndexByte(responseText, '}')
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: no JSON object in response", core.ErrClassifierProtocol)
		}
		if err := json.Unmarshal([]byte(responseText[start:end+1]), &decision); err != nil {
			return nil, fmt.Errorf("%w: parse decision: %v", core.ErrClassifierProtocol, err)
		}
	}

	if decision.Status == nil || decision.Reasoning == nil {
		return nil, fmt.Errorf("%w: decision missing required fields", core.ErrClassifierProtocol)
	}
	status := core.Status(*decision.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status %d outside enumeration", core.ErrClassifierProtocol, *decision.Status)
	}

	return &core.Classification{
		Domain:    decision.Domain,
		Status:    status,
		Reasoning: *decision.Reasoning,
	}, nil
}
