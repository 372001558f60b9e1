package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/theak/crm/internal/core"
	"github.com/theak/crm/internal/prompt"
	"github.com/theak/crm/internal/utils"
)

// Client is an implementation of the core.LLMClient interface using Amazon
// Bedrock. Bedrock text models have no forced tool-call channel, so the
// prompt demands a bare JSON object instead.
type Client struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	timeout       time.Duration
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClient creates a new Bedrock classifier client.
func NewClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	timeout time.Duration,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Client {
	return &Client{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		timeout:       timeout,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

var _ core.LLMClient = (*Client)(nil)

// Classify invokes the configured Bedrock model once and parses the JSON
// decision from its completion text.
func (c *Client) Classify(ctx context.Context, input core.ClassificationInput) (*core.Classification, error) {
	fullPrompt, err := buildPrompt(input, c.textProcessor, c.maxBodySize)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fullPrompt,
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": fullPrompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      fullPrompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("marshal bedrock payload: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		// The AWS SDK wraps deadline errors in its own operation error
		// types; the context check covers transports that don't unwrap.
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, core.ErrClassifierTimeout
		}
		return nil, fmt.Errorf("invoke bedrock model: %w", err)
	}

	var responseText string
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
			return nil, fmt.Errorf("%w: unmarshal claude response: %v", core.ErrClassifierProtocol, err)
		}
		responseText = claudeResp.Completion
	} else if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
			return nil, fmt.Errorf("%w: unmarshal titan response: %v", core.ErrClassifierProtocol, err)
		}
		if len(titanResp.Results) == 0 {
			return nil, fmt.Errorf("%w: empty titan response", core.ErrClassifierProtocol)
		}
		responseText = titanResp.Results[0].OutputText
	} else {
		responseText = string(resp.Body)
	}

	decision, err := decodeDecision(responseText)
	if err != nil {
		return nil, err
	}
	decision.Model = c.modelID
	return decision, nil
}

func (c *Client) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

func (c *Client) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}

// buildPrompt assembles the classification prompt for providers without a
// tool-call channel.
func buildPrompt(input core.ClassificationInput, tp *utils.TextProcessor, maxBodySize int) (string, error) {
	systemPrompt, err := prompt.Render(input.UserEmail)
	if err != nil {
		return "", err
	}
	body := tp.ProcessText(input.Body, maxBodySize)
	return fmt.Sprintf(`%s

Instead of a tool call, respond with a JSON object containing:
- domain: string (the customer's email domain, lower-cased)
- status: integer (1 = NEED_TO_RESPOND, 2 = WAITING_ON_THEM, 3 = NO_ACTION)
- reasoning: string (one sentence explaining the decision)

Email:
Sender domain: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`, systemPrompt, input.SenderDomain, input.Subject, body), nil
}

type statusDecision struct {
	Domain    string  `json:"domain"`
	Status    *int    `json:"status"`
	Reasoning *string `json:"reasoning"`
}

// decodeDecision parses a JSON decision, tolerating prose around the
// object the way chatty models tend to produce it.
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
