package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/theak/crm/internal/core"
	"github.com/theak/crm/internal/utils"
)

// fakeCompletionServer returns a canned chat completion for every request
// and captures the last request body for inspection.
func fakeCompletionServer(t *testing.T, response openai.ChatCompletionResponse) (*httptest.Server, *openai.ChatCompletionRequest) {
	t.Helper()
	var lastReq openai.ChatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastReq))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	t.Cleanup(server.Close)

	return server, &lastReq
}

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = server.URL + "/v1"
	return NewClientWithOpenAI(openai.NewClientWithConfig(cfg), "gpt-test", 4096, zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))
}

func toolCallResponse(arguments string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      ToolName,
						Arguments: arguments,
					},
				}},
			},
		}},
	}
}

func TestClassifyParsesToolCall(t *testing.T) {
	server, lastReq := fakeCompletionServer(t,
		toolCallResponse(`{"domain": "vendor.io", "status": 2, "reasoning": "They owe a reply"}`))
	client := testClient(t, server)

	decision, err := client.Classify(context.Background(), core.ClassificationInput{
		UserEmail:    "me@example.com",
		SenderDomain: "vendor.io",
		Subject:      "Quote",
		Body:         "Coming Friday.",
	})
	require.NoError(t, err)

	assert.Equal(t, "vendor.io", decision.Domain)
	assert.Equal(t, core.StatusWaitingOnThem, decision.Status)
	assert.Equal(t, "They owe a reply", decision.Reasoning)
	assert.Equal(t, "gpt-test", decision.Model)

	// The request must force the status tool, not leave the model a choice.
	require.Len(t, lastReq.Tools, 1)
	assert.Equal(t, ToolName, lastReq.Tools[0].Function.Name)

	choice, ok := lastReq.ToolChoice.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "function", choice["type"])
}

func TestClassifyRejectsMissingFields(t *testing.T) {
	server, _ := fakeCompletionServer(t,
		toolCallResponse(`{"domain": "vendor.io"}`))
	client := testClient(t, server)

	_, err := client.Classify(context.Background(), core.ClassificationInput{SenderDomain: "vendor.io"})
	assert.ErrorIs(t, err, core.ErrClassifierProtocol)
}

func TestClassifyRejectsInvalidStatus(t *testing.T) {
	server, _ := fakeCompletionServer(t,
		toolCallResponse(`{"domain": "vendor.io", "status": 9, "reasoning": "?"}`))
	client := testClient(t, server)

	_, err := client.Classify(context.Background(), core.ClassificationInput{SenderDomain: "vendor.io"})
	assert.ErrorIs(t, err, core.ErrClassifierProtocol)
}

func TestClassifyRejectsMissingToolCall(t *testing.T) {
	server, _ := fakeCompletionServer(t, openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: "I think the status is 2.",
			},
		}},
	})
	client := testClient(t, server)

	_, err := client.Classify(context.Background(), core.ClassificationInput{SenderDomain: "vendor.io"})
	assert.ErrorIs(t, err, core.ErrClassifierProtocol)
}

func TestClassifyTimeout(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise Close deadlocks in cleanup.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	client := testClient(t, server)
	client.timeout = 50 * time.Millisecond

	_, err := client.Classify(context.Background(), core.ClassificationInput{SenderDomain: "vendor.io"})
	assert.ErrorIs(t, err, core.ErrClassifierTimeout)

	select {
	case <-started:
	default:
		t.Fatal("request never reached the server")
	}
}

func TestClassifyWithoutAPIKey(t *testing.T) {
	client := NewClient("", "gpt-test", 1000, 0.1, 0.9, 4096, 0, zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))

	_, err := client.Classify(context.Background(), core.ClassificationInput{SenderDomain: "vendor.io"})
	assert.ErrorIs(t, err, core.ErrMissingCredential)
}
