package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is one turn supplied to the language model. The orchestrator
// never reorders the sequence it assembles.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatClient is the language model service. Chat returns the full
// completion; ChatStream invokes onDelta for every fragment as it
// arrives, in order, and returns the accumulated text.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	ChatStream(ctx context.Context, messages []Message, onDelta func(delta string)) (string, error)
}

// OllamaChat talks to the Ollama chat API.
type OllamaChat struct {
	apiURL string
	model  string
	client *http.Client
}

func NewOllamaChat(apiURL, model string) *OllamaChat {
	return &OllamaChat{
		apiURL: apiURL,
		model:  model,
		// Completions can take a while on local hardware.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func (o *OllamaChat) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := o.send(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return strings.TrimSpace(chatResp.Message.Content), nil
}

// ChatStream decodes the NDJSON stream Ollama produces and forwards
// each fragment. On context cancellation it returns the accumulated
// prefix together with ctx.Err(); the caller decides what to persist.
func (o *OllamaChat) ChatStream(ctx context.Context, messages []Message, onDelta func(delta string)) (string, error) {
	body, err := o.send(ctx, messages, true)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var b strings.Builder
	decoder := json.NewDecoder(body)
	for {
		var chatResp ollamaChatResponse
		if err := decoder.Decode(&chatResp); err == io.EOF {
			break
		} else if err != nil {
			if ctx.Err() != nil {
				return b.String(), ctx.Err()
			}
			return b.String(), fmt.Errorf("decode stream: %w", err)
		}

		if chatResp.Message.Content != "" {
			b.WriteString(chatResp.Message.Content)
			onDelta(chatResp.Message.Content)
		}
		if chatResp.Done {
			break
		}
	}
	return b.String(), nil
}

func (o *OllamaChat) send(ctx context.Context, messages []Message, stream bool) (io.ReadCloser, error) {
	reqBody, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return resp.Body, nil
}
