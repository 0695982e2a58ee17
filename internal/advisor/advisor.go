// Package advisor produces AI-generated trade commentary with a confidence
// score. Output is advisory input to the execution gate, never the sole
// authorization for a trade.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"cryptodesk/internal/models"
)

// LLMClient defines the interface for the text-generation collaborator.
type LLMClient interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAIClient implements LLMClient using the OpenAI API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI LLM client.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CompleteWithSystem sends a prompt with system message to the LLM.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

const systemPrompt = `You are a cryptocurrency market commentator. Given a
proposed trade and current market data, respond with a JSON object:
{"action": "BUY"|"SELL"|"HOLD", "confidence": 0-100, "commentary": "..."}.
Confidence reflects how well current conditions support the trade.`

// Advisor generates commentary for proposed orders.
type Advisor struct {
	llm LLMClient
}

// New creates an advisor over an LLM client.
func New(llm LLMClient) *Advisor {
	return &Advisor{llm: llm}
}

type adviceResponse struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Commentary string  `json:"commentary"`
}

// Advise produces commentary and a confidence score for an order at the
// given reference price.
func (a *Advisor) Advise(ctx context.Context, order *models.Order, refPrice float64) (*models.Advice, error) {
	prompt := fmt.Sprintf(
		"Proposed trade: %s %.8f %s at market. Reference price: %.8f %s. Order type: %s.",
		order.Side, order.Amount, order.BaseAsset, refPrice, order.QuoteAsset, order.Type)

	raw, err := a.llm.CompleteWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var parsed adviceResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parsing advice: %w", err)
	}

	return &models.Advice{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		Symbol:     order.Symbol(),
		Action:     parsed.Action,
		Confidence: parsed.Confidence,
		Commentary: parsed.Commentary,
		CreatedAt:  time.Now(),
	}, nil
}

// extractJSON strips markdown fences some models wrap around JSON output.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return s
}
