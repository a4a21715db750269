// Package openai provides itinerary generation through any
// chat-completions-compatible backend (OpenAI or a local Ollama).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wayfarer/v2/internal/domain/itinerary"
	"github.com/wayfarer/v2/internal/ports/outbound"
)

// Config carries the planner backend settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements the AIPlanner interface against a chat-completions API.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a new planner client. A missing API key is not an error
// here; it surfaces as ErrMissingCredentials on the first generation call.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("openai-planner"),
	}
}

// Chat completions API structures
type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
	Usage   usage    `json:"usage"`
}

type choice struct {
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GeneratePlan runs the preference form through the model and decodes the
// structured plan it returns.
func (c *Client) GeneratePlan(ctx context.Context, req outbound.PlanRequest) (*itinerary.Itinerary, error) {
	if c.cfg.APIKey == "" {
		return nil, outbound.ErrMissingCredentials
	}

	content, err := c.complete(ctx, systemPrompt, userPrompt(req))
	if err != nil {
		return nil, err
	}

	plan, err := parsePlanResponse(content)
	if err != nil {
		c.logger.Error("Failed to parse planner response", zap.Error(err))
		return nil, err
	}
	plan.Language = req.Language
	return plan, nil
}

const systemPrompt = `You are an expert local travel guide. Produce a detailed multi-day itinerary.

CRITICAL: You must respond with ONLY a valid JSON object in the exact format shown below. Do not include any explanatory text, markdown formatting, or other content outside the JSON.

Required JSON format:
{
  "title": "Trip name",
  "description": "One-paragraph summary of the trip",
  "days": [
    {
      "dayNumber": 1,
      "title": "Theme of the day",
      "activities": [
        {
          "time": "10:00 AM",
          "placeName": "Place name",
          "description": "What to do there",
          "priceEstimate": "10-15 EUR",
          "type": "VISIT",
          "address": "Street address if known",
          "coordinates": {"lat": 36.72, "lng": -4.42},
          "travelTime": "",
          "transportDetails": ""
        }
      ]
    }
  ]
}

Rules:
- "type" must be one of VISIT, FOOD, LODGING, TRAVEL.
- Every day needs a lunch or dinner stop with type FOOD.
- Include real coordinates whenever you know the place.
- Day numbers start at 1 and must be unique.

Remember: Respond with ONLY valid JSON. No additional text or formatting.`

func userPrompt(req outbound.PlanRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %d-day trip", req.DayCount)
	switch req.Scope {
	case "":
	default:
		fmt.Fprintf(&b, " (%s scope)", req.Scope)
	}
	fmt.Fprintf(&b, " around: %s", req.Location)
	if req.Theme != "" {
		fmt.Fprintf(&b, "\nTheme: %s", req.Theme)
	}
	if req.Budget != "" {
		fmt.Fprintf(&b, "\nBudget: %s", req.Budget)
	}
	if req.Language != "" {
		fmt.Fprintf(&b, "\nWrite all text in language: %s", req.Language)
	}
	return b.String()
}

// complete makes the actual chat-completions call.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
		MaxTokens:   4000,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	c.logger.Info("Planner call successful",
		zap.Int("prompt_tokens", chatResp.Usage.PromptTokens),
		zap.Int("completion_tokens", chatResp.Usage.CompletionTokens),
		zap.Int("total_tokens", chatResp.Usage.TotalTokens),
	)

	return chatResp.Choices[0].Message.Content, nil
}

// parsePlanResponse extracts and decodes the JSON object from the model
// output. Models sometimes wrap the JSON in prose or code fences.
func parsePlanResponse(response string) (*itinerary.Itinerary, error) {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no valid JSON found in response")
	}

	var plan itinerary.Itinerary
	if err := json.Unmarshal([]byte(response[start:end+1]), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("planner returned an invalid itinerary: %w", err)
	}
	return &plan, nil
}
