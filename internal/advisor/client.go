package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/model"
	"github.com/verdantlabs/factormatch/internal/service"
)

const systemPrompt = "You are a carbon accounting analyst selecting the best emission factor " +
	"for an invoice. You MUST respond with ONLY a valid JSON object. Do not include any " +
	"explanatory text, markdown formatting, or commentary before or after the JSON. The object " +
	"has these fields: selected_row_index (integer or null), review_required (boolean), " +
	"rationale (string), notes (string), detected_scope (string), inferred_activity_value " +
	"(number or null), inferred_unit (string), conversion_ratio (number or null), " +
	"alternate_candidates (array of {row_index, reason}), blocking_errors (array of strings)."

// Config holds advisor connection settings.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// Client calls a chat-completions endpoint to arbitrate factor selection.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	retry       service.RetryOptions
}

// NewClient creates an advisor client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: advisor API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1200
	}

	return &Client{
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Decide asks the advisor to pick among candidates for the invoice.
func (c *Client) Decide(ctx context.Context, invoice model.InvoiceRecord, candidates []model.MatchCandidate) (*model.DecisionOverride, error) {
	if len(candidates) == 0 {
		return nil, common.ErrNoCandidates
	}

	payload, err := buildPayload(invoice, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to build advisor payload: %w", err)
	}

	prompt := fmt.Sprintf("Select the best emission factor for this invoice.\n%s", payload)

	var content string
	err = common.WithRetry(ctx, func() error {
		var callErr error
		content, callErr = c.complete(ctx, prompt)
		return callErr
	}, c.retry)
	if err != nil {
		return nil, err
	}

	override, err := parseDecision(content)
	if err != nil {
		return nil, err
	}

	if override.HasBlockingErrors() {
		slog.Warn("advisor reported blocking errors",
			"invoice", invoice.SourceFile,
			"errors", strings.Join(override.BlockingErrors, "; "))
	}

	return override, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": systemPrompt,
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", common.NewRetryableError(fmt.Errorf("request failed: %w", err), true)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %s", common.ErrRateLimit, string(body))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", common.NewRetryableError(fmt.Errorf("advisor API error (status %d): %s", resp.StatusCode, string(body)), true)
	}
	if resp.StatusCode != http.StatusOK {
		return "", common.NewRetryableError(fmt.Errorf("advisor API error (status %d): %s", resp.StatusCode, string(body)), false)
	}

	var response completionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return response.Choices[0].Message.Content, nil
}

// completionResponse represents the chat-completions response structure.
type completionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Created int64 `json:"created"`
}
