package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/licitalab/editalscan/internal/common"
)

// OllamaClient implements Analyzer against an Ollama /api/generate
// endpoint. It carries no retry logic: a failed call is reported as
// capability-unavailable and the run-level policy decides.
type OllamaClient struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Log        *slog.Logger
}

func NewOllamaClient(baseURL, model string, timeout time.Duration, log *slog.Logger) *OllamaClient {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		BaseURL:    baseURL,
		Model:      model,
		HTTPClient: &http.Client{Timeout: timeout},
		Log:        log,
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *OllamaClient) Analyze(ctx context.Context, prompt string, opts Options) (string, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body := generateRequest{
		Model:  c.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.Log.Info("ai.request",
		"req_id", reqID,
		"model", c.Model,
		"prompt_bytes", len(prompt),
		"temperature", opts.Temperature,
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Log.Error("ai.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: %v", common.ErrAIUnavailable, err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.Log.Warn("ai.response_body_close_error", "req_id", reqID, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.Log.Info("ai.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("%w: non-2xx status %d", common.ErrAIUnavailable, resp.StatusCode)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", common.ErrAIUnavailable, err)
	}
	return gr.Response, nil
}
