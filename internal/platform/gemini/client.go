// Package gemini is the scoring-oracle client. It wraps the Gemini
// generateContent API in a small structured-JSON interface; each call is a
// single attempt, and retry policy belongs to the caller.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

// Client is the oracle interface the scoring stages depend on.
type Client interface {
	// GenerateJSON runs one schema-constrained generation and returns the
	// decoded JSON object.
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)

	// Model returns the model identifier stamped into reports.
	Model() string
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	temperature *float64
}

// New builds a client from environment configuration. GEMINI_API_KEY is
// required; everything else has a default.
func New(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("GEMINI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if model == "" {
		model = "gemini-2.5-flash"
	}

	timeoutSec := 60
	if v := strings.TrimSpace(os.Getenv("GEMINI_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	var tempPtr *float64
	if v := strings.TrimSpace(os.Getenv("GEMINI_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			tempPtr = &f
		}
	}

	return &client{
		log:         log.With("service", "GeminiClient"),
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		temperature: tempPtr,
	}, nil
}

func (c *client) Model() string { return c.model }

type generateRequest struct {
	SystemInstruction *content        `json:"system_instruction,omitempty"`
	Contents          []content       `json:"contents"`
	GenerationConfig  *generateConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// HTTPError is a non-2xx upstream response. It carries the status so callers
// can classify retryability.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	if schema == nil {
		return nil, errors.New("schema required")
	}

	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: user}}}},
		GenerationConfig: &generateConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
			Temperature:      c.temperature,
		},
	}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	var resp generateResponse
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)
	if err := c.do(ctx, path, req, &resp); err != nil {
		return nil, err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini blocked prompt (%s): schema=%s", resp.PromptFeedback.BlockReason, schemaName)
	}
	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini returned no text for schema %s", schemaName)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("parse model JSON for schema %s: %w; text=%s", schemaName, err, text)
	}
	return obj, nil
}

func (c *client) do(ctx context.Context, path string, body any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if uErr := json.Unmarshal(raw, out); uErr != nil {
		return fmt.Errorf("gemini decode error: %w; raw=%s", uErr, string(raw))
	}
	return nil
}

func extractText(resp generateResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		break
	}
	return sb.String()
}
