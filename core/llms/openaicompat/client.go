// Package openaicompat talks to a local server exposing the OpenAI chat
// completion API, such as Ollama or LocalAI.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/koscakluka/ziggy/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultEndpoint = "http://localhost:10000"
	FallbackModel   = "llama3.2:latest"

	chatCompletionsPath = "/v1/chat/completions"
	modelsPath          = "/v1/models"
)

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client

	mu    sync.Mutex
	model string
}

type ClientOption func(*Client)

// WithModel skips model discovery.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prompt sends a single chat completion request. Anything but HTTP 200 with
// a non-empty first choice is an error.
func (c *Client) Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (*llms.Response, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()

	options := llms.NewPromptOptions(opts...)
	model := c.resolveModel(ctx)

	reqBody := requestBody{
		Model:       model,
		Messages:    toMessages(options.Instructions, options.Turns, prompt),
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
	}
	span.SetAttributes(
		attribute.String("request.model", model),
		attribute.Float64("request.temperature", options.Temperature),
		attribute.Int("request.max_tokens", options.MaxTokens),
	)

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+chatCompletionsPath, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	span.SetAttributes(attribute.String("request.url", req.URL.String()))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		span.SetAttributes(attribute.String("response.error", string(errorBody)))
		return nil, recordError(span, &llms.StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(errorBody),
		})
	}

	var responseBody responseBody
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return nil, recordError(span, fmt.Errorf("error decoding response body: %w", err))
	}

	if len(responseBody.Choices) == 0 {
		return nil, recordError(span, llms.ErrEmptyResponse)
	}
	content := strings.TrimSpace(responseBody.Choices[0].Message.Content)
	if content == "" {
		return nil, recordError(span, llms.ErrEmptyResponse)
	}

	if responseBody.Model != "" {
		model = responseBody.Model
	}
	span.SetAttributes(attribute.Int("response.length", len(content)))
	return &llms.Response{Content: content, Model: model}, nil
}

// ListModels returns the ids of every model the endpoint serves.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "list llm models")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+modelsPath, nil)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		return nil, recordError(span, &llms.StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	var body modelsResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, recordError(span, fmt.Errorf("error decoding models: %w", err))
	}

	models := make([]string, 0, len(body.Data))
	for _, model := range body.Data {
		if model.ID != "" {
			models = append(models, model.ID)
		}
	}
	return models, nil
}

// resolveModel returns the configured model, or discovers the first one the
// endpoint lists. Discovery failures fall back to [FallbackModel] and are
// retried on the next prompt.
func (c *Client) resolveModel(ctx context.Context) string {
	c.mu.Lock()
	model := c.model
	c.mu.Unlock()
	if model != "" {
		return model
	}

	models, err := c.ListModels(ctx)
	if err != nil || len(models) == 0 {
		logger.Warn("model discovery failed, using fallback model", "error", err, "model", FallbackModel)
		return FallbackModel
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == "" {
		c.model = models[0]
		logger.Info("discovered model", "model", c.model)
	}
	return c.model
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
