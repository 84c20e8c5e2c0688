// Package openai implements a thin client for the OpenAI and Azure OpenAI
// HTTP APIs: JSON-mode chat completions, vision chat, and image generations.
// Provider selection only changes the endpoint layout and auth header; the
// request and response shapes are shared.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"storybook/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

const defaultTimeout = 120 * time.Second

// Options controls how the client is configured.
type Options struct {
	Provider     string // "openai" or "azure"
	APIKey       string
	BaseURL      string // OpenAI API base or Azure resource endpoint
	Organization string // OpenAI only
	APIVersion   string // Azure only
	HTTPClient   *http.Client
	RPS          float64 // outbound request budget, 0 disables limiting
}

// Client issues requests against one configured vendor.
type Client struct {
	provider     string
	apiKey       string
	baseURL      string
	organization string
	apiVersion   string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NormalizeProvider sanitizes a free-form provider string.
func NormalizeProvider(provider string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderAzure:
		return ProviderAzure, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, provider)
	}
}

// New constructs a client for the given vendor.
func New(opts Options) (*Client, error) {
	provider, err := NormalizeProvider(opts.Provider)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%s api key is required", provider)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		if provider == ProviderAzure {
			return nil, errors.New("azure endpoint is required")
		}
		baseURL = "https://api.openai.com/v1"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if provider == ProviderAzure && apiVersion == "" {
		apiVersion = "2024-02-01"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}

	return &Client{
		provider:     provider,
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		apiVersion:   apiVersion,
		httpClient:   httpClient,
		limiter:      limiter,
	}, nil
}

// Provider returns the configured vendor name.
func (c *Client) Provider() string {
	return c.provider
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	ImageURL *imageURLValue `json:"image_url,omitempty"`
}

type imageURLValue struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatParams describes one JSON-mode chat completion.
type ChatParams struct {
	Model       string
	System      string
	User        string
	Temperature float64
}

// ChatJSON runs a chat completion constrained to a JSON object response and
// returns the raw message content.
func (c *Client) ChatJSON(ctx context.Context, params ChatParams) (string, error) {
	payload := chatRequest{
		Model:       params.Model,
		Temperature: params.Temperature,
		ResponseFormat: &responseFormat{
			Type: "json_object",
		},
		Messages: []chatMessage{
			{Role: "system", Content: params.System},
			{Role: "user", Content: params.User},
		},
	}

	var out chatResponse
	if err := c.invoke(ctx, c.chatEndpoint(params.Model), payload, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrProviderFailure)
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrProviderFailure)
	}
	return text, nil
}

// VisionParams describes one image-description chat call.
type VisionParams struct {
	Model       string
	Instruction string
	ImageURL    string // public URL or data: URL
	MaxTokens   int
}

// ChatVision asks the model to describe the referenced image and returns the
// plain text answer.
func (c *Client) ChatVision(ctx context.Context, params VisionParams) (string, error) {
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	payload := chatRequest{
		Model:     params.Model,
		MaxTokens: maxTokens,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: params.Instruction},
					{Type: "image_url", ImageURL: &imageURLValue{URL: params.ImageURL}},
				},
			},
		},
	}

	var out chatResponse
	if err := c.invoke(ctx, c.chatEndpoint(params.Model), payload, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrProviderFailure)
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrProviderFailure)
	}
	return text, nil
}

type imageGenerationRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageGenerationResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// ImageParams describes one image generation.
type ImageParams struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
}

// ImageResult carries whichever representation the vendor returned.
type ImageResult struct {
	B64           string
	URL           string
	RevisedPrompt string
}

// GenerateImage renders a single image for the prompt.
func (c *Client) GenerateImage(ctx context.Context, params ImageParams) (*ImageResult, error) {
	payload := imageGenerationRequest{
		Model:   params.Model,
		Prompt:  params.Prompt,
		N:       1,
		Size:    params.Size,
		Quality: params.Quality,
	}
	if c.provider == ProviderOpenAI {
		payload.ResponseFormat = "b64_json"
	}

	var out imageGenerationResponse
	if err := c.invoke(ctx, c.imageEndpoint(params.Model), payload, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: no image data returned", domain.ErrProviderFailure)
	}
	first := out.Data[0]
	if first.B64JSON == "" && first.URL == "" {
		return nil, fmt.Errorf("%w: image data is empty", domain.ErrProviderFailure)
	}
	return &ImageResult{B64: first.B64JSON, URL: first.URL, RevisedPrompt: first.RevisedPrompt}, nil
}

func (c *Client) chatEndpoint(model string) string {
	if c.provider == ProviderAzure {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiVersion))
	}
	return c.baseURL + "/chat/completions"
}

func (c *Client) imageEndpoint(model string) string {
	if c.provider == ProviderAzure {
		return fmt.Sprintf("%s/openai/deployments/%s/images/generations?api-version=%s",
			c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiVersion))
	}
	return c.baseURL + "/images/generations"
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *Client) invoke(ctx context.Context, endpoint string, payload any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.provider == ProviderAzure {
		req.Header.Set("api-key", c.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if c.organization != "" {
			req.Header.Set("OpenAI-Organization", c.organization)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrProviderFailure, err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var apiErr apiErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		if apiErr.Error.Code == "content_policy_violation" || apiErr.Error.Type == "invalid_request_error" && strings.Contains(apiErr.Error.Message, "content policy") {
			return fmt.Errorf("%w: %s", domain.ErrContentRejected, apiErr.Error.Message)
		}
		return fmt.Errorf("%w: %s status %d: %s", domain.ErrProviderFailure, c.provider, resp.StatusCode, apiErr.Error.Message)
	}
	if len(data) > 0 {
		return fmt.Errorf("%w: %s status %d: %s", domain.ErrProviderFailure, c.provider, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return fmt.Errorf("%w: %s status %d", domain.ErrProviderFailure, c.provider, resp.StatusCode)
}
