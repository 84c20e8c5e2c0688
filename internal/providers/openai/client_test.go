package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"storybook/internal/domain"
)

func TestNormalizeProvider(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "", want: ProviderOpenAI},
		{input: "openai", want: ProviderOpenAI},
		{input: " OpenAI ", want: ProviderOpenAI},
		{input: "azure", want: ProviderAzure},
		{input: "AZURE", want: ProviderAzure},
		{input: "gemini", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeProvider(tc.input)
		if tc.wantErr {
			if !errors.Is(err, domain.ErrUnsupportedProvider) {
				t.Fatalf("NormalizeProvider(%q) err = %v, want ErrUnsupportedProvider", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeProvider(%q) returned error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeProvider(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestChatJSONOpenAIRequestShape(t *testing.T) {
	var captured struct {
		path    string
		auth    string
		org     string
		payload map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		captured.org = r.Header.Get("OpenAI-Organization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured.payload)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	client, err := New(Options{
		Provider:     ProviderOpenAI,
		APIKey:       "sk-test",
		BaseURL:      srv.URL,
		Organization: "org-42",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	text, err := client.ChatJSON(context.Background(), ChatParams{
		Model:       "gpt-4o",
		System:      "system text",
		User:        "user text",
		Temperature: 0.8,
	})
	if err != nil {
		t.Fatalf("ChatJSON returned error: %v", err)
	}
	if text != `{"ok":true}` {
		t.Fatalf("content = %q", text)
	}

	if captured.path != "/chat/completions" {
		t.Fatalf("path = %q, want /chat/completions", captured.path)
	}
	if captured.auth != "Bearer sk-test" {
		t.Fatalf("Authorization = %q", captured.auth)
	}
	if captured.org != "org-42" {
		t.Fatalf("OpenAI-Organization = %q", captured.org)
	}
	format, ok := captured.payload["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("response_format = %v, want json_object", captured.payload["response_format"])
	}
}

func TestChatJSONAzureRequestShape(t *testing.T) {
	var captured struct {
		path   string
		query  string
		apiKey string
		auth   string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.apiKey = r.Header.Get("api-key")
		captured.auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer srv.Close()

	client, err := New(Options{
		Provider:   ProviderAzure,
		APIKey:     "azure-key",
		BaseURL:    srv.URL,
		APIVersion: "2024-02-01",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.ChatJSON(context.Background(), ChatParams{Model: "my-deployment", System: "s", User: "u"}); err != nil {
		t.Fatalf("ChatJSON returned error: %v", err)
	}

	if captured.path != "/openai/deployments/my-deployment/chat/completions" {
		t.Fatalf("path = %q", captured.path)
	}
	if captured.query != "api-version=2024-02-01" {
		t.Fatalf("query = %q", captured.query)
	}
	if captured.apiKey != "azure-key" {
		t.Fatalf("api-key = %q", captured.apiKey)
	}
	if captured.auth != "" {
		t.Fatalf("Authorization = %q, want unset for azure", captured.auth)
	}
}

func TestGenerateImageResponseFormat(t *testing.T) {
	cases := []struct {
		name       string
		provider   string
		wantFormat string
	}{
		{name: "openai_requests_b64", provider: ProviderOpenAI, wantFormat: "b64_json"},
		{name: "azure_omits_format", provider: ProviderAzure, wantFormat: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var payload map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &payload)
				_, _ = w.Write([]byte(`{"data":[{"url":"https://img.example/1.png","revised_prompt":"rp"}]}`))
			}))
			defer srv.Close()

			client, err := New(Options{Provider: tc.provider, APIKey: "k", BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			result, err := client.GenerateImage(context.Background(), ImageParams{Model: "dall-e-3", Prompt: "a boat"})
			if err != nil {
				t.Fatalf("GenerateImage returned error: %v", err)
			}
			if result.URL != "https://img.example/1.png" {
				t.Fatalf("url = %q", result.URL)
			}
			format, _ := payload["response_format"].(string)
			if format != tc.wantFormat {
				t.Fatalf("response_format = %q, want %q", format, tc.wantFormat)
			}
			if n, _ := payload["n"].(float64); n != 1 {
				t.Fatalf("n = %v, want 1", payload["n"])
			}
		})
	}
}

func TestDecodeErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "content_policy",
			status:  http.StatusBadRequest,
			body:    `{"error":{"message":"Your request was rejected","code":"content_policy_violation"}}`,
			wantErr: domain.ErrContentRejected,
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"error":{"message":"overloaded","type":"server_error"}}`,
			wantErr: domain.ErrProviderFailure,
		},
		{
			name:    "unstructured_error",
			status:  http.StatusBadGateway,
			body:    `upstream exploded`,
			wantErr: domain.ErrProviderFailure,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, err := New(Options{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			_, err = client.ChatJSON(context.Background(), ChatParams{Model: "gpt-4o", System: "s", User: "u"})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestInvokePacesCallsWithRateBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer srv.Close()

	client, err := New(Options{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL, RPS: 10})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := client.ChatJSON(context.Background(), ChatParams{Model: "gpt-4o", System: "s", User: "u"}); err != nil {
			t.Fatalf("ChatJSON call %d returned error: %v", i, err)
		}
	}
	// Burst of 1 at 10 rps means the second call waits roughly 100ms.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Fatalf("two calls took %v, want the limiter to pace the second one", elapsed)
	}
}

func TestInvokeRateLimitHonorsCanceledContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer srv.Close()

	client, err := New(Options{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL, RPS: 1})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.ChatJSON(ctx, ChatParams{Model: "gpt-4o", System: "s", User: "u"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled from the limiter", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("upstream calls = %d, want 0", calls.Load())
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	if _, err := New(Options{Provider: ProviderOpenAI}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := New(Options{Provider: ProviderAzure, APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing azure endpoint")
	}
	if _, err := New(Options{Provider: "gemini", APIKey: "k"}); !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Fatalf("err = %v, want ErrUnsupportedProvider", err)
	}
}
