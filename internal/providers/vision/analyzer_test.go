package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"storybook/internal/domain"
	"storybook/internal/providers/openai"
)

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type visionCapture struct {
	calls    int
	imageURL string
	model    string
}

func captureTransport(capture *visionCapture, answer string) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		capture.calls++
		raw, _ := io.ReadAll(r.Body)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(raw, &req)
		capture.model = req.Model
		for _, m := range req.Messages {
			for _, part := range m.Content {
				if part.ImageURL != nil {
					capture.imageURL = part.ImageURL.URL
				}
			}
		}
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": answer}}},
		})
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(body)),
		}, nil
	}
}

func newTestAnalyzer(t *testing.T, capture *visionCapture, answer string) *OpenAIAnalyzer {
	t.Helper()
	client, err := openai.New(openai.Options{
		Provider:   openai.ProviderOpenAI,
		APIKey:     "dummy",
		HTTPClient: &http.Client{Transport: captureTransport(capture, answer)},
	})
	if err != nil {
		t.Fatalf("openai.New returned error: %v", err)
	}
	analyzer, err := NewOpenAIAnalyzer(Options{Client: client})
	if err != nil {
		t.Fatalf("NewOpenAIAnalyzer returned error: %v", err)
	}
	return analyzer
}

func TestNewOpenAIAnalyzerRejectsAzure(t *testing.T) {
	t.Parallel()
	client, err := openai.New(openai.Options{
		Provider: openai.ProviderAzure,
		APIKey:   "k",
		BaseURL:  "https://example.openai.azure.com",
	})
	if err != nil {
		t.Fatalf("openai.New returned error: %v", err)
	}
	_, err = NewOpenAIAnalyzer(Options{Client: client})
	if !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Fatalf("err = %v, want ErrUnsupportedProvider", err)
	}
}

func TestAnalyzeBase64WrapsDataURL(t *testing.T) {
	capture := &visionCapture{}
	analyzer := newTestAnalyzer(t, capture, "a person with short dark hair")

	got, err := analyzer.AnalyzeBase64(context.Background(), "aW1hZ2U=", "")
	if err != nil {
		t.Fatalf("AnalyzeBase64 returned error: %v", err)
	}
	if got != "a person with short dark hair" {
		t.Fatalf("result = %q", got)
	}
	if capture.imageURL != "data:image/webp;base64,aW1hZ2U=" {
		t.Fatalf("image url = %q, want data url wrapping", capture.imageURL)
	}
	if capture.model != "gpt-4o-mini" {
		t.Fatalf("model = %q, want analyzer default", capture.model)
	}
}

func TestAnalyzeURLCachesByModelAndImage(t *testing.T) {
	capture := &visionCapture{}
	analyzer := newTestAnalyzer(t, capture, "a weathered sailor")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := analyzer.AnalyzeURL(ctx, "https://img.example/portrait.png", ""); err != nil {
			t.Fatalf("AnalyzeURL returned error: %v", err)
		}
	}
	if capture.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1 (cached)", capture.calls)
	}

	// A different model must miss the cache.
	if _, err := analyzer.AnalyzeURL(ctx, "https://img.example/portrait.png", "gpt-4o"); err != nil {
		t.Fatalf("AnalyzeURL returned error: %v", err)
	}
	if capture.calls != 2 {
		t.Fatalf("upstream calls = %d, want 2 after model change", capture.calls)
	}
	if capture.model != "gpt-4o" {
		t.Fatalf("model = %q, want per-request override", capture.model)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	capture := &visionCapture{}
	analyzer := newTestAnalyzer(t, capture, "ignored")

	if _, err := analyzer.AnalyzeURL(context.Background(), "  ", ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if _, err := analyzer.AnalyzeBase64(context.Background(), "", ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if capture.calls != 0 {
		t.Fatalf("upstream calls = %d, want 0", capture.calls)
	}
}

func TestAppearanceInstructionMentionsColor(t *testing.T) {
	t.Parallel()
	if !strings.Contains(appearanceInstruction, "skin color") {
		t.Fatal("instruction must require skin color to keep outputs uniform")
	}
}
