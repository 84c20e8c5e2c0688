package story

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

func chatReply(content string) *http.Response {
	body := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(data)),
	}
}

// pipelineTransport answers each chat call based on the system prompt it was
// sent with, so one transport can serve the whole four-step pipeline.
func pipelineTransport(t *testing.T) roundTripFunc {
	t.Helper()
	return func(r *http.Request) (*http.Response, error) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		if len(req.Messages) == 0 {
			return nil, errors.New("no messages")
		}
		system := req.Messages[0].Content
		switch {
		case strings.Contains(system, "storytelling"):
			return chatReply(`{"scenes":[
				{"index":0,"text":"Milo sets sail at dawn.","image":{"prompt":"Milo the cat on a small boat","url":"","signed_url":""}},
				{"index":1,"text":"A storm rolls in.","image":{"prompt":"Milo the cat facing a storm","url":"","signed_url":""}}
			]}`), nil
		case strings.Contains(system, "entity extraction"):
			return chatReply(`{"entities":[{"id":0,"name":"Milo","appearance":"a grey ship cat"}]}`), nil
		case strings.Contains(system, "character development"):
			return chatReply(`{"detailed_appearance":"a small grey cat with green eyes and a red scarf"}`), nil
		case strings.Contains(system, "metadata generation"):
			return chatReply(`{"title":"Milo at Sea","genre":"adventure","keywords":["sea","cat","storm"]}`), nil
		default:
			return nil, fmt.Errorf("unexpected system prompt: %s", system)
		}
	}
}

func testClient(t *testing.T, rt roundTripFunc) *openai.Client {
	t.Helper()
	client, err := openai.New(openai.Options{
		Provider:   openai.ProviderOpenAI,
		APIKey:     "dummy",
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("openai.New returned error: %v", err)
	}
	return client
}

func TestBuilderGeneratePipeline(t *testing.T) {
	builder := NewBuilder(Options{Client: testClient(t, pipelineTransport(t))})

	story, err := builder.Generate(context.Background(), Request{
		Scenario: "a cat goes to sea",
		Language: "english",
		Pages:    2,
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(story.Scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(story.Scenes))
	}
	if story.Scenes[0].Index != 0 || story.Scenes[1].Index != 1 {
		t.Fatalf("scene indexes = %d,%d, want 0,1", story.Scenes[0].Index, story.Scenes[1].Index)
	}
	if story.Scenes[0].Image.URL != "" {
		t.Fatalf("scene image url = %q, want empty", story.Scenes[0].Image.URL)
	}
	if len(story.Entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(story.Entities))
	}
	if story.Entities[0].DetailedAppearance == "" {
		t.Fatal("entity detailed appearance was not enriched")
	}
	if story.Metadata.Title != "Milo at Sea" {
		t.Fatalf("title = %q, want %q", story.Metadata.Title, "Milo at Sea")
	}
	if len(story.Metadata.Keywords) != 3 {
		t.Fatalf("keywords = %v, want 3 entries", story.Metadata.Keywords)
	}
}

func TestBuilderGenerateRequiresScenario(t *testing.T) {
	builder := NewBuilder(Options{})
	_, err := builder.Generate(context.Background(), Request{Scenario: "   "})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestBuilderFallsBackWithoutClient(t *testing.T) {
	var capturedReason string
	builder := NewBuilder(Options{
		OnFallback: func(reason string, err error) {
			capturedReason = reason
		},
	})

	story, err := builder.Generate(context.Background(), Request{
		Scenario: "a lighthouse keeper finds a map",
		Pages:    3,
		Entities: []domain.Entity{{ID: 1, Name: "ida", Appearance: "yellow coat"}},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if capturedReason != "no_client" {
		t.Fatalf("fallback reason = %q, want %q", capturedReason, "no_client")
	}
	if len(story.Scenes) != 3 {
		t.Fatalf("scenes = %d, want 3", len(story.Scenes))
	}
	if story.Entities[0].DetailedAppearance != "yellow coat" {
		t.Fatalf("detailed appearance = %q, want filled from appearance", story.Entities[0].DetailedAppearance)
	}
}

func TestBuilderFallsBackOnUpstreamFailure(t *testing.T) {
	var capturedReason string
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	builder := NewBuilder(Options{
		Client: client,
		OnFallback: func(reason string, err error) {
			capturedReason = reason
		},
	})

	story, err := builder.Generate(context.Background(), Request{Scenario: "a quiet village"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if capturedReason != "scenes" {
		t.Fatalf("fallback reason = %q, want %q", capturedReason, "scenes")
	}
	if len(story.Scenes) != domain.DefaultStoryPages {
		t.Fatalf("scenes = %d, want default %d", len(story.Scenes), domain.DefaultStoryPages)
	}
}

func TestClampPageCount(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   int
		want int
	}{
		{in: 0, want: domain.DefaultStoryPages},
		{in: -3, want: domain.DefaultStoryPages},
		{in: 1, want: 1},
		{in: 15, want: 15},
		{in: 40, want: domain.MaxStoryPages},
	}
	for _, tc := range cases {
		if got := domain.ClampPageCount(tc.in); got != tc.want {
			t.Fatalf("ClampPageCount(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
