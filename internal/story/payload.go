package story

import (
	"encoding/json"
	"errors"
	"strings"

	"storybook/internal/domain"
)

// Wire shapes the models are instructed to answer with. They are kept apart
// from the domain types so response quirks stay contained here.

type scenesPayload struct {
	Scenes []scenePayload `json:"scenes"`
}

type scenePayload struct {
	Index int          `json:"index"`
	Text  string       `json:"text"`
	Image imagePayload `json:"image"`
}

type imagePayload struct {
	Prompt    string `json:"prompt"`
	URL       string `json:"url"`
	SignedURL string `json:"signed_url"`
}

type entitiesPayload struct {
	Entities []entityPayload `json:"entities"`
}

type entityPayload struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Appearance string `json:"appearance"`
}

type appearancePayload struct {
	DetailedAppearance string `json:"detailed_appearance"`
}

type metadataPayload struct {
	Title    string   `json:"title"`
	Genre    string   `json:"genre"`
	Keywords []string `json:"keywords"`
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// normalizeScenes converts model output into domain scenes: indexes are
// renumbered 0..n-1, text is bounded, and image URLs are forced empty since
// uploads happen later.
func normalizeScenes(payload []scenePayload) []domain.Scene {
	scenes := make([]domain.Scene, 0, len(payload))
	for _, s := range payload {
		text := truncateRunes(strings.TrimSpace(s.Text), domain.MaxSceneTextLen)
		prompt := strings.TrimSpace(s.Image.Prompt)
		if text == "" && prompt == "" {
			continue
		}
		scenes = append(scenes, domain.Scene{
			Index: len(scenes),
			Text:  text,
			Image: domain.SceneImage{Prompt: prompt, URL: "", SignedURL: ""},
		})
	}
	return scenes
}

// mergeEntities combines request entities with model-extracted ones. Request
// entities always survive with their original IDs and appearance text; an
// extracted entity whose name matches (case-insensitively) only fills gaps.
// New entities are appended with IDs following the highest request ID.
func mergeEntities(requested []domain.Entity, extracted []entityPayload) []domain.Entity {
	merged := make([]domain.Entity, len(requested))
	copy(merged, requested)

	byName := make(map[string]int, len(merged))
	nextID := 0
	for i, e := range merged {
		if key := entityKey(e.Name); key != "" {
			byName[key] = i
		}
		if e.ID >= nextID {
			nextID = e.ID + 1
		}
	}

	for _, ex := range extracted {
		name := strings.TrimSpace(ex.Name)
		key := entityKey(name)
		if key == "" {
			continue
		}
		if i, ok := byName[key]; ok {
			if merged[i].Appearance == "" {
				merged[i].Appearance = strings.TrimSpace(ex.Appearance)
			}
			continue
		}
		merged = append(merged, domain.Entity{
			ID:         nextID,
			Name:       name,
			Appearance: strings.TrimSpace(ex.Appearance),
		})
		byName[key] = len(merged) - 1
		nextID++
	}
	return merged
}

func entityKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func dedupeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	var result []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lower := strings.ToLower(kw)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		result = append(result, kw)
	}
	return result
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
