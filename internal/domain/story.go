package domain

// Entity is a character or notable object tracked across a story. The
// detailed appearance is propagated into every image prompt that references
// the entity so illustrations stay visually consistent between scenes.
type Entity struct {
	ID                 int    `json:"id"`
	Name               string `json:"name,omitempty"`
	Appearance         string `json:"appearance,omitempty"`
	DetailedAppearance string `json:"detailed_appearance,omitempty"`
	Description        string `json:"description,omitempty"`
	Picture            string `json:"picture,omitempty"`
	Dreambooth         bool   `json:"dreambooth"`
}

// SceneImage holds the illustration prompt for a scene. URL fields are
// reserved for later upload steps and are always empty strings in generated
// stories.
type SceneImage struct {
	Prompt    string `json:"prompt"`
	URL       string `json:"url"`
	SignedURL string `json:"signed_url"`
}

// Scene is one page of a generated story.
type Scene struct {
	Index int        `json:"index"`
	Text  string     `json:"text"`
	Image SceneImage `json:"image"`
}

// StoryMetadata describes the story as a whole.
type StoryMetadata struct {
	Title    string   `json:"title"`
	Genre    string   `json:"genre"`
	Keywords []string `json:"keywords"`
}

// Story is the full structured storybook returned to the client.
type Story struct {
	Metadata StoryMetadata `json:"metadata"`
	Scenes   []Scene       `json:"scenes"`
	Entities []Entity      `json:"entities"`
}

// MaxSceneTextLen bounds narrative text per scene.
const MaxSceneTextLen = 300

// Page-count bounds, after the original short/medium/long presets.
const (
	MinStoryPages     = 1
	DefaultStoryPages = 5
	MaxStoryPages     = 15
)

// ClampPageCount normalizes a requested page count into the supported range.
func ClampPageCount(n int) int {
	if n <= 0 {
		return DefaultStoryPages
	}
	if n < MinStoryPages {
		return MinStoryPages
	}
	if n > MaxStoryPages {
		return MaxStoryPages
	}
	return n
}
