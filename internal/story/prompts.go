package story

import (
	"encoding/json"
	"fmt"
	"strings"

	"storybook/internal/domain"
)

const (
	scenesSystemPrompt     = "You are a creative assistant for storytelling. Respond only with valid JSON."
	extractSystemPrompt    = "You are an AI assistant for entity extraction. Respond only with valid JSON."
	appearanceSystemPrompt = "You are a creative assistant for character development. Respond only with valid JSON."
	metadataSystemPrompt   = "You are a creative assistant for book metadata generation. Respond only with valid JSON."
)

func buildScenesPrompt(req Request) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Write a story in %s with exactly %d pages, unless the scenario itself asks for a different amount. ", req.Language, req.Pages)
	sb.WriteString("The story should feature the given entities and follow the given storyline. Structure it with an introduction, rising action, climax and resolution.\n\n")
	fmt.Fprintf(sb, "Entities:\n%s\n\n", marshalForPrompt(req.Entities))
	fmt.Fprintf(sb, "Storyline scenario:\n%s\n\n", strings.TrimSpace(req.Scenario))
	sb.WriteString("Answer strictly as JSON matching this schema: ")
	sb.WriteString(`{"scenes":[{"index":int,"text":string,"image":{"prompt":string,"url":string,"signed_url":string}}]}`)
	fmt.Fprintf(sb, ". Indexes start at 0. The text of each scene must be shorter than %d characters. ", domain.MaxSceneTextLen)
	sb.WriteString("Both url and signed_url are empty strings. The image prompt describes an illustration for the scene and must name the entities very clearly when they appear. Make the scenes very different from each other.")
	return sb.String()
}

func buildExtractPrompt(scenes []domain.Scene, entities []domain.Entity) string {
	sb := &strings.Builder{}
	sb.WriteString("Analyze the following story scenes and extract all unique entities. ")
	sb.WriteString("An entity qualifies only when it occurs in at least two separate image prompts, unless it is already listed under existing entities.\n\n")
	fmt.Fprintf(sb, "Story scenes:\n%s\n\n", marshalForPrompt(scenes))
	fmt.Fprintf(sb, "Existing entities:\n%s\n\n", marshalForPrompt(entities))
	sb.WriteString("Answer strictly as JSON matching this schema: ")
	sb.WriteString(`{"entities":[{"id":int,"name":string,"appearance":string}]}`)
	sb.WriteString(". The appearance field compiles all descriptive or appearance-related information about the entity found in the story.")
	return sb.String()
}

func buildAppearancePrompt(entity domain.Entity) string {
	sb := &strings.Builder{}
	sb.WriteString("Given the following entity details, generate a vivid and detailed physical description focusing solely on appearance, clothing and notable features. ")
	sb.WriteString("Keep it concise, retaining only the essential visual features needed for an image: main clothing colors, materials, accessories and prominent physical traits. Omit overly specific or repetitive details.\n\n")
	fmt.Fprintf(sb, "Entity name: %s\nAppearance: %s\n\n", entity.Name, coalesce(entity.Appearance, entity.Description))
	sb.WriteString(`Answer strictly as JSON: {"detailed_appearance":string}.`)
	return sb.String()
}

func buildMetadataPrompt(scenes []domain.Scene) string {
	sb := &strings.Builder{}
	sb.WriteString("Given the following story scenes, generate metadata for the story: a suitable, engaging title, a relevant genre, and 3-5 keywords representing its core themes.\n\n")
	fmt.Fprintf(sb, "Scenes:\n%s\n\n", marshalForPrompt(scenes))
	sb.WriteString(`Answer strictly as JSON: {"title":string,"genre":string,"keywords":string[]}.`)
	return sb.String()
}

func marshalForPrompt(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
