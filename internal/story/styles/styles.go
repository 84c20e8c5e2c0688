// Package styles maps named art-style presets to full art-direction text for
// image prompts. Unknown names pass through verbatim so callers can supply
// free-form style descriptions.
package styles

import "strings"

var presets = map[string]string{
	"tintinstyle": "Belgian comic style featuring clean, uniform lines (ligne claire) with consistent line weight. " +
		"Use flat, vibrant colors with minimal shading to create a clear and bold look. " +
		"Characters should have simplified, realistic proportions with slightly stylized features. " +
		"Detailed but simplified backgrounds, adding depth without overpowering the characters. " +
		"The overall atmosphere is adventurous and friendly. Lighting is bright and even, with no complex shadows. " +
		"The scene should convey a sense of story and clarity, typical of classic European comics.",
	"toddlerstyle": "Cheerful and playful illustration for toddlers featuring characters with big round heads and small, chubby bodies. " +
		"The characters should have large, bright eyes and wide, friendly smiles, representing diverse skin tones and hairstyles. " +
		"Use a vibrant color palette with bold reds, yellows, blues, and greens, alongside soft pastels for a warm feel. " +
		"The background should be simple and whimsical, featuring elements like lush green grass, colorful flowers, and a sunny blue sky. " +
		"The art style should be cartoonish and hand-drawn, conveying a joyful and fun atmosphere.",
}

var aliases = map[string]string{
	"tintin":  "tintinstyle",
	"toddler": "toddlerstyle",
}

// Describe resolves a style name to its full art-direction text. Free-form
// input that matches no preset is returned unchanged.
func Describe(style string) string {
	key := strings.ToLower(strings.TrimSpace(style))
	if key == "" {
		return ""
	}
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	if text, ok := presets[key]; ok {
		return text
	}
	return strings.TrimSpace(style)
}

// Known reports whether the style resolves to a named preset.
func Known(style string) bool {
	key := strings.ToLower(strings.TrimSpace(style))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	_, ok := presets[key]
	return ok
}
