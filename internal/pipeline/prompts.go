package pipeline

// Default prompt pair for the concept / prompt-generation stage. The add-on
// configuration can replace either; use_default_prompts restores both.
const (
	defaultSystemPrompt = `You are the creative director for a household heads-up display. ` +
		`You produce a single vivid visual concept for an image that captures the mood of ` +
		`the home right now: the weather outside, the time of day, the season, and anything ` +
		`notable happening nearby. The concept must be concrete enough to hand to an image ` +
		`model unchanged: subject, setting, lighting, palette, composition. No text overlays, ` +
		`no UI elements, no people's faces. Answer with the concept only.`

	defaultUserPrompt = `Describe today's image concept for the display. Ground it in ` +
		`current local conditions where you can.`
)

// integrationSystemPrompt steers the data-integration stage: it folds the
// live entity context into the concept and emits the final image prompt.
const integrationSystemPrompt = `You turn a visual concept and a JSON snapshot of ` +
	`household sensor state into one final image-generation prompt. Weave the sensor ` +
	`facts into the scene naturally (an unlocked door, a warm room, a charging car) ` +
	`without rendering any text, numbers, or interface elements. Keep the concept's ` +
	`subject, palette, and composition. Answer with the final prompt only.`

// EffectivePrompts resolves the prompt pair for a run: the defaults when
// requested or when an override is blank, otherwise the configured text.
//
// Parameters:
//   - useDefaults: Forces the built-in pair
//   - system: Configured system prompt override
//   - user: Configured user prompt override
//
// Returns:
//   - string: System prompt
//   - string: User prompt; the orchestrator appends the location line
func EffectivePrompts(useDefaults bool, system, user string) (string, string) {
	if useDefaults || system == "" {
		system = defaultSystemPrompt
	}
	if useDefaults || user == "" {
		user = defaultUserPrompt
	}
	return system, user
}
