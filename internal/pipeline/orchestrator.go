package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/hud-informer/internal/openai"
)

// Orchestrator runs the staged generation pipeline. One run at a time; the
// caller serializes.
type Orchestrator struct {
	settings    Settings
	completions CompletionClient
	images      ImageClient
	store       ArtifactStore
	processor   PostProcessor
	logger      Logger

	// Injection points for tests.
	now   func() time.Time
	newID func() string
}

// New constructs an Orchestrator.
//
// Parameters:
//   - settings: Generation parameters mapped from configuration
//   - completions: Text endpoint client
//   - images: Image endpoint client
//   - store: Artifact writer; nil disables artifact output
//   - processor: ffmpeg steps; nil disables resize and video
//   - logger: Destination for run diagnostics; nil for none
//
// Returns:
//   - *Orchestrator: Ready-to-use orchestrator
//   - error: ErrUnknownMode for a mode outside three_step / two_step
func New(settings Settings, completions CompletionClient, images ImageClient,
	store ArtifactStore, processor PostProcessor, logger Logger) (*Orchestrator, error) {
	if settings.Mode != ModeThreeStep && settings.Mode != ModeTwoStep {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, settings.Mode)
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Orchestrator{
		settings:    settings,
		completions: completions,
		images:      images,
		store:       store,
		processor:   processor,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// stageOutput is what a stage run produces: text for the generation stages,
// image bytes for the render stage.
type stageOutput struct {
	text  string
	image []byte
	model string
	usage openai.Usage
}

// stageFunc executes one stage attempt against the accumulated run state.
type stageFunc func(ctx context.Context, run *runState) (stageOutput, error)

// stage describes one pipeline step: its primary attempt and, where the
// design allows one, a single fallback taken only on retryable failure.
type stage struct {
	name     string
	run      stageFunc
	fallback stageFunc
}

// runState accumulates stage payloads across a run.
type runState struct {
	input   Input
	concept string
	prompt  string
	image   []byte
}

// stages builds the descriptor table for the configured mode.
func (o *Orchestrator) stages() []stage {
	switch o.settings.Mode {
	case ModeTwoStep:
		return []stage{
			{name: StagePrompt, run: o.runPromptGeneration, fallback: o.runPromptFallback},
			{name: StageImageRender, run: o.runImageRender},
		}
	default:
		return []stage{
			{name: StageConcept, run: o.runConceptGeneration},
			{name: StageIntegration, run: o.runDataIntegration, fallback: o.runIntegrationFallback},
			{name: StageImageRender, run: o.runImageRender},
		}
	}
}

// Run executes the configured stage sequence, then post-processes and
// archives the artifacts.
//
// A stage failure short-circuits: later stages never run, and the outcome
// carries exactly the attempted results. A stage with a fallback gets one
// fallback attempt on a retryable failure; the stage still contributes a
// single result. Post-processing failures (resize, video) downgrade the
// artifact set but never the run result.
//
// Parameters:
//   - ctx: Cancels in-flight API calls and ffmpeg invocations
//   - input: Flattened state context and home location
//
// Returns:
//   - Outcome: Complete run record; inspect Success rather than the error
//   - error: ErrStageFailed wrapping the failing stage's error
func (o *Orchestrator) Run(ctx context.Context, input Input) (Outcome, error) {
	runID := o.newID()
	started := o.now()
	run := &runState{input: input}

	o.logger.Info("starting generation run", "run_id", runID, "mode", o.settings.Mode)

	var steps []StepResult
	var failure error

	for _, st := range o.stages() {
		result, out, err := o.executeStage(ctx, st, run)
		steps = append(steps, result)
		if err != nil {
			failure = fmt.Errorf("%w: %s: %w", ErrStageFailed, st.name, err)
			o.logger.Error("stage failed", "run_id", runID, "stage", st.name, "error", err)
			break
		}

		switch st.name {
		case StageConcept:
			run.concept = out.text
		case StagePrompt, StageIntegration:
			run.prompt = out.text
		case StageImageRender:
			run.image = out.image
		}
		o.logger.Debug("stage completed", "run_id", runID, "stage", st.name,
			"duration", result.Duration, "fallback", result.UsedFallback)
	}

	var artifacts Artifacts
	if failure == nil {
		if len(run.image) == 0 {
			failure = ErrNoImage
		} else {
			artifacts = o.postProcess(ctx, started, run.image)
		}
	}

	outcome := BuildOutcome(runID, o.settings.Mode, started, o.now(), steps, artifacts, failure)
	if outcome.Success {
		o.logger.Info("generation run succeeded", "run_id", runID,
			"duration", outcome.Duration, "image", artifacts.ImagePath)
	}
	return outcome, failure
}

// executeStage runs one stage, applying the single-fallback rule.
func (o *Orchestrator) executeStage(ctx context.Context, st stage, run *runState) (StepResult, stageOutput, error) {
	start := o.now()
	out, err := st.run(ctx, run)
	usedFallback := false

	if err != nil && st.fallback != nil && openai.IsRetryable(err) {
		o.logger.Warn("stage falling back", "stage", st.name, "error", err)
		out, err = st.fallback(ctx, run)
		usedFallback = true
	}

	result := StepResult{
		Name:         st.name,
		Success:      err == nil,
		Model:        out.model,
		UsedFallback: usedFallback,
		Duration:     o.now().Sub(start),
		Usage:        out.usage,
		Output:       out.text,
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, out, err
}

// ─── Stage implementations ──────────────────────────────────────────────────

func (o *Orchestrator) runConceptGeneration(ctx context.Context, run *runState) (stageOutput, error) {
	resp, err := o.completions.Respond(ctx, openai.ResponsesRequest{
		Model:           o.settings.ConceptModel,
		Instructions:    o.settings.SystemPrompt,
		Input:           o.conceptInput(run),
		ReasoningEffort: o.settings.ReasoningEffort,
		WebSearch:       true,
		UserLocation:    o.userLocation(run),
		MaxOutputTokens: o.settings.MaxTokens,
	})
	if err != nil {
		return stageOutput{model: o.settings.ConceptModel}, err
	}
	return stageOutput{text: resp.Text, model: o.settings.ConceptModel, usage: resp.Usage}, nil
}

func (o *Orchestrator) runDataIntegration(ctx context.Context, run *runState) (stageOutput, error) {
	return o.integrate(ctx, run, o.settings.IntegrationModel)
}

func (o *Orchestrator) runIntegrationFallback(ctx context.Context, run *runState) (stageOutput, error) {
	return o.integrate(ctx, run, o.settings.FallbackModel)
}

func (o *Orchestrator) integrate(ctx context.Context, run *runState, model string) (stageOutput, error) {
	user := "Concept:\n" + run.concept + "\n\nSensor state:\n" + run.input.Context
	resp, err := o.completions.Complete(ctx, openai.ChatRequest{
		Model: model,
		Messages: []openai.Message{
			{Role: "system", Content: integrationSystemPrompt},
			{Role: "user", Content: user},
		},
		MaxTokens:   o.settings.MaxTokens,
		Temperature: o.settings.Temperature,
	})
	if err != nil {
		return stageOutput{model: model}, err
	}
	return stageOutput{text: resp.Text, model: model, usage: resp.Usage}, nil
}

// runPromptGeneration is the two_step first stage: one responses call that
// folds the sensor context in directly and emits the final image prompt.
func (o *Orchestrator) runPromptGeneration(ctx context.Context, run *runState) (stageOutput, error) {
	resp, err := o.completions.Respond(ctx, openai.ResponsesRequest{
		Model:           o.settings.ConceptModel,
		Instructions:    o.settings.SystemPrompt,
		Input:           o.conceptInput(run) + "\n\nSensor state:\n" + run.input.Context,
		ReasoningEffort: o.settings.ReasoningEffort,
		WebSearch:       true,
		UserLocation:    o.userLocation(run),
		MaxOutputTokens: o.settings.MaxTokens,
	})
	if err != nil {
		return stageOutput{model: o.settings.ConceptModel}, err
	}
	return stageOutput{text: resp.Text, model: o.settings.ConceptModel, usage: resp.Usage}, nil
}

// runPromptFallback retries prompt generation as a plain chat completion
// against the fallback model, without web search.
func (o *Orchestrator) runPromptFallback(ctx context.Context, run *runState) (stageOutput, error) {
	user := o.conceptInput(run) + "\n\nSensor state:\n" + run.input.Context
	resp, err := o.completions.Complete(ctx, openai.ChatRequest{
		Model: o.settings.FallbackModel,
		Messages: []openai.Message{
			{Role: "system", Content: o.settings.SystemPrompt},
			{Role: "user", Content: user},
		},
		MaxTokens:   o.settings.MaxTokens,
		Temperature: o.settings.Temperature,
	})
	if err != nil {
		return stageOutput{model: o.settings.FallbackModel}, err
	}
	return stageOutput{text: resp.Text, model: o.settings.FallbackModel, usage: resp.Usage}, nil
}

func (o *Orchestrator) runImageRender(ctx context.Context, run *runState) (stageOutput, error) {
	img, err := o.images.GenerateImage(ctx, openai.ImageRequest{
		Model:   o.settings.ImageModel,
		Prompt:  run.prompt,
		Size:    o.settings.ImageSize,
		Quality: o.settings.ImageQuality,
	})
	if err != nil {
		return stageOutput{model: o.settings.ImageModel}, err
	}
	return stageOutput{image: img.Data, model: o.settings.ImageModel, usage: img.Usage}, nil
}

// conceptInput assembles the user prompt with the location line and any
// configured search directives.
func (o *Orchestrator) conceptInput(run *runState) string {
	home := run.input.Home
	var b strings.Builder
	b.WriteString(o.settings.UserPrompt)
	fmt.Fprintf(&b, "\n\nLocation: %s (%.4f, %.4f), timezone %s. Local time: %s.",
		home.Name, home.Latitude, home.Longitude, home.Timezone,
		o.localTime(home.Timezone).Format("Monday 2 January 2006, 15:04"))
	for _, directive := range o.settings.SearchDirectives {
		b.WriteString("\n- ")
		b.WriteString(directive)
	}
	return b.String()
}

func (o *Orchestrator) localTime(tz string) time.Time {
	now := o.now()
	if loc, err := time.LoadLocation(tz); err == nil {
		return now.In(loc)
	}
	return now
}

func (o *Orchestrator) userLocation(run *runState) *openai.UserLocation {
	home := run.input.Home
	if home.Name == "" && home.Timezone == "" {
		return nil
	}
	return &openai.UserLocation{
		City:     home.Name,
		Timezone: home.Timezone,
	}
}

// postProcess writes artifacts and runs the optional ffmpeg steps. Every
// failure here is logged and downgrades the artifact set only.
func (o *Orchestrator) postProcess(ctx context.Context, started time.Time, image []byte) Artifacts {
	var artifacts Artifacts
	if o.store == nil {
		return artifacts
	}

	saved, err := o.store.SaveImage(image, started, ".png")
	if err != nil {
		o.logger.Error("saving image failed", "error", err)
		return artifacts
	}
	artifacts.ImagePath = saved.Current
	artifacts.ImageArchivePath = saved.Archive

	if o.settings.Resize && o.processor != nil {
		if err := o.processor.Resize(ctx, saved.Archive, saved.Current, o.settings.TargetResolution); err != nil {
			o.logger.Warn("resize failed, keeping original", "error", err)
		} else if !o.settings.SaveOriginal {
			if err := o.store.Copy(saved.Current, saved.Archive); err != nil {
				o.logger.Warn("overwriting archive with resized image failed", "error", err)
			}
		}
	}

	if o.settings.VideoEnabled && o.processor != nil {
		video := o.store.Paths(started, ".mp4")
		if err := o.processor.EncodeVideo(ctx, saved.Current, video.Archive, o.settings.Video); err != nil {
			o.logger.Warn("video encoding failed", "error", err)
		} else if err := o.store.Copy(video.Archive, video.Current); err != nil {
			o.logger.Warn("promoting video failed", "error", err)
		} else {
			artifacts.VideoPath = video.Current
			artifacts.VideoArchivePath = video.Archive
		}
	}

	return artifacts
}
