package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/hud-informer/internal/location"
	"github.com/nerrad567/hud-informer/internal/media"
	"github.com/nerrad567/hud-informer/internal/openai"
)

// Mode selects the stage sequence.
const (
	ModeThreeStep = "three_step"
	ModeTwoStep   = "two_step"
)

// Stage names, as they appear in step results, events, and telemetry.
const (
	StageConcept     = "concept_generation"
	StageIntegration = "data_integration"
	StagePrompt      = "prompt_generation"
	StageImageRender = "image_render"
)

// CompletionClient is the text-generation surface the stages call.
// Satisfied by *openai.Client.
type CompletionClient interface {
	Complete(ctx context.Context, req openai.ChatRequest) (openai.Completion, error)
	Respond(ctx context.Context, req openai.ResponsesRequest) (openai.Response, error)
}

// ImageClient is the image-generation surface. Satisfied by *openai.Client.
type ImageClient interface {
	GenerateImage(ctx context.Context, req openai.ImageRequest) (openai.Image, error)
}

// ArtifactStore writes run artifacts. Satisfied by *media.Store.
type ArtifactStore interface {
	SaveImage(data []byte, ts time.Time, ext string) (media.Saved, error)
	Paths(ts time.Time, ext string) media.Saved
	Copy(src, dst string) error
}

// PostProcessor runs ffmpeg steps. Satisfied by *media.Processor.
type PostProcessor interface {
	Resize(ctx context.Context, src, dst, target string) error
	EncodeVideo(ctx context.Context, src, dst string, opts media.VideoOptions) error
}

// Logger is the minimal logging surface the orchestrator needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Settings are the per-run generation parameters, mapped from
// configuration by the caller.
type Settings struct {
	Mode string

	ConceptModel     string
	IntegrationModel string
	FallbackModel    string
	ImageModel       string
	ImageSize        string
	ImageQuality     string
	ReasoningEffort  string

	SystemPrompt     string
	UserPrompt       string
	SearchDirectives []string
	MaxTokens        int
	Temperature      float64

	Resize           bool
	TargetResolution string
	SaveOriginal     bool

	VideoEnabled bool
	Video        media.VideoOptions
}

// Input is what one run consumes: the flattened state context and the
// resolved home location.
type Input struct {
	// Context is the JSON form of the flattened entity context.
	Context string

	// Home localizes web search and the prompt framing.
	Home location.Home
}

// StepResult records one attempted stage. A stage that fell back still
// produces exactly one result, flagged UsedFallback and carrying the
// fallback's payload and model.
type StepResult struct {
	Name         string        `json:"name"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Output       string        `json:"output,omitempty"`
	Model        string        `json:"model"`
	UsedFallback bool          `json:"used_fallback"`
	Duration     time.Duration `json:"-"`
	Usage        openai.Usage  `json:"usage"`
}

// MarshalJSON emits the wall-clock duration as fractional seconds, which
// is what event consumers expect.
func (s StepResult) MarshalJSON() ([]byte, error) {
	type plain StepResult
	return json.Marshal(struct {
		plain
		DurationSeconds float64 `json:"duration_seconds"`
	}{plain(s), s.Duration.Seconds()})
}

// UnmarshalJSON is the inverse of MarshalJSON, restoring Duration from
// the duration_seconds field.
func (s *StepResult) UnmarshalJSON(data []byte) error {
	type plain StepResult
	aux := struct {
		*plain
		DurationSeconds float64 `json:"duration_seconds"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Duration = time.Duration(aux.DurationSeconds * float64(time.Second))
	return nil
}

// Artifacts are the file paths a run produced. Empty paths mean the
// corresponding artifact was not written.
type Artifacts struct {
	ImagePath        string `json:"image_path,omitempty"`
	ImageArchivePath string `json:"image_archive_path,omitempty"`
	VideoPath        string `json:"video_path,omitempty"`
	VideoArchivePath string `json:"video_archive_path,omitempty"`
}

// Outcome is the complete record of one run.
type Outcome struct {
	RunID      string        `json:"run_id"`
	Mode       string        `json:"mode"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"-"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Steps      []StepResult  `json:"steps"`
	Artifacts  Artifacts     `json:"artifacts"`
	TotalUsage openai.Usage  `json:"total_usage"`
}

// MarshalJSON emits the run duration as fractional seconds.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type plain Outcome
	return json.Marshal(struct {
		plain
		DurationSeconds float64 `json:"duration_seconds"`
	}{plain(o), o.Duration.Seconds()})
}

// UnmarshalJSON restores Duration from the duration_seconds field.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	type plain Outcome
	aux := struct {
		*plain
		DurationSeconds float64 `json:"duration_seconds"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.Duration = time.Duration(aux.DurationSeconds * float64(time.Second))
	return nil
}
