// HUD Informer - ambient AI imagery for Home Assistant
//
// This is the main entry point for the HUD Informer add-on daemon. It
// watches for generate commands (stdin or MQTT), gathers entity state
// from the Supervisor API, runs the generation pipeline, and reports
// the outcome back to Home Assistant as events.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/nerrad567/hud-informer/migrations"

	"github.com/nerrad567/hud-informer/internal/hacontext"
	"github.com/nerrad567/hud-informer/internal/infrastructure/config"
	"github.com/nerrad567/hud-informer/internal/infrastructure/database"
	"github.com/nerrad567/hud-informer/internal/infrastructure/influxdb"
	"github.com/nerrad567/hud-informer/internal/infrastructure/logging"
	"github.com/nerrad567/hud-informer/internal/infrastructure/mqtt"
	"github.com/nerrad567/hud-informer/internal/location"
	"github.com/nerrad567/hud-informer/internal/media"
	"github.com/nerrad567/hud-informer/internal/openai"
	"github.com/nerrad567/hud-informer/internal/pipeline"
	"github.com/nerrad567/hud-informer/internal/reference"
	"github.com/nerrad567/hud-informer/internal/supervisor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// Home Assistant event types fired after each run.
const (
	eventRunComplete   = "hud_informer_complete"
	eventImageComplete = "hud_informer_image_complete"
	eventVideoComplete = "hud_informer_video_complete"
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired components for the command loop.
type app struct {
	cfg          *config.Config
	log          *logging.Logger
	refs         []reference.Reference
	supervisor   *supervisor.Client
	builder      *hacontext.Builder
	orchestrator *pipeline.Orchestrator
	history      *pipeline.HistoryStore
	mqtt         *mqtt.Client
	influx       *influxdb.Client
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting HUD Informer",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Parse the monitored entity references up front. Only a genuinely
	// unusable list is a startup error; an unterminated template degrades
	// inside parseReferences.
	refs, err := parseReferences(cfg.Entities.References, cfg.Entities.ListStyle, log)
	if err != nil {
		return fmt.Errorf("parsing entity references: %w", err)
	}
	log.Info("entity references parsed", "count", len(refs))

	a := &app{cfg: cfg, log: log, refs: refs}

	// Run-history database (optional)
	if cfg.Database.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("run history database ready", "path", db.Path())

		a.history = pipeline.NewHistoryStore(db)
	} else {
		log.Info("run history disabled")
	}

	// MQTT transport (optional)
	commands := make(chan string, 1)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT, log)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		subErr := mqttClient.Subscribe(mqtt.CommandTopic, byte(cfg.MQTT.QoS), func(topic string, payload []byte) error {
			action, parseErr := parseCommand(payload)
			if parseErr != nil {
				log.Warn("ignoring malformed MQTT command", "topic", topic, "error", parseErr)
				return nil
			}
			select {
			case commands <- action:
			default:
				log.Warn("command dropped, run already queued", "action", action)
			}
			return nil
		})
		if subErr != nil {
			return fmt.Errorf("subscribing to command topic: %w", subErr)
		}

		a.mqtt = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		a.influx = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Supervisor API client
	a.supervisor, err = supervisor.New(cfg.Supervisor.APIURL, cfg.Supervisor.Token,
		cfg.GetSupervisorTimeout(), log)
	if err != nil {
		return fmt.Errorf("creating supervisor client: %w", err)
	}

	a.builder, err = hacontext.NewBuilder(a.supervisor, log)
	if err != nil {
		return fmt.Errorf("creating context builder: %w", err)
	}

	// OpenAI client drives both the text and image stages. A missing API
	// key is not fatal here: each call fails fatally and the run outcome
	// carries the error, so the add-on never restart-loops on a blank key.
	if cfg.OpenAI.APIKey == "" {
		log.Warn("no OpenAI API key configured, generation runs will fail until one is set")
	}
	ai := openai.New(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.GetOpenAITimeout(), log)

	store := media.NewStore(cfg.Output.Dir, cfg.Output.FilenamePrefix, log)
	processor := media.NewProcessor(log)

	a.orchestrator, err = pipeline.New(pipelineSettings(cfg), ai, ai, store, processor, log)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	log.Info("initialisation complete, waiting for commands",
		"mode", cfg.Pipeline.Mode,
	)

	// Feed stdin commands into the same channel as MQTT ones. The add-on
	// host writes one JSON value per line.
	go readCommands(ctx, os.Stdin, commands, log)

	// One run at a time; a command arriving mid-run waits in the channel.
	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received, cleaning up")
			log.Info("HUD Informer stopped")
			return nil
		case action := <-commands:
			if action != "generate" {
				log.Warn("ignoring unknown command", "action", action)
				continue
			}
			a.runOnce(ctx)
		}
	}
}

// readCommands decodes newline-delimited JSON commands from r and queues
// the resulting actions. Malformed lines are logged and skipped; the loop
// only stops when r is exhausted or ctx is cancelled.
func readCommands(ctx context.Context, r *os.File, commands chan<- string, log *logging.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		action, err := parseCommand([]byte(line))
		if err != nil {
			log.Warn("ignoring malformed command", "error", err)
			continue
		}
		select {
		case commands <- action:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("stdin closed", "error", err)
	}
}

// parseCommand extracts the action from a command payload. Both the bare
// string form ("generate") and the object form ({"action": "generate"})
// are accepted.
//
// Parameters:
//   - payload: Raw JSON command
//
// Returns:
//   - string: The requested action
//   - error: If the payload is not valid JSON or names no action
func parseCommand(payload []byte) (string, error) {
	var action string
	if err := json.Unmarshal(payload, &action); err == nil {
		if action == "" {
			return "", errors.New("empty command")
		}
		return action, nil
	}

	var cmd struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return "", fmt.Errorf("decoding command: %w", err)
	}
	if cmd.Action == "" {
		return "", errors.New("command has no action")
	}
	return cmd.Action, nil
}

// runOnce executes a single generation run and reports the outcome to all
// configured sinks. Reporting failures are logged, never fatal.
func (a *app) runOnce(ctx context.Context) {
	a.log.Info("generation run starting")

	home := location.Discover(ctx, a.supervisor, a.cfg.Entities.HomeReference, location.Home{
		Name:      a.cfg.Site.Name,
		Latitude:  a.cfg.Site.Location.Latitude,
		Longitude: a.cfg.Site.Location.Longitude,
		Timezone:  a.cfg.Site.Timezone,
	}, a.log)

	resolved, err := a.builder.Build(ctx, a.refs)
	if err != nil {
		a.log.Error("context build failed, run aborted", "error", err)
		return
	}

	contextJSON, err := json.Marshal(hacontext.Transform(resolved))
	if err != nil {
		a.log.Error("context encoding failed, run aborted", "error", err)
		return
	}

	outcome, err := a.orchestrator.Run(ctx, pipeline.Input{
		Context: string(contextJSON),
		Home:    home,
	})
	if err != nil {
		a.log.Error("generation run failed", "run_id", outcome.RunID, "error", err)
	} else {
		a.log.Info("generation run complete",
			"run_id", outcome.RunID,
			"duration", outcome.Duration,
			"image", outcome.Artifacts.ImagePath,
			"video", outcome.Artifacts.VideoPath,
		)
	}

	a.report(ctx, outcome)
}

// report delivers the outcome to Home Assistant, MQTT, the run history
// database and InfluxDB. Every sink is best-effort.
func (a *app) report(ctx context.Context, outcome pipeline.Outcome) {
	if err := a.supervisor.FireEvent(ctx, eventRunComplete, outcome); err != nil {
		a.log.Warn("firing completion event failed", "error", err)
	}
	if outcome.Artifacts.ImagePath != "" {
		payload := map[string]string{"run_id": outcome.RunID, "path": outcome.Artifacts.ImagePath}
		if err := a.supervisor.FireEvent(ctx, eventImageComplete, payload); err != nil {
			a.log.Warn("firing image event failed", "error", err)
		}
	}
	if outcome.Artifacts.VideoPath != "" {
		payload := map[string]string{"run_id": outcome.RunID, "path": outcome.Artifacts.VideoPath}
		if err := a.supervisor.FireEvent(ctx, eventVideoComplete, payload); err != nil {
			a.log.Warn("firing video event failed", "error", err)
		}
	}

	if a.mqtt != nil {
		if err := a.mqtt.PublishEvent(eventRunComplete, outcome); err != nil {
			a.log.Warn("publishing outcome to MQTT failed", "error", err)
		}
	}

	if a.history != nil {
		if err := a.history.SaveRun(ctx, outcome); err != nil {
			a.log.Warn("saving run history failed", "error", err)
		}
	}

	if a.influx != nil {
		a.influx.WriteRunSummary(outcome)
	}
}

// pipelineSettings maps the loaded configuration onto pipeline settings.
func pipelineSettings(cfg *config.Config) pipeline.Settings {
	system, user := pipeline.EffectivePrompts(cfg.Pipeline.UseDefaultPrompts,
		cfg.Pipeline.SystemPrompt, cfg.Pipeline.UserPrompt)

	return pipeline.Settings{
		Mode: cfg.Pipeline.Mode,

		ConceptModel:     cfg.OpenAI.ConceptModel,
		IntegrationModel: cfg.OpenAI.IntegrationModel,
		FallbackModel:    cfg.OpenAI.FallbackModel,
		ImageModel:       cfg.OpenAI.ImageModel,
		ImageSize:        cfg.OpenAI.ImageSize,
		ImageQuality:     cfg.OpenAI.ImageQuality,
		ReasoningEffort:  cfg.OpenAI.ReasoningEffort,

		SystemPrompt:     system,
		UserPrompt:       user,
		SearchDirectives: cfg.Pipeline.SearchDirectives,
		MaxTokens:        cfg.Pipeline.MaxTokens,
		Temperature:      cfg.Pipeline.Temperature,

		Resize:           cfg.Output.Resize,
		TargetResolution: cfg.Output.TargetResolution,
		SaveOriginal:     cfg.Output.SaveOriginal,

		VideoEnabled: cfg.Video.Enabled,
		Video: media.VideoOptions{
			Duration:   cfg.Video.Duration,
			Framerate:  cfg.Video.Framerate,
			CustomArgs: cfg.Video.CustomArgs,
		},
	}
}

// parseReferences tokenizes the configured entity-reference list. An
// unterminated template does not abort: the tokenizer still emits every
// usable reference and turns the remainder into a plain token, so the
// condition is logged and the degraded list is used as-is.
func parseReferences(raw, style string, log *logging.Logger) ([]reference.Reference, error) {
	refs, err := reference.Tokenize(raw, parseListStyle(style))
	if err != nil {
		if !errors.Is(err, reference.ErrUnbalanced) {
			return nil, err
		}
		log.Warn("entity reference list has an unterminated template, continuing with usable references",
			"count", len(refs),
			"error", err,
		)
	}
	return refs, nil
}

// parseListStyle maps the configured list_style string to a tokenizer
// style, defaulting to auto-detection.
func parseListStyle(raw string) reference.ListStyle {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "comma":
		return reference.StyleComma
	case "newline":
		return reference.StyleNewline
	case "whitespace":
		return reference.StyleWhitespace
	default:
		return reference.StyleAuto
	}
}

// getConfigPath returns the configuration file path.
// Uses INFORMER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("INFORMER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
