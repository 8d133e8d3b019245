package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for HUD Informer.
// All configuration is loaded from YAML and can be overridden by environment
// variables, which is how the Home Assistant add-on options reach the process.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Entities   EntitiesConfig   `yaml:"entities"`
	Output     OutputConfig     `yaml:"output"`
	Video      VideoConfig      `yaml:"video"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig contains site-specific information used as the fallback when the
// home zone entity cannot be resolved at run time.
type SiteConfig struct {
	Name     string         `yaml:"name"`
	Timezone string         `yaml:"timezone"`
	Location LocationConfig `yaml:"location"`
}

// LocationConfig contains geographic coordinates for the web-search user
// location hint and prompt context.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// SupervisorConfig contains Home Assistant Supervisor API settings.
type SupervisorConfig struct {
	APIURL  string `yaml:"api_url"`
	Token   string `yaml:"token"`
	Timeout int    `yaml:"timeout"`
}

// OpenAIConfig contains remote AI endpoint settings.
type OpenAIConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	ConceptModel     string `yaml:"concept_model"`
	IntegrationModel string `yaml:"integration_model"`
	FallbackModel    string `yaml:"fallback_model"`
	ImageModel       string `yaml:"image_model"`
	ImageQuality     string `yaml:"image_quality"`
	ImageSize        string `yaml:"image_size"`
	ReasoningEffort  string `yaml:"reasoning_effort"`
	Timeout          int    `yaml:"timeout"`
}

// PipelineConfig contains generation pipeline settings.
type PipelineConfig struct {
	// Mode selects the stage sequence: "three_step" (concept, data
	// integration, image render) or "two_step" (prompt, image render).
	Mode              string   `yaml:"mode"`
	UseDefaultPrompts bool     `yaml:"use_default_prompts"`
	SystemPrompt      string   `yaml:"system_prompt"`
	UserPrompt        string   `yaml:"user_prompt"`
	SearchDirectives  []string `yaml:"search_directives"`
	MaxTokens         int      `yaml:"max_tokens"`
	Temperature       float64  `yaml:"temperature"`
}

// EntitiesConfig contains the monitored entity reference list.
type EntitiesConfig struct {
	// References is the raw configuration string mixing plain entity ids
	// and template expressions. Parsed by internal/reference.
	References string `yaml:"references"`

	// ListStyle selects the delimiter: auto, comma, newline, whitespace.
	ListStyle string `yaml:"list_style"`

	// HomeReference is the zone entity used for location discovery.
	HomeReference string `yaml:"home_reference"`
}

// OutputConfig contains artifact output settings.
type OutputConfig struct {
	Dir              string `yaml:"dir"`
	FilenamePrefix   string `yaml:"filename_prefix"`
	Resize           bool   `yaml:"resize"`
	TargetResolution string `yaml:"target_resolution"`
	SaveOriginal     bool   `yaml:"save_original"`
}

// VideoConfig contains looping-video encoding settings.
type VideoConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Duration   int    `yaml:"duration"`
	Framerate  string `yaml:"framerate"`
	CustomArgs string `yaml:"custom_args"`
}

// DatabaseConfig contains SQLite run-history settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Valid pipeline modes.
const (
	ModeThreeStep = "three_step"
	ModeTwoStep   = "two_step"
)

// imageSizePattern validates WIDTHxHEIGHT image size strings.
var imageSizePattern = regexp.MustCompile(`^\d+x\d+$`)

// Load reads configuration from a YAML file, applies environment variable
// overrides, and validates the result.
//
// Environment variables follow the pattern INFORMER_SECTION_KEY
// (e.g. INFORMER_OUTPUT_DIR, INFORMER_ENTITY_IDS). The add-on-native
// variables SUPERVISOR_TOKEN and OPENAI_API_KEY are also honoured.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Name:     "Home",
			Timezone: "UTC",
		},
		Supervisor: SupervisorConfig{
			APIURL:  "http://supervisor/core/api",
			Timeout: 10,
		},
		OpenAI: OpenAIConfig{
			BaseURL:          "https://api.openai.com/v1",
			ConceptModel:     "gpt-5.2",
			IntegrationModel: "gpt-4o",
			FallbackModel:    "gpt-4o-mini",
			ImageModel:       "gpt-image-1.5",
			ImageQuality:     "high",
			ImageSize:        "1536x1024",
			ReasoningEffort:  "medium",
			Timeout:          120,
		},
		Pipeline: PipelineConfig{
			Mode:              ModeThreeStep,
			UseDefaultPrompts: true,
			MaxTokens:         4096,
			Temperature:       1.0,
		},
		Entities: EntitiesConfig{
			ListStyle:     "auto",
			HomeReference: "zone.home",
		},
		Output: OutputConfig{
			Dir:              "/media/generated",
			FilenamePrefix:   "hud_display",
			Resize:           true,
			TargetResolution: "1080p",
			SaveOriginal:     true,
		},
		Video: VideoConfig{
			Enabled:   true,
			Duration:  1800,
			Framerate: "0.25",
		},
		Database: DatabaseConfig{
			Path:        "/data/informer.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hud-informer",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: INFORMER_SECTION_KEY
func applyEnvOverrides(cfg *Config) { //nolint:gocognit,gocyclo // flat mapping of env vars to fields
	// Add-on native variables (set by the Supervisor / run.sh)
	if v := os.Getenv("SUPERVISOR_TOKEN"); v != "" {
		cfg.Supervisor.Token = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}

	// OpenAI
	if v := os.Getenv("INFORMER_CONCEPT_MODEL"); v != "" {
		cfg.OpenAI.ConceptModel = v
	}
	if v := os.Getenv("INFORMER_PROMPT_MODEL"); v != "" {
		cfg.OpenAI.IntegrationModel = v
	}
	if v := os.Getenv("INFORMER_IMAGE_MODEL"); v != "" {
		cfg.OpenAI.ImageModel = v
	}
	if v := os.Getenv("INFORMER_IMAGE_QUALITY"); v != "" {
		cfg.OpenAI.ImageQuality = v
	}
	if v := os.Getenv("INFORMER_IMAGE_SIZE"); v != "" {
		cfg.OpenAI.ImageSize = v
	}

	// Pipeline
	if v := os.Getenv("INFORMER_PIPELINE_MODE"); v != "" {
		cfg.Pipeline.Mode = v
	}
	if v := os.Getenv("INFORMER_USE_DEFAULT_PROMPTS"); v != "" {
		cfg.Pipeline.UseDefaultPrompts = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("INFORMER_SYSTEM_PROMPT"); v != "" {
		cfg.Pipeline.SystemPrompt = v
	}
	if v := os.Getenv("INFORMER_USER_PROMPT"); v != "" {
		cfg.Pipeline.UserPrompt = v
	}

	// Entities
	if v := os.Getenv("INFORMER_ENTITY_IDS"); v != "" {
		cfg.Entities.References = v
	}
	if v := os.Getenv("INFORMER_HOME_REFERENCE"); v != "" {
		cfg.Entities.HomeReference = v
	}

	// Output
	if v := os.Getenv("INFORMER_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("INFORMER_FILENAME_PREFIX"); v != "" {
		cfg.Output.FilenamePrefix = v
	}
	if v := os.Getenv("INFORMER_RESIZE_OUTPUT"); v != "" {
		cfg.Output.Resize = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("INFORMER_TARGET_RESOLUTION"); v != "" {
		cfg.Output.TargetResolution = v
	}

	// Video
	if v := os.Getenv("INFORMER_ENABLE_VIDEO"); v != "" {
		cfg.Video.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("INFORMER_VIDEO_DURATION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Video.Duration = n
		}
	}
	if v := os.Getenv("INFORMER_VIDEO_FRAMERATE"); v != "" {
		cfg.Video.Framerate = v
	}

	// MQTT
	if v := os.Getenv("INFORMER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("INFORMER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("INFORMER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("INFORMER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// The OpenAI API key is deliberately not required here: the add-on keeps
// running without one (so the Supervisor does not restart-loop it) and the
// pipeline reports the failure per run instead.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Supervisor.APIURL == "" {
		errs = append(errs, "supervisor.api_url is required")
	}

	if c.OpenAI.BaseURL == "" {
		errs = append(errs, "openai.base_url is required")
	}
	if !imageSizePattern.MatchString(c.OpenAI.ImageSize) {
		errs = append(errs, "openai.image_size must be WIDTHxHEIGHT (e.g. 1536x1024)")
	}

	switch c.Pipeline.Mode {
	case ModeThreeStep, ModeTwoStep:
	default:
		errs = append(errs, "pipeline.mode must be three_step or two_step")
	}

	switch c.Entities.ListStyle {
	case "auto", "comma", "newline", "whitespace":
	default:
		errs = append(errs, "entities.list_style must be auto, comma, newline, or whitespace")
	}

	if c.Output.Dir == "" {
		errs = append(errs, "output.dir is required")
	}
	if c.Output.FilenamePrefix == "" {
		errs = append(errs, "output.filename_prefix is required")
	}

	if c.Video.Enabled && c.Video.Duration <= 0 {
		errs = append(errs, "video.duration must be positive when video is enabled")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetSupervisorTimeout returns the Supervisor API timeout as a Duration.
func (c *Config) GetSupervisorTimeout() time.Duration {
	return time.Duration(c.Supervisor.Timeout) * time.Second
}

// GetOpenAITimeout returns the remote AI call timeout as a Duration.
func (c *Config) GetOpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.Timeout) * time.Second
}
