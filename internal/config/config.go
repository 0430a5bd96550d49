// Package config loads and validates the runtime's configuration file.
package config

import "time"

// Config is the root configuration for the CUA runtime process (the `cua`
// CLI and the HTTP proxy). Agent-level construction options (§6.1 of the
// spec this config supports) are separate and live in the root cua package;
// this struct only covers process-wide, file-loaded settings.
type Config struct {
	Providers   ProvidersConfig   `yaml:"providers"`
	Agent       AgentDefaults     `yaml:"agent"`
	Trajectory  TrajectoryConfig  `yaml:"trajectory"`
	Proxy       ProxyConfig       `yaml:"proxy"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ProvidersConfig holds per-provider credentials and endpoints. Most fields
// are expected to come from the environment in production (see
// spec.md §6.6); the config file form exists for local/dev overrides and so
// a single file can drive the `replay` and `serve` CLI verbs without env
// plumbing.
type ProvidersConfig struct {
	Anthropic ProviderConfig `yaml:"anthropic"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Gemini    ProviderConfig `yaml:"gemini"`
	Bedrock   BedrockConfig  `yaml:"bedrock"`
}

// ProviderConfig configures a single LLM provider credential/endpoint.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// BedrockConfig configures the AWS Bedrock Runtime client used by the
// bedrock loop strategy.
type BedrockConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// AgentDefaults seeds defaults for the Agent construction API (§6.1) so a
// process started from the CLI doesn't need every option on the command
// line.
type AgentDefaults struct {
	Model                  string        `yaml:"model"`
	MaxRetries             int           `yaml:"max_retries"`
	ScreenshotDelay        time.Duration `yaml:"screenshot_delay"`
	OnlyNMostRecentImages  int           `yaml:"only_n_most_recent_images"`
	UsePromptCaching       bool          `yaml:"use_prompt_caching"`
	MaxTrajectoryBudgetUSD float64       `yaml:"max_trajectory_budget_usd"`
	Instructions           string        `yaml:"instructions"`
}

// TrajectoryConfig configures TrajectorySaver (§4.4, §4.8, §6.5).
type TrajectoryConfig struct {
	Dir        string `yaml:"dir"`
	ResetOnRun bool   `yaml:"reset_on_run"`
}

// ProxyConfig configures the optional HTTP proxy surface (§6.4).
type ProxyConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	APIKey     string `yaml:"api_key"`
	Streaming  bool   `yaml:"streaming"`
}

// ObservabilityConfig configures the ambient logging/metrics/tracing stack.
type ObservabilityConfig struct {
	LogLevel       string   `yaml:"log_level"`
	LogFormat      string   `yaml:"log_format"`
	RedactPatterns []string `yaml:"redact_patterns"`
	MetricsAddr    string   `yaml:"metrics_addr"`
}

// Default returns a Config with the same fallbacks the loader applies when a
// field is absent from the file.
func Default() Config {
	return Config{
		Agent: AgentDefaults{
			MaxRetries:      3,
			ScreenshotDelay: 500 * time.Millisecond,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load reads, merges $include directives, and decodes path into a Config.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Agent.MaxRetries == 0 {
		cfg.Agent.MaxRetries = def.Agent.MaxRetries
	}
	if cfg.Agent.ScreenshotDelay == 0 {
		cfg.Agent.ScreenshotDelay = def.Agent.ScreenshotDelay
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = def.Observability.LogLevel
	}
	if cfg.Observability.LogFormat == "" {
		cfg.Observability.LogFormat = def.Observability.LogFormat
	}
}
