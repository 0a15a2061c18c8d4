package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = ".authflow/config.yaml"

type ClassifyConfig struct {
	URLKeywords []string `yaml:"url_keywords"`
	ParamNames  []string `yaml:"param_names"`
}

type FlowConfig struct {
	PrefixCap int `yaml:"prefix_cap"`
	SampleCap int `yaml:"sample_cap"`
}

type ReplayConfig struct {
	UserAgent          string `yaml:"user_agent"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	InsecureTLS        bool   `yaml:"insecure_tls"`
	MaxFallbackReplays int    `yaml:"max_fallback_replays"`
	SnippetLimit       int    `yaml:"snippet_limit"`
	DecodedLimit       int    `yaml:"decoded_limit"`
}

type FilterConfig struct {
	Enabled            bool     `yaml:"enabled"`
	IgnoreExtensions   []string `yaml:"ignore_extensions"`
	IgnoreContentTypes []string `yaml:"ignore_content_types"`
	IgnorePaths        []string `yaml:"ignore_paths"`
}

type SanitizeConfig struct {
	Headers     []string `yaml:"headers"`
	Replacement string   `yaml:"replacement"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Classify ClassifyConfig `yaml:"classify"`
	Flow     FlowConfig     `yaml:"flow"`
	Replay   ReplayConfig   `yaml:"replay"`
	Filter   FilterConfig   `yaml:"filter"`
	Sanitize SanitizeConfig `yaml:"sanitize"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// Load loads an optional .env file, then the YAML config, then applies
// env overrides.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.SetDefaults()

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		configPath = filepath.Join(home, defaultConfigRelPath)
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if len(c.Classify.URLKeywords) == 0 {
		c.Classify.URLKeywords = []string{"login", "auth", "sso", "saml", "oauth", "token", "authorize", "acs", "idp"}
	}
	if len(c.Classify.ParamNames) == 0 {
		c.Classify.ParamNames = []string{"samlrequest", "samlresponse", "relaystate"}
	}
	if c.Flow.PrefixCap == 0 {
		c.Flow.PrefixCap = 50
	}
	if c.Flow.SampleCap == 0 {
		c.Flow.SampleCap = 30
	}
	if c.Replay.UserAgent == "" {
		c.Replay.UserAgent = "authflow-har-replay/1.0"
	}
	if c.Replay.TimeoutSeconds == 0 {
		c.Replay.TimeoutSeconds = 30
	}
	if c.Replay.MaxFallbackReplays == 0 {
		c.Replay.MaxFallbackReplays = 10
	}
	if c.Replay.SnippetLimit == 0 {
		c.Replay.SnippetLimit = 800
	}
	if c.Replay.DecodedLimit == 0 {
		c.Replay.DecodedLimit = 2000
	}
	if len(c.Filter.IgnoreExtensions) == 0 {
		c.Filter.IgnoreExtensions = []string{".js", ".css", ".png", ".jpg", ".gif", ".svg", ".woff", ".woff2", ".ico", ".map"}
	}
	if len(c.Filter.IgnoreContentTypes) == 0 {
		c.Filter.IgnoreContentTypes = []string{"image/*", "font/*", "text/css"}
	}
	if len(c.Filter.IgnorePaths) == 0 {
		c.Filter.IgnorePaths = []string{"/static/", "/assets/", "/favicon"}
	}
	if len(c.Sanitize.Headers) == 0 {
		c.Sanitize.Headers = []string{"authorization", "cookie", "set-cookie", "x-api-key", "x-auth-token"}
	}
	if c.Sanitize.Replacement == "" {
		c.Sanitize.Replacement = "***REDACTED***"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output.dir cannot be empty")
	}
	if err := ensureWritableDir(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir not writable: %w", err)
	}
	return nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func applyEnvOverrides(c *Config) {
	setString(&c.Replay.UserAgent, "AUTHFLOW_REPLAY_USER_AGENT")
	setInt(&c.Replay.TimeoutSeconds, "AUTHFLOW_REPLAY_TIMEOUT_SECONDS")
	setBool(&c.Replay.InsecureTLS, "AUTHFLOW_REPLAY_INSECURE_TLS")
	setInt(&c.Replay.MaxFallbackReplays, "AUTHFLOW_REPLAY_MAX_FALLBACK")
	setInt(&c.Flow.PrefixCap, "AUTHFLOW_FLOW_PREFIX_CAP")
	setInt(&c.Flow.SampleCap, "AUTHFLOW_FLOW_SAMPLE_CAP")
	setBool(&c.Filter.Enabled, "AUTHFLOW_FILTER_ENABLED")
	setString(&c.Output.Dir, "AUTHFLOW_OUTPUT_DIR")
	setString(&c.Server.Host, "AUTHFLOW_SERVER_HOST")
	setInt(&c.Server.Port, "AUTHFLOW_SERVER_PORT")
	setString(&c.Log.Level, "AUTHFLOW_LOG_LEVEL")
	setString(&c.Log.File, "AUTHFLOW_LOG_FILE")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
