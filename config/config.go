package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/c360/botkit/pkg/cache"
)

// Config represents the complete bot runtime configuration
type Config struct {
	Version string        `json:"version,omitempty"`
	Bot     BotConfig     `json:"bot"`
	API     APIConfig     `json:"api,omitempty"`
	Gateway GatewayConfig `json:"gateway,omitempty"`
	Cache   CacheConfig   `json:"cache,omitempty"`
	Bridge  BridgeConfig  `json:"bridge,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`
	Logging LoggingConfig `json:"logging,omitempty"`
}

// BotConfig defines bot identity and credentials
type BotConfig struct {
	Name        string `json:"name"`
	Token       string `json:"token"`
	Environment string `json:"environment,omitempty"` // "prod", "dev", "test"
}

// APIConfig defines REST API client settings
type APIConfig struct {
	BaseURL   string        `json:"base_url,omitempty"`
	MediaURL  string        `json:"media_url,omitempty"` // media upload host; empty disables uploads
	Timeout   time.Duration `json:"timeout,omitempty"`
	RateLimit float64       `json:"rate_limit,omitempty"` // requests per second, 0 = unlimited
	RateBurst int           `json:"rate_burst,omitempty"`
}

// GatewayConfig defines stream connection settings
type GatewayConfig struct {
	URL               string        `json:"url,omitempty"` // override; discovered from the API when empty
	HeartbeatInterval time.Duration `json:"heartbeat_interval,omitempty"`
	HandshakeTimeout  time.Duration `json:"handshake_timeout,omitempty"`
	ReconnectMinDelay time.Duration `json:"reconnect_min_delay,omitempty"`
	ReconnectMaxDelay time.Duration `json:"reconnect_max_delay,omitempty"`
	MaxReconnects     int           `json:"max_reconnects,omitempty"` // -1 = unlimited
}

// CacheConfig controls the entity caches
type CacheConfig struct {
	Messages cache.Config `json:"messages"` // bounded message history
}

// BridgeConfig defines the NATS event bridge settings
type BridgeConfig struct {
	Enabled       bool       `json:"enabled"`
	SubjectPrefix string     `json:"subject_prefix,omitempty"`
	NATS          NATSConfig `json:"nats,omitempty"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string        `json:"urls,omitempty"`
	MaxReconnects int             `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration   `json:"reconnect_wait,omitempty"`
	Username      string          `json:"username,omitempty"`
	Password      string          `json:"password,omitempty"`
	Token         string          `json:"token,omitempty"`
	JetStream     JetStreamConfig `json:"jetstream,omitempty"`
}

// JetStreamConfig for durable event publishing
type JetStreamConfig struct {
	Enabled bool   `json:"enabled"`
	Stream  string `json:"stream,omitempty"`
}

// MetricsConfig defines the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LoggingConfig defines structured logging settings
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // json, text
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically updates the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	// Validate before updating
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	// Use JSON marshaling/unmarshaling for deep copy
	data, err := json.Marshal(c)
	if err != nil {
		// Fallback to shallow copy if marshaling fails
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		// Fallback to shallow copy if unmarshaling fails
		copied := *c
		return &copied
	}

	return &clone
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	// Validate and normalize bot name
	if c.Bot.Name == "" {
		return errors.New("bot.name is required")
	}

	// Normalize name to lowercase
	c.Bot.Name = strings.ToLower(c.Bot.Name)

	// The bot name feeds the bridge subject prefix, so it must be
	// NATS-subject compatible
	if !isValidNATSSubjectPart(c.Bot.Name) {
		return fmt.Errorf(
			"bot.name '%s' is not valid for NATS subjects (must be alphanumeric with dots, dashes, underscores)",
			c.Bot.Name,
		)
	}

	if c.Bot.Token == "" {
		return errors.New("bot.token is required")
	}

	if c.API.Timeout < 0 {
		return errors.New("api.timeout cannot be negative")
	}
	if c.API.RateLimit < 0 {
		return errors.New("api.rate_limit cannot be negative")
	}

	if c.Gateway.HeartbeatInterval < 0 {
		return errors.New("gateway.heartbeat_interval cannot be negative")
	}
	if c.Gateway.ReconnectMinDelay > 0 && c.Gateway.ReconnectMaxDelay > 0 &&
		c.Gateway.ReconnectMinDelay > c.Gateway.ReconnectMaxDelay {
		return errors.New("gateway.reconnect_min_delay cannot exceed gateway.reconnect_max_delay")
	}

	if c.Cache.Messages.Enabled {
		if err := c.Cache.Messages.Validate(); err != nil {
			return fmt.Errorf("cache.messages: %w", err)
		}
	}

	if c.Bridge.Enabled {
		if c.Bridge.SubjectPrefix != "" && !isValidNATSSubjectPart(c.Bridge.SubjectPrefix) {
			return fmt.Errorf(
				"bridge.subject_prefix '%s' is not valid for NATS subjects",
				c.Bridge.SubjectPrefix,
			)
		}
		if len(c.Bridge.NATS.URLs) == 0 {
			return errors.New("bridge.nats.urls is required when the bridge is enabled")
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
		}
	}

	if err := validateLogging(c.Logging); err != nil {
		return err
	}

	return nil
}

// validateLogging checks logging level and format values
func validateLogging(lc LoggingConfig) error {
	switch lc.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q invalid (must be debug, info, warn, or error)", lc.Level)
	}
	switch lc.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format %q invalid (must be json or text)", lc.Format)
	}
	return nil
}

// isValidNATSSubjectPart checks if a string is valid for use in NATS subjects.
// Valid characters are alphanumeric, dots, dashes, and underscores.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// SubjectPrefix returns the effective bridge subject prefix,
// falling back to "bot.{name}" when none is configured.
func (c *Config) SubjectPrefix() string {
	if c.Bridge.SubjectPrefix != "" {
		return c.Bridge.SubjectPrefix
	}
	return "bot." + c.Bot.Name
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  "BOTKIT",
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := l.getDefaults()

	// Load each layer and merge using map-based approach
	for _, path := range l.layers {
		rawConfig, err := l.loadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = l.mergeFromMap(cfg, rawConfig)
	}

	// Apply environment overrides
	l.applyEnvOverrides(cfg)

	// Validate if enabled
	if l.validation {
		if err := l.validate(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// getDefaults returns default configuration
func (l *Loader) getDefaults() *Config {
	return &Config{
		API: APIConfig{
			Timeout:   30 * time.Second,
			RateLimit: 50,
			RateBurst: 10,
		},
		Gateway: GatewayConfig{
			HeartbeatInterval: 30 * time.Second,
			HandshakeTimeout:  45 * time.Second,
			ReconnectMinDelay: time.Second,
			ReconnectMaxDelay: 2 * time.Minute,
			MaxReconnects:     -1,
		},
		Cache: CacheConfig{
			Messages: cache.DefaultMessageConfig(),
		},
		Bridge: BridgeConfig{
			Enabled: false,
			NATS: NATSConfig{
				URLs:          []string{"nats://localhost:4222"},
				MaxReconnects: -1,
				ReconnectWait: 2 * time.Second,
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadRaw loads configuration from a JSON or YAML file as a map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	// Use secure file reading with validation
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var rawConfig map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rawConfig); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		// Validate JSON depth to prevent DoS
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &rawConfig); err != nil {
			return nil, err
		}
	}

	// Convert duration strings
	l.parseDurations(rawConfig)

	return rawConfig, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	// Marshal the base config to JSON then to map
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	// Deep merge the maps
	mergedMap := l.deepMergeMaps(baseMap, override)

	// Convert back to Config
	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return base
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base
	}

	return &merged
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func (l *Loader) deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	// Copy base values
	for k, v := range base {
		result[k] = v
	}

	// Override with values from override map
	for k, v := range override {
		if v == nil {
			continue
		}

		// If both base and override have maps at this key, merge them
		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = l.deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		// Otherwise, override takes precedence
		result[k] = v
	}

	return result
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func (l *Loader) parseDurations(data map[string]any) {
	parseDurationField(data, "api", "timeout")
	parseDurationField(data, "gateway", "heartbeat_interval")
	parseDurationField(data, "gateway", "handshake_timeout")
	parseDurationField(data, "gateway", "reconnect_min_delay")
	parseDurationField(data, "gateway", "reconnect_max_delay")

	if bridge, ok := data["bridge"].(map[string]any); ok {
		parseDurationField(bridge, "nats", "reconnect_wait")
	}
}

// parseDurationField converts a duration string at section.key to nanoseconds
func parseDurationField(data map[string]any, section, key string) {
	if m, ok := data[section].(map[string]any); ok {
		if s, ok := m[key].(string); ok {
			if d, err := time.ParseDuration(s); err == nil {
				m[key] = d.Nanoseconds()
			}
		}
	}
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) {
	// Bot overrides
	if val := l.getenv("_BOT_NAME"); val != "" {
		cfg.Bot.Name = val
	}
	if val := l.getenv("_BOT_TOKEN"); val != "" {
		cfg.Bot.Token = val
	}
	if val := l.getenv("_BOT_ENVIRONMENT"); val != "" {
		cfg.Bot.Environment = val
	}

	// API overrides
	if val := l.getenv("_API_BASE_URL"); val != "" {
		cfg.API.BaseURL = val
	}
	if val := l.getenv("_API_MEDIA_URL"); val != "" {
		cfg.API.MediaURL = val
	}

	// Gateway overrides
	if val := l.getenv("_GATEWAY_URL"); val != "" {
		cfg.Gateway.URL = val
	}

	// NATS overrides
	if val := l.getenv("_NATS_URLS"); val != "" {
		cfg.Bridge.NATS.URLs = strings.Split(val, ",")
	}
	if val := l.getenv("_NATS_USERNAME"); val != "" {
		cfg.Bridge.NATS.Username = val
	}
	if val := l.getenv("_NATS_PASSWORD"); val != "" {
		cfg.Bridge.NATS.Password = val
	}
	if val := l.getenv("_NATS_TOKEN"); val != "" {
		cfg.Bridge.NATS.Token = val
	}

	// Logging overrides
	if val := l.getenv("_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := l.getenv("_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}

// getenv reads a prefixed environment variable, dropping values that fail
// basic validation
func (l *Loader) getenv(suffix string) string {
	key := l.envPrefix + suffix
	val := os.Getenv(key)
	if err := validateEnvVar(key, val); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "WARNING: ignoring %s: %v\n", key, err)
		return ""
	}
	return val
}

// validate validates the configuration
func (l *Loader) validate(cfg *Config) error {
	// Structural validation against the JSON schema first
	if err := ValidateSchema(cfg); err != nil {
		return err
	}
	// Then semantic validation
	return cfg.Validate()
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// Use secure file writing with validation
	return safeWriteFile(path, data)
}

// String returns a JSON representation of the config with credentials redacted
func (c *Config) String() string {
	clone := c.Clone()
	if clone.Bot.Token != "" {
		clone.Bot.Token = "[removed]"
	}
	if clone.Bridge.NATS.Password != "" {
		clone.Bridge.NATS.Password = "[removed]"
	}
	if clone.Bridge.NATS.Token != "" {
		clone.Bridge.NATS.Token = "[removed]"
	}
	data, _ := json.MarshalIndent(clone, "", "  ")
	return string(data)
}

// parseFlexibleDuration accepts a duration as a Go duration string or a
// number of nanoseconds
func parseFlexibleDuration(v any) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		return time.ParseDuration(t)
	case float64:
		return time.Duration(t), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", v)
	}
}

// UnmarshalJSON implements custom JSON unmarshaling for APIConfig,
// accepting duration strings like "30s"
func (a *APIConfig) UnmarshalJSON(data []byte) error {
	type Alias APIConfig
	aux := &struct {
		Timeout any `json:"timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := parseFlexibleDuration(aux.Timeout)
	if err != nil {
		return fmt.Errorf("api.timeout: %w", err)
	}
	a.Timeout = d
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for GatewayConfig,
// accepting duration strings for intervals and delays
func (g *GatewayConfig) UnmarshalJSON(data []byte) error {
	type Alias GatewayConfig
	aux := &struct {
		HeartbeatInterval any `json:"heartbeat_interval,omitempty"`
		HandshakeTimeout  any `json:"handshake_timeout,omitempty"`
		ReconnectMinDelay any `json:"reconnect_min_delay,omitempty"`
		ReconnectMaxDelay any `json:"reconnect_max_delay,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(g),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	fields := []struct {
		name string
		raw  any
		dst  *time.Duration
	}{
		{"gateway.heartbeat_interval", aux.HeartbeatInterval, &g.HeartbeatInterval},
		{"gateway.handshake_timeout", aux.HandshakeTimeout, &g.HandshakeTimeout},
		{"gateway.reconnect_min_delay", aux.ReconnectMinDelay, &g.ReconnectMinDelay},
		{"gateway.reconnect_max_delay", aux.ReconnectMaxDelay, &g.ReconnectMaxDelay},
	}
	for _, f := range fields {
		d, err := parseFlexibleDuration(f.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for NATSConfig,
// accepting a duration string for reconnect_wait
func (n *NATSConfig) UnmarshalJSON(data []byte) error {
	type Alias NATSConfig
	aux := &struct {
		ReconnectWait any `json:"reconnect_wait,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(n),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := parseFlexibleDuration(aux.ReconnectWait)
	if err != nil {
		return fmt.Errorf("nats.reconnect_wait: %w", err)
	}
	n.ReconnectWait = d
	return nil
}
