// Package config provides configuration management for the bot runtime.
//
// This package handles loading, layering, and validation of runtime
// configuration from JSON and YAML files plus environment variables.
//
// # Core Components
//
// Config: Main configuration structure containing bot identity and credentials,
// REST API settings, gateway connection tuning, cache sizing, NATS bridge
// settings, metrics endpoint, and logging options.
//
// SafeConfig: Thread-safe wrapper using RWMutex and deep cloning to prevent
// concurrent access issues and accidental mutations.
//
// Loader: Loads configuration with layer merging (base + overrides) and
// environment variable substitution for flexible deployment scenarios.
//
// # Basic Usage
//
// Loading configuration from files with layer merging:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.json")
//	loader.AddLayer("config/production.yaml") // Overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Layer Merging
//
// Configuration layers are merged with last-wins semantics:
//
//	base.json:
//	  {"bot": {"name": "helper", "token": "dev-token"}, "logging": {"level": "debug"}}
//
//	production.yaml:
//	  bot:
//	    token: prod-token
//
//	Result:
//	  {"bot": {"name": "helper", "token": "prod-token"}, "logging": {"level": "debug"}}
//
// YAML and JSON layers can be mixed freely; both use the same key names.
//
// # Environment Variable Overrides
//
// Configuration values can be overridden using environment variables, which
// take precedence over every file layer:
//
//	# Override the bot token (keeps credentials out of config files)
//	export BOTKIT_BOT_TOKEN="..."
//
//	# Override NATS URLs (comma-separated)
//	export BOTKIT_NATS_URLS="nats://server1:4222,nats://server2:4222"
//
//	# Override logging
//	export BOTKIT_LOG_LEVEL="debug"
//
// # Durations
//
// Duration fields accept Go duration strings in config files:
//
//	{
//	  "api": {"timeout": "30s"},
//	  "gateway": {"heartbeat_interval": "30s", "reconnect_max_delay": "2m"}
//	}
//
// # Validation
//
// With EnableValidation(true) the loader runs two validation passes over the
// merged configuration: a structural pass against an embedded JSON schema
// (field types, enums, ranges) and a semantic pass (required identity fields,
// NATS subject compatibility of the bot name, delay ordering).
//
// # Thread-Safe Access
//
// SafeConfig ensures thread-safe access to configuration:
//
//	safeConfig := config.NewSafeConfig(cfg)
//
//	// Read config (deep copy returned, safe to use)
//	cfg := safeConfig.Get()
//
//	// Replace config atomically (validated first)
//	err := safeConfig.Update(newCfg)
//
// # Security
//
// The package includes security validation:
//   - File size limits (10MB max) to prevent memory exhaustion
//   - JSON depth validation (100 levels max) to prevent DoS attacks
//   - Path validation to prevent directory traversal
//   - Regular file checks (no symlinks or device files)
//   - Credential redaction in Config.String() output
package config
