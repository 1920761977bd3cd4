package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/botkit/errors"
)

// configSchema is the JSON schema every loaded configuration must satisfy.
// Structural checks live here; semantic rules (subject compatibility, delay
// ordering) live in Config.Validate.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["bot"],
  "properties": {
    "version": {"type": "string"},
    "bot": {
      "type": "object",
      "required": ["name", "token"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "token": {"type": "string", "minLength": 1},
        "environment": {"type": "string"}
      }
    },
    "api": {
      "type": "object",
      "properties": {
        "base_url": {"type": "string"},
        "media_url": {"type": "string"},
        "timeout": {"type": ["number", "string"]},
        "rate_limit": {"type": "number", "minimum": 0},
        "rate_burst": {"type": "integer", "minimum": 0}
      }
    },
    "gateway": {
      "type": "object",
      "properties": {
        "url": {"type": "string"},
        "heartbeat_interval": {"type": ["number", "string"]},
        "handshake_timeout": {"type": ["number", "string"]},
        "reconnect_min_delay": {"type": ["number", "string"]},
        "reconnect_max_delay": {"type": ["number", "string"]},
        "max_reconnects": {"type": "integer"}
      }
    },
    "cache": {
      "type": "object",
      "properties": {
        "messages": {
          "type": "object",
          "properties": {
            "enabled": {"type": "boolean"},
            "strategy": {"type": "string", "enum": ["simple", "fifo", ""]},
            "max_size": {"type": "integer", "minimum": 0}
          }
        }
      }
    },
    "bridge": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "subject_prefix": {"type": "string"},
        "nats": {
          "type": "object",
          "properties": {
            "urls": {"type": "array", "items": {"type": "string"}},
            "max_reconnects": {"type": "integer"},
            "reconnect_wait": {"type": ["number", "string"]},
            "username": {"type": "string"},
            "password": {"type": "string"},
            "token": {"type": "string"},
            "jetstream": {
              "type": "object",
              "properties": {
                "enabled": {"type": "boolean"},
                "stream": {"type": "string"}
              }
            }
          }
        }
      }
    },
    "metrics": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "port": {"type": "integer", "minimum": 0, "maximum": 65535},
        "path": {"type": "string"}
      }
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "format": {"type": "string", "enum": ["json", "text"]}
      }
    }
  }
}`

// ValidateSchema validates a configuration against the embedded JSON schema.
// All schema violations are collected into a single error.
func ValidateSchema(cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "ValidateSchema", "marshal config")
	}
	return ValidateSchemaBytes(data)
}

// ValidateSchemaBytes validates raw configuration JSON against the embedded schema
func ValidateSchemaBytes(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "ValidateSchemaBytes", "run schema validation")
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}

	return errors.WrapInvalid(
		fmt.Errorf("schema violations: %s", strings.Join(violations, "; ")),
		"Config", "ValidateSchemaBytes", "validate against schema")
}
