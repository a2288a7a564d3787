// Package config handles configuration loading for sibyl.
//
// Configuration is loaded from a YAML file with ${VAR} environment
// variable expansion. Duration values use Go's time.ParseDuration
// syntax. Load validates required fields and applies defaults.
//
// Default locations (in order):
//
//  1. Path from SIBYL_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/sibyl/config.yaml
//  3. ~/.config/sibyl/config.yaml
//
// Example:
//
//	assistant:
//	  credentials_path: "${HOME}/.config/google-oauthlib-tool/credentials.json"
//	  language_code: "en-US"
//	  device_model_id: "${DEVICE_MODEL_ID}"
//	  device_id: "${DEVICE_ID}"
//	  deadline: "3m5s"
//
//	frontends:
//	  telegram:
//	    enabled: true
//	    bot_token: "${BOT_TOKEN}"
//
//	policy:
//	  allowed_chat_ids: ["-1001234"]
//	  authorized_user_ids: ["42"]
package config
