// Package config handles configuration loading for the support console.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The format is picked from the file extension: ".toml" is TOML,
// anything else is YAML.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PETSHOP_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/petshop/console.yaml
//  3. ~/.config/petshop/console.yaml
//
// When no file exists the console uses Default, which targets a fake shop
// on localhost:8080.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	api:
//	  base_url: "${PETSHOP_API_URL}"
//
// # Configuration Sections
//
//	api:
//	  base_url: "http://localhost:3000/api"
//	  timeout: "15s"
//
//	realtime:
//	  url: "ws://localhost:3000"
//	  namespace: "messages"
//	  reconnect_min: "500ms"
//	  reconnect_max: "30s"
//	  dedupe_ttl: "5m"
//
//	chat:
//	  page_size: 20
//	  render_markdown: true
//
//	state:
//	  path: "~/.local/share/petshop/console.db"
//
//	auth:
//	  token_file: ""   # defaults to ~/.config/petshop/token
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
