// Package config loads the settings shared by the sequencer CLI and the
// execution service.
//
// Values are layered: [DefaultConfig], then the YAML file (by default
// ~/.sequencer/config.yaml), then a .env file, then the process environment.
// The API key is read from GEMINI_API_KEY with GOOGLE_API_KEY as a fallback.
//
//	client:
//	  server_url: http://localhost:8000
//	  model: gemini-2.5-flash
//	server:
//	  listen_addr: ":8000"
//	  allowed_origins: ["http://localhost:5173"]
//	  max_concurrency: 4
//	  node_timeout: 2m
//	transcript:
//	  path: /home/me/.sequencer/transcripts.db
//	logging:
//	  level: debug
//	  format: pretty
package config
