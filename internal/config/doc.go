// Package config handles loading the adindex client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/adindex/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. ADINDEX_* environment variables override file values
//  5. Empty or non-positive values are replaced by defaults
//
// # Default Values
//
//   - Config file: ~/.config/adindex/config.toml
//   - API endpoint: http://127.0.0.1:8080
//   - Push service: http://127.0.0.1:8080/push
//   - Data directory: ~/.local/share/adindex
//   - Log file: <data_dir>/client.log
//   - Request timeout: 10 seconds
//   - Status poll: 30 seconds
//
// # TOML Format
//
//	api_url = "https://ads.example.com"
//	push_service_url = "https://push.example.com"
//	data_dir = "~/.local/share/adindex"
//	log_file = "~/.local/share/adindex/client.log"
//	log_level = "info"
//	request_timeout_seconds = 10
//	status_poll_seconds = 30
//
// Every field is optional. Tilde expansion is applied to data_dir and log_file.
//
// # Derived Paths
//
//   - StorePath: <data_dir>/store.toml, the durable key-value store holding the
//     session and preferences
//   - SubscriptionPath: <data_dir>/subscription.json, the push subscription
//     registration
//
// # Error Handling
//
// Load returns errors for path expansion failures, unreadable files and
// invalid TOML. A missing file is not an error.
package config
