// Package config loads hostline.yaml.
//
// It provides functionality for:
//   - Loading configuration from hostline.yaml or .hostline.yaml
//   - Validating the file against an embedded JSON schema
//   - Environment overrides (HOSTLINE_RATE_LIMIT, HOSTLINE_LOG_LEVEL), also
//     from a dotenv file
//   - Watching the file and reloading it on change
package config
