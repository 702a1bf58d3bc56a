// Package config loads runtime configuration from multiple sources (YAML files,
// a dotenv file, environment variables, CLI flags) with precedence: CLI flags >
// Environment variables > YAML config > Defaults. The deployment identity
// shown on the rendered page is resolved from a static table of keys and
// defaults so it can be exercised without touching the process environment.
package config
