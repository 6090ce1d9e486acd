// Package configs provides the embedded default configuration template for
// memory-mcp.
//
// The template is embedded at build time via Go's //go:embed directive so it
// ships with every distribution (source builds, binary releases) without a
// separate asset step.
//
// Configuration hierarchy (see internal/config.Load):
//  1. Hardcoded defaults (internal/config.NewConfig)
//  2. Project config (.memory-mcp.yaml, seeded from this template)
//  3. Environment variables (MEMORY_*)
package configs

import _ "embed"

// DefaultConfigTemplate is written by `memory-mcp init` to seed a new
// .memory-mcp.yaml in the current working directory.
//
//go:embed default-config.example.yaml
var DefaultConfigTemplate string
