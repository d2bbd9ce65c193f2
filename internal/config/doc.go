// Package config loads foxter configuration from local and global YAML files
// with precedence rules, and resolves the per-user directories where foxter
// keeps its log, quarantine and scan history. It is internal; CLI code maps
// flags and files into component configuration.
package config
