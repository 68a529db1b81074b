// Package config loads weft configuration: defaults, overridden by a
// YAML file, overridden by WEFT_-prefixed environment variables.
package config
