// Package dsl parses YAML workflow definitions into graph models.
package dsl
